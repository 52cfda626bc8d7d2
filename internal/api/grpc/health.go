package grpc

import (
	"context"
	"sync"
	"time"

	"rentchain-backend/internal/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health-check service name reported for the backend.
const ServiceName = "rentchain.Backend"

// HealthServer serves grpc.health.v1 and keeps the serving status in step
// with a readiness probe such as a database ping.
type HealthServer struct {
	server   *grpc.Server
	health   *health.Server
	probe    func(ctx context.Context) error
	interval time.Duration

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func NewHealthServer(probe func(ctx context.Context) error, interval time.Duration, opts ...grpc.ServerOption) *HealthServer {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	s := &HealthServer{
		server:   grpc.NewServer(opts...),
		health:   health.NewServer(),
		probe:    probe,
		interval: interval,
		stop:     make(chan struct{}),
	}
	healthpb.RegisterHealthServer(s.server, s.health)
	// Register reflection service for grpcurl
	reflection.Register(s.server)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Server exposes the underlying grpc.Server for serving on a listener.
func (s *HealthServer) Server() *grpc.Server {
	return s.server
}

// Start runs the probe immediately and then on every interval until Stop.
func (s *HealthServer) Start() {
	s.check()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.check()
			}
		}
	}()
}

func (s *HealthServer) check() {
	status := healthpb.HealthCheckResponse_SERVING
	if s.probe != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.interval)
		err := s.probe(ctx)
		cancel()
		if err != nil {
			logger.Warn("Readiness probe failed", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus(ServiceName, status)
	s.health.SetServingStatus("", status)
}

// Stop ends the probe loop and gracefully stops the gRPC server.
func (s *HealthServer) Stop() {
	s.once.Do(func() {
		close(s.stop)
		s.wg.Wait()
		s.health.Shutdown()
		s.server.GracefulStop()
	})
}
