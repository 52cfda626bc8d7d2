package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	api "rentchain-backend/internal/api/grpc"
	httpapi "rentchain-backend/internal/api/http"
	"rentchain-backend/internal/config"
	"rentchain-backend/internal/ledger"
	"rentchain-backend/internal/logger"
	"rentchain-backend/internal/metrics"
	"rentchain-backend/internal/repository/postgres"
	"rentchain-backend/internal/security"
	"rentchain-backend/internal/service"
	"rentchain-backend/internal/storage"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	migrate := flag.Bool("migrate", true, "Apply the database schema on startup")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting RentChain Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "http", cfg.GetHTTPAddress(), "grpc", cfg.GetGRPCAddress(), "time_zone", cfg.Location().String())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Database
	db, err := postgres.Open(ctx, cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	if *migrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
	}

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Initialize Content Store
	contentStore, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Error("Failed to initialize content store", "type", cfg.Storage.Type, "error", err)
		log.Fatalf("Failed to initialize content store: %v", err)
	}
	logger.Info("Content store ready", "type", cfg.Storage.Type)

	// Initialize Ledger
	notary, err := ledger.Dial(ctx, cfg.Ledger)
	if err != nil {
		logger.Error("Failed to connect to ledger", "error", err)
		log.Fatalf("Failed to connect to ledger: %v", err)
	}
	defer notary.Close()
	logger.Info("Ledger client ready", "contract", cfg.Ledger.ContractAddress, "sender", notary.Address().Hex())

	// Initialize Services
	pushSvc, err := service.NewPushService(ctx, cfg.Push)
	if err != nil {
		logger.Error("Failed to initialize push service", "error", err)
		log.Fatalf("Failed to initialize push service: %v", err)
	}
	emailSvc := service.NewEmailService(cfg.Email)
	noteSvc := service.NewNotificationService(store.NotificationRepository, pushSvc)
	userSvc := service.NewUserService(store.UserRepository)
	offerSvc := service.NewOfferService(
		store.OfferRepository,
		store.PropertyRepository,
		store.UserRepository,
		noteSvc,
		emailSvc,
		m,
	)
	agreementSvc := service.NewAgreementService(
		store.OfferRepository,
		store.AgreementRepository,
		store.NotarizationRepository,
		contentStore,
		notary,
		noteSvc,
		emailSvc,
		m,
		service.AgreementOptions{
			RentDecimals: cfg.Ledger.RentDecimals,
			Location:     cfg.Location(),
			StaleAfter:   cfg.StaleNotarizationAfter(),
		},
	)

	// Initialize HTTP API
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)
	routerCfg := httpapi.RouterConfig{
		Users:          userSvc,
		Offers:         offerSvc,
		Agreements:     agreementSvc,
		Notifications:  noteSvc,
		Store:          contentStore,
		TokenManager:   tokenManager,
		Ping:           store.Ping,
		GatewayURL:     cfg.Storage.GatewayURL,
		MaxUploadBytes: cfg.Storage.MaxFileSizeMB << 20,
	}
	if cfg.Metrics.Enabled {
		routerCfg.Gatherer = registry
		routerCfg.MetricsPath = cfg.Metrics.Path
	}
	httpServer := &http.Server{
		Addr:              cfg.GetHTTPAddress(),
		Handler:           httpapi.NewRouter(routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Set up gRPC health server
	lis, err := net.Listen("tcp", cfg.GetGRPCAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetGRPCAddress())
		log.Fatalf("Failed to listen: %v", err)
	}
	healthServer := api.NewHealthServer(store.Ping, 15*time.Second)
	healthServer.Start()

	errCh := make(chan error, 2)
	go func() {
		logger.Info("gRPC health server listening", "address", cfg.GetGRPCAddress())
		if err := healthServer.Server().Serve(lis); err != nil {
			errCh <- err
		}
	}()
	go func() {
		logger.Info("HTTP server listening", "address", cfg.GetHTTPAddress())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		logger.Error("Server error", "error", err)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err)
	}
	healthServer.Stop()
	logger.Info("RentChain Backend stopped")
}
