package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"rentchain-backend/internal/config"
	"rentchain-backend/internal/jobs"
	"rentchain-backend/internal/logger"
	"rentchain-backend/internal/metrics"
	"rentchain-backend/internal/repository/postgres"
	"rentchain-backend/internal/scheduler"
	"rentchain-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit ('expire-agreements', 'report-stale-notarizations', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting RentChain Cronjob Runner...", "log_level", cfg.Log.Level, "time_zone", cfg.Location().String())

	ctx := context.Background()

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := postgres.Open(ctx, cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Services
	pushSvc, err := service.NewPushService(ctx, cfg.Push)
	if err != nil {
		logger.Error("Failed to initialize push service", "error", err)
		log.Fatalf("Failed to initialize push service: %v", err)
	}
	noteSvc := service.NewNotificationService(store.NotificationRepository, pushSvc)

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(
		&jobs.Repositories{
			Agreements:    store.AgreementRepository,
			Notarizations: store.NotarizationRepository,
		},
		noteSvc,
		metrics.New(prometheus.NewRegistry()),
		cfg,
	)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		runJobOnce(jobRunner, *runOnce)
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		logger.Error("Failed to register cron jobs", "error", err)
		log.Fatalf("Failed to register cron jobs: %v", err)
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and exits
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) {
	switch jobName {
	case "expire-agreements":
		jobRunner.ExpireAgreements()
	case "report-stale-notarizations":
		jobRunner.ReportStaleNotarizations()
	case "all":
		jobRunner.RunAll()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - expire-agreements\n")
		fmt.Printf("  - report-stale-notarizations\n")
		fmt.Printf("  - all\n")
		os.Exit(1)
	}
}
