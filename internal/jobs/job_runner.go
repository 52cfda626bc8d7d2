package jobs

import (
	"time"

	"rentchain-backend/internal/config"
	"rentchain-backend/internal/logger"
	"rentchain-backend/internal/metrics"
	"rentchain-backend/internal/repository"
	"rentchain-backend/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	repos    *Repositories
	notifier service.NotificationService
	metrics  *metrics.Metrics
	config   *config.Config
	now      func() time.Time
}

// Repositories holds the persistence dependencies needed by jobs
type Repositories struct {
	Agreements    repository.AgreementRepository
	Notarizations repository.NotarizationRepository
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(repos *Repositories, notifier service.NotificationService, m *metrics.Metrics, cfg *config.Config) *JobRunner {
	return &JobRunner{
		repos:    repos,
		notifier: notifier,
		metrics:  m,
		config:   cfg,
		now:      time.Now,
	}
}

// Config returns the configuration the runner was built with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	start := time.Now()
	jobFunc()
	logger.Info("Job completed", "job", jobName, "duration", time.Since(start))
}

// RunAll runs every job once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.ExpireAgreements()
	jr.ReportStaleNotarizations()
}
