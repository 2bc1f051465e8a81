package jobs

import (
	"time"

	"ticketdesk-backoffice/internal/config"
	"ticketdesk-backoffice/internal/logger"
	"ticketdesk-backoffice/internal/notify"
	"ticketdesk-backoffice/internal/repository"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	registrations repository.RegistrationRepository
	renderer      *notify.Renderer
	sender        notify.Sender
	config        *config.Config
	now           func() time.Time
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(registrations repository.RegistrationRepository, renderer *notify.Renderer, sender notify.Sender, cfg *config.Config) *JobRunner {
	return &JobRunner{
		registrations: registrations,
		renderer:      renderer,
		sender:        sender,
		config:        cfg,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Config returns the configuration the jobs were built with.
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
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}
