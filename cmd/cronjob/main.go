package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ticketdesk-backoffice/internal/config"
	"ticketdesk-backoffice/internal/jobs"
	"ticketdesk-backoffice/internal/logger"
	"ticketdesk-backoffice/internal/notify"
	"ticketdesk-backoffice/internal/repository/postgres"
	"ticketdesk-backoffice/internal/scheduler"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'pending-digest')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath, ".env")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting TicketDesk Cronjob Runner...", "log_level", cfg.Log.Level)

	if cfg.UsesMemoryStore() {
		log.Fatalf("The cronjob runner needs a PostgreSQL database; %q is only usable by the server", config.MemoryStoreURL)
	}

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := postgres.Open(context.Background(), cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Email
	provider, err := notify.NewProvider(cfg.Email)
	if err != nil {
		log.Fatalf("Failed to initialize email provider: %v", err)
	}
	renderer, err := notify.NewRenderer()
	if err != nil {
		log.Fatalf("Failed to parse email templates: %v", err)
	}
	gateway := notify.NewGateway(provider, notify.NewLedger(store.Deliveries), notify.GatewayConfig{
		FromAddress:   cfg.Email.FromAddress,
		FromName:      cfg.Email.FromName,
		PublicBaseURL: cfg.Site.PublicBaseURL,
	})

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(store.Registrations, renderer, gateway, cfg)

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
		log.Fatalf("Failed to initialize scheduler: %v", err)
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
	case "pending-digest":
		jobRunner.SendPendingDigest()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - pending-digest\n")
		os.Exit(1)
	}
}
