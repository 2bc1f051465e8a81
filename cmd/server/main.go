package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	grpcapi "ticketdesk-backoffice/internal/api/grpc"
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
	withScheduler := flag.Bool("scheduler", true, "Run the digest scheduler in this process")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath, ".env")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting TicketDesk back-office...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "grpc_address", cfg.GetGRPCAddress())
	logger.Info("Email configuration", "provider", cfg.Email.Provider, "from", cfg.Email.FromAddress)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Repositories
	var st stores
	if cfg.UsesMemoryStore() {
		logger.Warn("Using in-memory store, data is lost on restart")
		st = memoryStores()
	} else {
		logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database)
		db, err := postgres.Open(ctx, cfg.GetDatabaseConnectionString())
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		logger.Info("Database connection established")
		st = postgresStores(db)
	}

	// Initialize Email
	provider, err := notify.NewProvider(cfg.Email)
	if err != nil {
		log.Fatalf("Failed to initialize email provider: %v", err)
	}
	if !provider.Configured() {
		logger.Warn("Email provider credential missing, notifications will fail fast", "provider", provider.Name())
	}

	// Initialize Services and Router
	a, err := buildApp(cfg, st, provider, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if addr := cfg.GetGRPCAddress(); addr != "" {
		healthSrv := grpcapi.NewHealthServer(st.ping, 15*time.Second)
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			logger.Error("Failed to listen", "error", err, "address", addr)
			log.Fatalf("Failed to listen: %v", err)
		}
		g.Go(func() error {
			logger.Info("gRPC health server listening", "address", addr)
			return healthSrv.Server().Serve(lis)
		})
		g.Go(func() error {
			healthSrv.Watch(gctx)
			healthSrv.Server().GracefulStop()
			return nil
		})
	}

	if *withScheduler {
		jobRunner := jobs.NewJobRunner(st.registrations, a.renderer, a.gateway, cfg)
		cronScheduler, err := scheduler.NewScheduler(jobRunner)
		if err != nil {
			log.Fatalf("Failed to initialize scheduler: %v", err)
		}
		cronScheduler.Start()
		defer cronScheduler.Stop()
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownSeconds)*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", "error", err)
		log.Fatalf("Server error: %v", err)
	}
	logger.Info("Server stopped. Goodbye!")
}
