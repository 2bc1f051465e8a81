package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	httpapi "ticketdesk-backoffice/internal/api/http"
	"ticketdesk-backoffice/internal/config"
	"ticketdesk-backoffice/internal/metrics"
	"ticketdesk-backoffice/internal/notify"
	"ticketdesk-backoffice/internal/ratelimit"
	"ticketdesk-backoffice/internal/repository"
	"ticketdesk-backoffice/internal/repository/memory"
	"ticketdesk-backoffice/internal/repository/postgres"
	"ticketdesk-backoffice/internal/security"
	"ticketdesk-backoffice/internal/service"
)

// stores is the persistence the services are built on.
type stores struct {
	registrations repository.RegistrationRepository
	deliveries    repository.DeliveryRepository
	ping          func(ctx context.Context) error // nil for the in-memory store
}

func memoryStores() stores {
	mem := memory.NewStore()
	return stores{registrations: mem.Registrations(), deliveries: mem.Deliveries()}
}

func postgresStores(db *sql.DB) stores {
	store := postgres.NewStore(db)
	return stores{registrations: store.Registrations, deliveries: store.Deliveries, ping: store.Ping}
}

// app holds everything main runs.
type app struct {
	stores   stores
	renderer *notify.Renderer
	gateway  *notify.Gateway
	router   http.Handler
}

func buildApp(cfg *config.Config, st stores, provider notify.Provider, reg prometheus.Registerer, gatherer prometheus.Gatherer) (*app, error) {
	renderer, err := notify.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}
	trusted, err := httpapi.ParseTrustedProxies(cfg.RateLimit.TrustedProxies)
	if err != nil {
		return nil, err
	}
	metricsHandler, err := metrics.Register(reg, gatherer)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	ledger := notify.NewLedger(st.deliveries)
	gateway := notify.NewGateway(provider, ledger, notify.GatewayConfig{
		FromAddress:   cfg.Email.FromAddress,
		FromName:      cfg.Email.FromName,
		PublicBaseURL: cfg.Site.PublicBaseURL,
	})

	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)

	site := service.ApprovalConfig{
		SiteName: cfg.Site.Name,
		SiteURL:  cfg.Site.PublicBaseURL,
		LoginURL: cfg.LoginURL(),
	}

	router := httpapi.NewRouter(httpapi.Dependencies{
		Registrations:  service.NewRegistrationService(st.registrations, st.deliveries, renderer, gateway, site),
		Approvals:      service.NewApprovalService(st.registrations, renderer, gateway, site),
		Tracking:       service.NewTrackingService(ledger, cfg.Tracking.AllowedRedirectHosts, cfg.Site.PublicBaseURL),
		Reporting:      service.NewReportingService(st.registrations, st.deliveries),
		Auth:           service.NewAuthService(cfg.Operators, tokenManager),
		Tokens:         tokenManager,
		Limiter:        ratelimit.NewMemoryLimiter(cfg.RateLimit.Submissions, time.Duration(cfg.RateLimit.WindowSeconds)*time.Second),
		TrustedProxies: trusted,
		Metrics:        metricsHandler,
		Ping:           st.ping,
	})

	return &app{stores: st, renderer: renderer, gateway: gateway, router: router}, nil
}
