package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"ticketdesk-backoffice/internal/notify"
	"ticketdesk-backoffice/internal/ratelimit"
	"ticketdesk-backoffice/internal/security"
	"ticketdesk-backoffice/internal/service"
)

// Dependencies are the services the router dispatches to.
type Dependencies struct {
	Registrations  service.RegistrationService
	Approvals      service.ApprovalService
	Tracking       service.TrackingService
	Reporting      service.ReportingService
	Auth           service.AuthService
	Tokens         security.TokenManager
	Limiter        ratelimit.Limiter // public submission; nil disables
	TrustedProxies TrustedProxies    // may set X-Forwarded-For; empty keys the limiter on the peer
	Metrics        http.Handler      // nil disables /metrics
	Ping           func(ctx context.Context) error
}

// NewRouter registers every route by name; the auth middleware looks the
// name up in config.EndpointSecurityConfig.
func NewRouter(d Dependencies) *mux.Router {
	regs := NewRegistrationHandler(d.Registrations, d.Approvals)
	tracking := NewTrackingHandler(d.Tracking)
	reports := NewReportHandler(d.Reporting)
	auth := NewAuthHandler(d.Auth)

	r := mux.NewRouter()
	r.Use(requestLogging, NewAuthMiddleware(d.Tokens).Handler)

	r.HandleFunc("/healthz", healthHandler(d.Ping)).Methods(http.MethodGet).Name("health")
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics).Methods(http.MethodGet).Name("metrics")
	}

	r.HandleFunc(notify.TrackOpenPath+"{emailId}", tracking.Open).Methods(http.MethodGet).Name("track_open")
	r.HandleFunc(notify.TrackClickPath+"{emailId}", tracking.Click).Methods(http.MethodGet).Name("track_click")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/registrations", rateLimited(regs.Submit, d.Limiter, d.TrustedProxies)).Methods(http.MethodPost).Name("submit_registration")
	api.HandleFunc("/auth/login", auth.Login).Methods(http.MethodPost).Name("login")

	admin := api.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/registrations", regs.List).Methods(http.MethodGet).Name("list_registrations")
	admin.HandleFunc("/registrations/lookup", regs.Lookup).Methods(http.MethodGet).Name("lookup_registrations")
	admin.HandleFunc("/registrations/{id}", regs.Get).Methods(http.MethodGet).Name("get_registration")
	admin.HandleFunc("/registrations/{id}", regs.Delete).Methods(http.MethodDelete).Name("delete_registration")
	admin.HandleFunc("/registrations/{id}/approve", regs.Approve).Methods(http.MethodPost).Name("approve_registration")
	admin.HandleFunc("/registrations/{id}/reject", regs.Reject).Methods(http.MethodPost).Name("reject_registration")
	admin.HandleFunc("/registrations/{id}/resend", regs.Resend).Methods(http.MethodPost).Name("resend_confirmation")
	admin.HandleFunc("/registrations/{id}/notes", regs.UpdateNotes).Methods(http.MethodPut).Name("update_notes")
	admin.HandleFunc("/registrations/{id}/deliveries", regs.Deliveries).Methods(http.MethodGet).Name("list_deliveries")
	admin.HandleFunc("/export", regs.Export).Methods(http.MethodGet).Name("export_registrations")
	admin.HandleFunc("/stats", reports.Stats).Methods(http.MethodGet).Name("stats")
	admin.HandleFunc("/email-stats", reports.EmailStats).Methods(http.MethodGet).Name("email_stats")

	return r
}

func healthHandler(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
