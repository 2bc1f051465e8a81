package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ticketdesk",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status code.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ticketdesk",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	EmailsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ticketdesk",
		Name:      "emails_total",
		Help:      "Notification send attempts by template and outcome (sent|failed|not_configured).",
	}, []string{"template", "outcome"})

	TrackingEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ticketdesk",
		Name:      "tracking_events_total",
		Help:      "Open/click tracking hits by event and whether the ledger moved.",
	}, []string{"event", "applied"})

	RegistrationTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ticketdesk",
		Name:      "registration_transitions_total",
		Help:      "Registration status changes by target status and email outcome.",
	}, []string{"to", "email"})

	TelemetryDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ticketdesk",
		Name:      "telemetry_writes_dropped_total",
		Help:      "Ledger writes that failed and were swallowed.",
	})
)

var (
	registerOnce sync.Once
	registerErr  error
)

// Register adds every collector to reg (prometheus.DefaultRegisterer when nil)
// and returns the /metrics handler. Later calls return the same result.
func Register(reg prometheus.Registerer, gatherer prometheus.Gatherer) (http.Handler, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	registerOnce.Do(func() {
		for _, c := range []prometheus.Collector{
			HTTPRequestsTotal,
			HTTPRequestDuration,
			EmailsTotal,
			TrackingEventsTotal,
			RegistrationTransitionsTotal,
			TelemetryDroppedTotal,
		} {
			if err := reg.Register(c); err != nil {
				registerErr = err
				return
			}
		}
		if reg != prometheus.DefaultRegisterer {
			_ = reg.Register(collectors.NewGoCollector())
		}
	})
	if registerErr != nil {
		return nil, registerErr
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}), nil
}
