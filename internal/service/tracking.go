package service

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"ticketdesk-backoffice/internal/metrics"
	"ticketdesk-backoffice/internal/notify"
)

type trackingService struct {
	ledger       *notify.Ledger
	allowedHosts map[string]bool
	fallback     string
}

// NewTrackingService redirects clicks only to allowedHosts; anything else
// goes to fallback, the public site.
func NewTrackingService(ledger *notify.Ledger, allowedHosts []string, fallback string) TrackingService {
	hosts := make(map[string]bool, len(allowedHosts))
	for _, h := range allowedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hosts[h] = true
		}
	}
	return &trackingService{ledger: ledger, allowedHosts: hosts, fallback: fallback}
}

func (s *trackingService) Open(ctx context.Context, emailID string) bool {
	moved := false
	if emailID != "" {
		moved = s.ledger.MarkOpened(ctx, emailID)
	}
	metrics.TrackingEventsTotal.WithLabelValues("open", strconv.FormatBool(moved)).Inc()
	return moved
}

func (s *trackingService) Click(ctx context.Context, emailID, target string) string {
	moved := false
	if emailID != "" {
		moved = s.ledger.MarkClicked(ctx, emailID)
	}
	metrics.TrackingEventsTotal.WithLabelValues("click", strconv.FormatBool(moved)).Inc()

	if s.allowed(target) {
		return target
	}
	return s.fallback
}

func (s *trackingService) allowed(target string) bool {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	return s.allowedHosts[strings.ToLower(u.Host)]
}
