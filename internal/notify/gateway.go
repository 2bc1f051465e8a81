package notify

import (
	"context"
	"html"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/segmentio/ksuid"

	"ticketdesk-backoffice/internal/domain"
	"ticketdesk-backoffice/internal/logger"
	"ticketdesk-backoffice/internal/metrics"
)

// Tracking routes served by the HTTP API; the gateway builds URLs against them.
const (
	TrackOpenPath  = "/track/open/"
	TrackClickPath = "/track/click/"
)

// SendRequest is one notification to deliver.
type SendRequest struct {
	To             string
	Subject        string
	HTML           string
	RegistrationID string // optional
	TemplateKind   domain.TemplateKind
}

// SendResult is the definitive outcome of a Send.
type SendResult struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	ProviderID  string `json:"providerId,omitempty"`
	EmailID     string `json:"emailId,omitempty"`
	ConfigError bool   `json:"configError,omitempty"`
	// Recorded is false when no ledger row exists for EmailID: either the
	// configuration fast-fail or a swallowed ledger write failure.
	Recorded bool `json:"-"`
}

// Sender is the gateway surface the workflow depends on.
type Sender interface {
	Send(ctx context.Context, req SendRequest) SendResult
}

type GatewayConfig struct {
	FromAddress   string
	FromName      string
	PublicBaseURL string
}

// Gateway sends rendered notifications through a Provider and records every
// attempt in the Ledger.
type Gateway struct {
	provider Provider
	ledger   *Ledger
	cfg      GatewayConfig

	now     func() time.Time
	emailID func() string
}

func NewGateway(provider Provider, ledger *Ledger, cfg GatewayConfig) *Gateway {
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &Gateway{
		provider: provider,
		ledger:   ledger,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		emailID:  func() string { return ksuid.New().String() },
	}
}

func (g *Gateway) Send(ctx context.Context, req SendRequest) SendResult {
	logger.EnterMethod("Gateway.Send", "to", req.To, "template", req.TemplateKind)

	if g.provider == nil || !g.provider.Configured() {
		metrics.EmailsTotal.WithLabelValues(string(req.TemplateKind), "not_configured").Inc()
		logger.Error("Email provider credential is missing, notification not sent", "to", req.To, "template", req.TemplateKind)
		return SendResult{Success: false, Message: ErrNotConfigured.Error(), ConfigError: true}
	}

	emailID := g.emailID()
	body := g.personalize(req.HTML, emailID, req.To)

	rec := &domain.DeliveryRecord{
		EmailID:      emailID,
		Recipient:    req.To,
		Subject:      req.Subject,
		TemplateKind: req.TemplateKind,
		Metadata:     domain.DeliveryMetadata{Provider: g.provider.Name()},
	}
	if req.RegistrationID != "" {
		id := req.RegistrationID
		rec.RegistrationID = &id
	}

	logger.ExternalServiceCall(g.provider.Name(), "send", "to", req.To, "emailID", emailID)
	providerID, err := g.provider.Send(ctx, Message{
		FromAddress: g.cfg.FromAddress,
		FromName:    g.cfg.FromName,
		To:          req.To,
		Subject:     req.Subject,
		HTML:        body,
	})
	logger.ExternalServiceResult(g.provider.Name(), "send", err, "emailID", emailID)
	rec.SentAt = g.now()

	if err != nil {
		rec.Status = domain.DeliveryStatusFailed
		rec.Metadata.ErrorMessage = err.Error()
		recorded := g.ledger.Record(ctx, rec)
		metrics.EmailsTotal.WithLabelValues(string(req.TemplateKind), "failed").Inc()
		logger.ExitMethodWithError("Gateway.Send", err, "emailID", emailID)
		return SendResult{Success: false, Message: err.Error(), EmailID: emailID, Recorded: recorded}
	}

	rec.Status = domain.DeliveryStatusSent
	rec.Metadata.ProviderID = providerID
	recorded := g.ledger.Record(ctx, rec)
	metrics.EmailsTotal.WithLabelValues(string(req.TemplateKind), "sent").Inc()
	logger.ExitMethod("Gateway.Send", "emailID", emailID, "providerID", providerID)
	return SendResult{
		Success:    true,
		Message:    "Email sent successfully",
		ProviderID: providerID,
		EmailID:    emailID,
		Recorded:   recorded,
	}
}

// TrackingPixelURL is the open-tracking URL for emailID.
func (g *Gateway) TrackingPixelURL(emailID string) string {
	return g.cfg.PublicBaseURL + TrackOpenPath + url.PathEscape(emailID)
}

// ClickURL wraps target in the click-tracking redirect for emailID.
func (g *Gateway) ClickURL(emailID, target string) string {
	return g.cfg.PublicBaseURL + TrackClickPath + url.PathEscape(emailID) + "?url=" + url.QueryEscape(target)
}

var hrefPattern = regexp.MustCompile(`href="(https?://[^"]+)"`)

// personalize resolves the renderer placeholders and routes links through
// click tracking. The unsubscribe link is left untouched.
func (g *Gateway) personalize(body, emailID, to string) string {
	body = strings.ReplaceAll(body, PlaceholderTrackingPixel, g.TrackingPixelURL(emailID))

	body = hrefPattern.ReplaceAllStringFunc(body, func(m string) string {
		raw := hrefPattern.FindStringSubmatch(m)[1]
		target := html.UnescapeString(raw)
		if u, err := url.Parse(target); err == nil && strings.HasSuffix(u.Path, UnsubscribePath) {
			return m
		}
		return `href="` + html.EscapeString(g.ClickURL(emailID, target)) + `"`
	})

	body = strings.ReplaceAll(body, "email="+PlaceholderRecipientEmail, "email="+url.QueryEscape(to))
	return strings.ReplaceAll(body, PlaceholderRecipientEmail, html.EscapeString(to))
}
