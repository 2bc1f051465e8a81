package notify

import (
	"context"
	"errors"
	"fmt"

	"ticketdesk-backoffice/internal/config"
)

// ErrNotConfigured is returned by Gateway callers when the provider has no credential.
var ErrNotConfigured = errors.New("email provider is not configured")

// Message is what a Provider delivers: one recipient, one HTML body.
type Message struct {
	FromAddress string
	FromName    string
	To          string
	Subject     string
	HTML        string
}

// Provider is a transactional email API.
type Provider interface {
	Name() string
	// Configured reports whether the credential needed to send is present.
	Configured() bool
	// Send delivers msg and returns the provider's message id.
	Send(ctx context.Context, msg Message) (string, error)
}

// NewProvider builds the provider selected by cfg.Provider. A missing
// credential is not an error here; the Gateway reports it per send.
func NewProvider(cfg config.EmailConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "sendgrid":
		return NewSendGridProvider(cfg.SendGridAPIKey), nil
	case "smtp":
		return NewSMTPProvider(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password), nil
	}
	return nil, fmt.Errorf("unsupported email provider: %q", cfg.Provider)
}
