package service

import (
	"context"
	"time"

	"ticketdesk-backoffice/internal/domain"
)

type ApprovalService interface {
	// SetStatus moves a registration to target and sends the matching notification.
	SetStatus(ctx context.Context, id string, target domain.RegistrationStatus) StatusChangeResult
	Approve(ctx context.Context, id string) StatusChangeResult
	Reject(ctx context.Context, id, reason string) StatusChangeResult
	ResendConfirmation(ctx context.Context, id string) StatusChangeResult
}

type RegistrationService interface {
	Submit(ctx context.Context, req SubmitRequest) (*domain.Registration, error)
	Get(ctx context.Context, id string) (*domain.Registration, error)
	Lookup(ctx context.Context, email string, mode domain.MatchMode) ([]domain.Registration, error)
	List(ctx context.Context, filter domain.RegistrationFilter) (*RegistrationPage, error)
	UpdateNotes(ctx context.Context, id, notes string) error
	Delete(ctx context.Context, id string) error
	Deliveries(ctx context.Context, id string) ([]domain.DeliveryRecord, error)
	Export(ctx context.Context, format ExportFormat) ([]byte, string, error)
}

type TrackingService interface {
	Open(ctx context.Context, emailID string) bool
	// Click records the click and returns where to redirect.
	Click(ctx context.Context, emailID, target string) string
}

type ReportingService interface {
	Overview(ctx context.Context, days int) (*Overview, error)
	EmailStats(ctx context.Context) ([]domain.TemplateStats, error)
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (string, time.Time, error) // access token, expiry
}
