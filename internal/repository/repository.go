package repository

import (
	"context"
	"errors"
	"time"

	"ticketdesk-backoffice/internal/domain"
)

// ErrNotFound is returned when a lookup by id matches no row.
var ErrNotFound = errors.New("not found")

type RegistrationRepository interface {
	Create(ctx context.Context, reg *domain.Registration) error
	GetByID(ctx context.Context, id string) (*domain.Registration, error)
	FindByEmail(ctx context.Context, email string, mode domain.MatchMode) ([]domain.Registration, error)
	// UpdateStatus stamps updated_at, and last_notification_sent when non-nil.
	UpdateStatus(ctx context.Context, id string, status domain.RegistrationStatus, lastNotificationSent *time.Time) error
	UpdateNotes(ctx context.Context, id, notes string) error
	Delete(ctx context.Context, id string) error
	ListFiltered(ctx context.Context, filter domain.RegistrationFilter) ([]domain.Registration, int, error)
	ListAll(ctx context.Context) ([]domain.Registration, error)

	// Reporting. A nil since means all time.
	CountByStatus(ctx context.Context, since *time.Time) (domain.RegistrationStats, error)
	DailyStatusCounts(ctx context.Context, since time.Time) ([]domain.DailyStatusCount, error)
	ListPreferences(ctx context.Context, since *time.Time) ([]string, error)
}

type DeliveryRepository interface {
	Create(ctx context.Context, rec *domain.DeliveryRecord) error
	GetByEmailID(ctx context.Context, emailID string) (*domain.DeliveryRecord, error)
	// AdvanceStatus moves a record to status when domain.CanAdvance allows it.
	// It reports false, without error, when the record is missing or already past it.
	AdvanceStatus(ctx context.Context, emailID string, status domain.DeliveryStatus, at time.Time) (bool, error)
	ListByRegistration(ctx context.Context, registrationID string) ([]domain.DeliveryRecord, error)
	TemplateStats(ctx context.Context) ([]domain.TemplateStats, error)
}
