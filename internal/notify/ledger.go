package notify

import (
	"context"
	"time"

	"ticketdesk-backoffice/internal/domain"
	"ticketdesk-backoffice/internal/logger"
	"ticketdesk-backoffice/internal/metrics"
	"ticketdesk-backoffice/internal/repository"
)

// Ledger records send attempts and tracking updates. Write failures are
// logged and swallowed: they never fail the caller's operation.
type Ledger struct {
	repo repository.DeliveryRepository
	now  func() time.Time
}

func NewLedger(repo repository.DeliveryRepository) *Ledger {
	return &Ledger{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Record persists rec and reports whether the write succeeded.
func (l *Ledger) Record(ctx context.Context, rec *domain.DeliveryRecord) bool {
	if err := l.repo.Create(ctx, rec); err != nil {
		metrics.TelemetryDroppedTotal.Inc()
		logger.TelemetryDropped("ledger.record", err, "email_id", rec.EmailID, "status", rec.Status, "template", rec.TemplateKind)
		return false
	}
	return true
}

// MarkOpened moves a sent record to opened. It reports whether the record moved.
func (l *Ledger) MarkOpened(ctx context.Context, emailID string) bool {
	return l.advance(ctx, emailID, domain.DeliveryStatusOpened)
}

// MarkClicked moves a sent or opened record to clicked.
func (l *Ledger) MarkClicked(ctx context.Context, emailID string) bool {
	return l.advance(ctx, emailID, domain.DeliveryStatusClicked)
}

func (l *Ledger) advance(ctx context.Context, emailID string, status domain.DeliveryStatus) bool {
	moved, err := l.repo.AdvanceStatus(ctx, emailID, status, l.now())
	if err != nil {
		metrics.TelemetryDroppedTotal.Inc()
		logger.TelemetryDropped("ledger.update_status", err, "email_id", emailID, "status", status)
		return false
	}
	return moved
}
