package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"ticketdesk-backoffice/internal/domain"
	"ticketdesk-backoffice/internal/logger"
	"ticketdesk-backoffice/internal/repository"
)

const deliveryColumns = `id, email_id, recipient, subject, template_kind, status, registration_id, metadata, sent_at, opened_at, clicked_at, created_at, updated_at`

type deliveryRepository struct {
	db *sql.DB
}

var _ repository.DeliveryRepository = (*deliveryRepository)(nil)

func NewDeliveryRepository(db *sql.DB) repository.DeliveryRepository {
	return &deliveryRepository{db: db}
}

func scanDelivery(s scanner) (*domain.DeliveryRecord, error) {
	var (
		rec     domain.DeliveryRecord
		regID   sql.NullString
		meta    []byte
		opened  sql.NullTime
		clicked sql.NullTime
	)
	if err := s.Scan(&rec.ID, &rec.EmailID, &rec.Recipient, &rec.Subject, &rec.TemplateKind, &rec.Status,
		&regID, &meta, &rec.SentAt, &opened, &clicked, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	if regID.Valid {
		rec.RegistrationID = &regID.String
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &rec.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode delivery metadata: %w", err)
		}
	}
	rec.OpenedAt = nullTime(opened)
	rec.ClickedAt = nullTime(clicked)
	return &rec, nil
}

func (r *deliveryRepository) Create(ctx context.Context, rec *domain.DeliveryRecord) error {
	logger.EnterMethod("deliveryRepository.Create", "emailID", rec.EmailID, "status", rec.Status)

	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		logger.ExitMethodWithError("deliveryRepository.Create", err, "reason", "failed to marshal metadata")
		return err
	}
	if rec.SentAt.IsZero() {
		rec.SentAt = time.Now().UTC()
	}

	query := `INSERT INTO email_deliveries (email_id, recipient, subject, template_kind, status, registration_id, metadata, sent_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at, updated_at`
	logger.DatabaseCall("INSERT", "email_deliveries", "emailID", rec.EmailID)
	err = r.db.QueryRowContext(ctx, query, rec.EmailID, rec.Recipient, rec.Subject, rec.TemplateKind, rec.Status,
		rec.RegistrationID, meta, rec.SentAt).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	logger.DatabaseResult("INSERT", 1, err, "deliveryID", rec.ID)

	if err != nil {
		logger.ExitMethodWithError("deliveryRepository.Create", err, "emailID", rec.EmailID)
	} else {
		logger.ExitMethod("deliveryRepository.Create", "deliveryID", rec.ID)
	}
	return err
}

func (r *deliveryRepository) GetByEmailID(ctx context.Context, emailID string) (*domain.DeliveryRecord, error) {
	query := `SELECT ` + deliveryColumns + ` FROM email_deliveries WHERE email_id = $1`
	rec, err := scanDelivery(r.db.QueryRowContext(ctx, query, emailID))
	if err != nil {
		return nil, mapLookupErr(err)
	}
	return rec, nil
}

func (r *deliveryRepository) AdvanceStatus(ctx context.Context, emailID string, status domain.DeliveryStatus, at time.Time) (bool, error) {
	var set string
	switch status {
	case domain.DeliveryStatusOpened:
		set = `status = 'opened', opened_at = $1`
	case domain.DeliveryStatusClicked:
		// A click implies the message was opened even if the pixel was blocked.
		set = `status = 'clicked', clicked_at = $1, opened_at = COALESCE(opened_at, $1)`
	default:
		return false, fmt.Errorf("delivery status %q is not a tracking status", status)
	}

	sources := domain.AdvanceSources(status)
	from := make([]string, len(sources))
	for i, s := range sources {
		from[i] = string(s)
	}

	query := `UPDATE email_deliveries SET ` + set + `, updated_at = now() WHERE email_id = $2 AND status = ANY($3)`
	logger.DatabaseCall("UPDATE", "email_deliveries", "emailID", emailID, "status", status)
	result, err := r.db.ExecContext(ctx, query, at, emailID, pq.Array(from))
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err)
		return false, err
	}
	rows, err := result.RowsAffected()
	logger.DatabaseResult("UPDATE", rows, err)
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *deliveryRepository) ListByRegistration(ctx context.Context, registrationID string) ([]domain.DeliveryRecord, error) {
	query := `SELECT ` + deliveryColumns + ` FROM email_deliveries WHERE registration_id = $1 ORDER BY sent_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, registrationID)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	defer rows.Close()

	recs := []domain.DeliveryRecord{}
	for rows.Next() {
		rec, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

func (r *deliveryRepository) TemplateStats(ctx context.Context) ([]domain.TemplateStats, error) {
	query := `SELECT template_kind,
	                 count(*),
	                 count(*) FILTER (WHERE status <> 'failed'),
	                 count(*) FILTER (WHERE status = 'failed'),
	                 count(*) FILTER (WHERE opened_at IS NOT NULL),
	                 count(*) FILTER (WHERE clicked_at IS NOT NULL)
	          FROM email_deliveries GROUP BY template_kind ORDER BY template_kind`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []domain.TemplateStats
	for rows.Next() {
		var ts domain.TemplateStats
		if err := rows.Scan(&ts.TemplateKind, &ts.Total, &ts.Sent, &ts.Failed, &ts.Opened, &ts.Clicked); err != nil {
			return nil, err
		}
		ts.ComputeRates()
		stats = append(stats, ts)
	}
	return stats, rows.Err()
}
