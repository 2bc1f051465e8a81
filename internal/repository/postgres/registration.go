package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"ticketdesk-backoffice/internal/domain"
	"ticketdesk-backoffice/internal/logger"
	"ticketdesk-backoffice/internal/repository"
)

const registrationColumns = `id, email, full_name, phone_number, preferences, notes, status, created_at, updated_at, last_notification_sent`

// invalid_text_representation: an id that is not a uuid cannot match a row.
const pqInvalidTextRepresentation = "22P02"

type registrationRepository struct {
	db *sql.DB
}

var _ repository.RegistrationRepository = (*registrationRepository)(nil)

func NewRegistrationRepository(db *sql.DB) repository.RegistrationRepository {
	return &registrationRepository{db: db}
}

func scanRegistration(s scanner) (*domain.Registration, error) {
	var (
		reg      domain.Registration
		lastSent sql.NullTime
	)
	if err := s.Scan(&reg.ID, &reg.Email, &reg.FullName, &reg.PhoneNumber, &reg.Preferences, &reg.Notes,
		&reg.Status, &reg.CreatedAt, &reg.UpdatedAt, &lastSent); err != nil {
		return nil, err
	}
	reg.LastNotificationSent = nullTime(lastSent)
	return &reg, nil
}

// mapLookupErr folds "no rows" and malformed ids into ErrNotFound.
func mapLookupErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqInvalidTextRepresentation {
		return repository.ErrNotFound
	}
	return err
}

func (r *registrationRepository) Create(ctx context.Context, reg *domain.Registration) error {
	if reg.Status == "" {
		reg.Status = domain.RegistrationStatusPending
	}
	query := `INSERT INTO registrations (email, full_name, phone_number, preferences, notes, status)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at, updated_at`
	logger.DatabaseCall("INSERT", "registrations", "email", reg.Email)
	err := r.db.QueryRowContext(ctx, query, reg.Email, reg.FullName, reg.PhoneNumber, reg.Preferences, reg.Notes, reg.Status).
		Scan(&reg.ID, &reg.CreatedAt, &reg.UpdatedAt)
	logger.DatabaseResult("INSERT", 1, err, "registrationID", reg.ID)
	return err
}

func (r *registrationRepository) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	reg, err := scanRegistration(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapLookupErr(err)
	}
	return reg, nil
}

func (r *registrationRepository) FindByEmail(ctx context.Context, email string, mode domain.MatchMode) ([]domain.Registration, error) {
	where := `email = $1`
	if mode == domain.MatchCaseInsensitive {
		where = `lower(email) = lower($1)`
	}
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE ` + where + ` ORDER BY created_at`
	return r.queryRegistrations(ctx, query, email)
}

func (r *registrationRepository) UpdateStatus(ctx context.Context, id string, status domain.RegistrationStatus, lastNotificationSent *time.Time) error {
	var (
		query string
		args  []any
	)
	if lastNotificationSent != nil {
		query = `UPDATE registrations SET status = $1, updated_at = now(), last_notification_sent = $2 WHERE id = $3`
		args = []any{status, *lastNotificationSent, id}
	} else {
		query = `UPDATE registrations SET status = $1, updated_at = now() WHERE id = $2`
		args = []any{status, id}
	}
	return r.execByID(ctx, "UPDATE", query, args...)
}

func (r *registrationRepository) UpdateNotes(ctx context.Context, id, notes string) error {
	query := `UPDATE registrations SET notes = $1, updated_at = now() WHERE id = $2`
	return r.execByID(ctx, "UPDATE", query, notes, id)
}

func (r *registrationRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM registrations WHERE id = $1`
	return r.execByID(ctx, "DELETE", query, id)
}

func (r *registrationRepository) execByID(ctx context.Context, op, query string, args ...any) error {
	logger.DatabaseCall(op, "registrations", "args", len(args))
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		err = mapLookupErr(err)
		logger.DatabaseResult(op, 0, err)
		return err
	}
	rows, err := result.RowsAffected()
	logger.DatabaseResult(op, rows, err)
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *registrationRepository) ListFiltered(ctx context.Context, filter domain.RegistrationFilter) ([]domain.Registration, int, error) {
	f := filter.Normalize()

	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Status != "" {
		conds = append(conds, "status = "+arg(f.Status))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := arg("%" + escapeLike(s) + "%")
		conds = append(conds, fmt.Sprintf("(email ILIKE %s OR full_name ILIKE %s OR phone_number ILIKE %s)", p, p, p))
	}
	if p := strings.TrimSpace(f.Preference); p != "" {
		conds = append(conds, "preferences ILIKE "+arg("%"+escapeLike(p)+"%"))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	countQuery := `SELECT count(*) FROM registrations` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	// Sort field is whitelisted by Normalize, so it is safe to interpolate.
	query := fmt.Sprintf(`SELECT %s FROM registrations%s ORDER BY %s %s, id LIMIT %s OFFSET %s`,
		registrationColumns, where, f.SortField, dir, arg(f.PageSize), arg(f.Offset()))
	regs, err := r.queryRegistrations(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return regs, total, nil
}

func (r *registrationRepository) ListAll(ctx context.Context) ([]domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations ORDER BY created_at, id`
	return r.queryRegistrations(ctx, query)
}

func (r *registrationRepository) queryRegistrations(ctx context.Context, query string, args ...any) ([]domain.Registration, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	regs := []domain.Registration{}
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}

func (r *registrationRepository) CountByStatus(ctx context.Context, since *time.Time) (domain.RegistrationStats, error) {
	var stats domain.RegistrationStats
	query := `SELECT status, count(*) FROM registrations GROUP BY status`
	var args []any
	if since != nil {
		query = `SELECT status, count(*) FROM registrations WHERE created_at >= $1 GROUP BY status`
		args = append(args, *since)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status domain.RegistrationStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return stats, err
		}
		stats.Add(status, n)
	}
	return stats, rows.Err()
}

func (r *registrationRepository) DailyStatusCounts(ctx context.Context, since time.Time) ([]domain.DailyStatusCount, error) {
	query := `SELECT date_trunc('day', created_at AT TIME ZONE 'UTC') AS day, status, count(*)
	          FROM registrations WHERE created_at >= $1
	          GROUP BY day, status ORDER BY day`
	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []domain.DailyStatusCount
	for rows.Next() {
		var (
			day    time.Time
			status domain.RegistrationStatus
			n      int
		)
		if err := rows.Scan(&day, &status, &n); err != nil {
			return nil, err
		}
		day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		if len(days) == 0 || !days[len(days)-1].Day.Equal(day) {
			days = append(days, domain.DailyStatusCount{Day: day})
		}
		days[len(days)-1].Add(status, n)
	}
	return days, rows.Err()
}

func (r *registrationRepository) ListPreferences(ctx context.Context, since *time.Time) ([]string, error) {
	query := `SELECT preferences FROM registrations WHERE preferences <> '' ORDER BY created_at, id`
	var args []any
	if since != nil {
		query = `SELECT preferences FROM registrations WHERE preferences <> '' AND created_at >= $1 ORDER BY created_at, id`
		args = append(args, *since)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prefs []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
