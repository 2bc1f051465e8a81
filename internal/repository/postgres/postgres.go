package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ticketdesk-backoffice/internal/repository"

	_ "github.com/lib/pq"
)

// Store groups the repositories sharing one connection pool. Both declare
// Create, so they are named fields.
type Store struct {
	db            *sql.DB
	Registrations repository.RegistrationRepository
	Deliveries    repository.DeliveryRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:            db,
		Registrations: NewRegistrationRepository(db),
		Deliveries:    NewDeliveryRepository(db),
	}
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
