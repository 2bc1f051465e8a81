package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ticketdesk-backoffice/internal/domain"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportJSON ExportFormat = "json"
)

func (f ExportFormat) Valid() bool {
	return f == ExportCSV || f == ExportJSON
}

var exportColumns = []string{
	"id", "email", "full_name", "phone_number", "preferences", "notes",
	"status", "created_at", "updated_at", "last_notification_sent",
}

type exportRow struct {
	ID                   string  `json:"id"`
	Email                string  `json:"email"`
	FullName             string  `json:"full_name"`
	PhoneNumber          string  `json:"phone_number"`
	Preferences          string  `json:"preferences"`
	Notes                string  `json:"notes"`
	Status               string  `json:"status"`
	CreatedAt            string  `json:"created_at"`
	UpdatedAt            string  `json:"updated_at"`
	LastNotificationSent *string `json:"last_notification_sent"`
}

func toExportRow(r domain.Registration) exportRow {
	row := exportRow{
		ID:          r.ID,
		Email:       r.Email,
		FullName:    r.FullName,
		PhoneNumber: r.PhoneNumber,
		Preferences: r.Preferences,
		Notes:       r.Notes,
		Status:      string(r.Status),
		CreatedAt:   r.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   r.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if r.LastNotificationSent != nil {
		s := r.LastNotificationSent.UTC().Format(time.RFC3339)
		row.LastNotificationSent = &s
	}
	return row
}

func (r exportRow) values() []string {
	last := ""
	if r.LastNotificationSent != nil {
		last = *r.LastNotificationSent
	}
	return []string{r.ID, r.Email, r.FullName, r.PhoneNumber, r.Preferences, r.Notes, r.Status, r.CreatedAt, r.UpdatedAt, last}
}

// ExportRegistrations serializes rows and returns the body with its content type.
func ExportRegistrations(rows []domain.Registration, format ExportFormat) ([]byte, string, error) {
	switch format {
	case ExportCSV:
		var b strings.Builder
		writeCSVLine(&b, exportColumns)
		for _, r := range rows {
			writeCSVLine(&b, toExportRow(r).values())
		}
		return []byte(b.String()), "text/csv; charset=utf-8", nil
	case ExportJSON:
		out := make([]exportRow, 0, len(rows))
		for _, r := range rows {
			out = append(out, toExportRow(r))
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode export: %w", err)
		}
		return data, "application/json", nil
	}
	return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// writeCSVLine quotes every field, including empty ones.
func writeCSVLine(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
}
