package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketdesk-backoffice/internal/domain"
)

func exportFixture() []domain.Registration {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	sent := created.Add(time.Hour)
	return []domain.Registration{
		{
			ID: "r1", Email: "a@example.com", FullName: `Jo "JJ" Smith`, Preferences: "Rock, Jazz",
			Notes: "line one, still one", Status: domain.RegistrationStatusApproved,
			CreatedAt: created, UpdatedAt: created, LastNotificationSent: &sent,
		},
		{
			ID: "r2", Email: "b@example.com", FullName: "B", Status: domain.RegistrationStatusPending,
			CreatedAt: created, UpdatedAt: created,
		},
	}
}

func TestExportCSV(t *testing.T) {
	rows := exportFixture()
	data, contentType, err := ExportRegistrations(rows, ExportCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv; charset=utf-8", contentType)

	text := string(data)
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	assert.Len(t, lines, len(rows)+1)
	assert.Equal(t, `"id","email","full_name","phone_number","preferences","notes","status","created_at","updated_at","last_notification_sent"`, lines[0])
	assert.Contains(t, lines[1], `"Jo ""JJ"" Smith"`)
	assert.True(t, strings.HasSuffix(lines[2], `,""`), "nil renders as empty quoted string")

	records, err := csv.NewReader(strings.NewReader(text)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, `Jo "JJ" Smith`, records[1][2])
	assert.Equal(t, "Rock, Jazz", records[1][4])
	assert.Equal(t, "line one, still one", records[1][5])
	assert.Equal(t, "2024-05-01T11:00:00Z", records[1][9])
	assert.Equal(t, "", records[2][9])
}

func TestExportCSV_MultiLineNotes(t *testing.T) {
	rows := exportFixture()
	rows[0].Notes = "called back\nprefers aisle"

	data, _, err := ExportRegistrations(rows, ExportCSV)
	require.NoError(t, err)
	text := string(data)

	// The newline stays inside the quoted field: one record per row, but
	// one more physical line than rows+1.
	assert.Contains(t, text, "\"called back\nprefers aisle\"")
	assert.Len(t, strings.Split(strings.TrimSuffix(text, "\n"), "\n"), len(rows)+2)

	records, err := csv.NewReader(strings.NewReader(text)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(rows)+1)
	assert.Equal(t, "called back\nprefers aisle", records[1][5])
}

func TestExportJSON(t *testing.T) {
	rows := exportFixture()
	data, contentType, err := ExportRegistrations(rows, ExportJSON)
	require.NoError(t, err)
	assert.Equal(t, "application/json", contentType)
	assert.True(t, strings.HasPrefix(string(data), "[\n  {"))

	var parsed []map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))
	require.Len(t, parsed, len(rows))
	for i, r := range rows {
		assert.Equal(t, r.ID, parsed[i]["id"])
	}
	assert.Nil(t, parsed[1]["last_notification_sent"])
	assert.Equal(t, "approved", parsed[0]["status"])
}

func TestExportEmpty(t *testing.T) {
	data, _, err := ExportRegistrations(nil, ExportJSON)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	data, _, err = ExportRegistrations(nil, ExportCSV)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "\n"))
}

func TestExportThroughService(t *testing.T) {
	ctx := context.Background()
	svc, store := newRegistrations(new(MockSender))
	var ids []string
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		reg := &domain.Registration{Email: email, FullName: "X"}
		require.NoError(t, store.Registrations().Create(ctx, reg))
		ids = append(ids, reg.ID)
	}

	data, _, err := svc.Export(ctx, ExportJSON)
	require.NoError(t, err)
	var parsed []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(data, &parsed))
	var got []string
	for _, p := range parsed {
		got = append(got, p.ID)
	}
	assert.ElementsMatch(t, ids, got)
}
