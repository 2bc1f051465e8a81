package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ticketdesk-backoffice/internal/domain"
	"ticketdesk-backoffice/internal/repository/memory"
)

func TestOverview(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	now := time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)

	seedAt := func(day time.Time, status domain.RegistrationStatus, prefs string) {
		require.NoError(t, store.Registrations().Create(ctx, &domain.Registration{
			Email: "x@example.com", FullName: "X", Status: status, Preferences: prefs, CreatedAt: day,
		}))
	}
	seedAt(now.AddDate(0, 0, -30), domain.RegistrationStatusApproved, "Classical")
	seedAt(now.AddDate(0, 0, -6).Add(-time.Hour), domain.RegistrationStatusPending, "Rock, Jazz")
	seedAt(now.AddDate(0, 0, -2), domain.RegistrationStatusRejected, "rock")
	seedAt(now, domain.RegistrationStatusPending, "Jazz, Pop")

	svc := NewReportingService(store.Registrations(), store.Deliveries()).(*reportingService)
	svc.now = func() time.Time { return now }

	ov, err := svc.Overview(ctx, 7)
	require.NoError(t, err)

	assert.Equal(t, 7, ov.Days)
	assert.Equal(t, time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC), ov.Since)
	assert.Equal(t, domain.RegistrationStats{Total: 4, Pending: 2, Approved: 1, Rejected: 1}, ov.Totals)
	assert.Equal(t, domain.RegistrationStats{Total: 3, Pending: 2, Rejected: 1}, ov.Window)

	require.Len(t, ov.Daily, 7)
	assert.Equal(t, ov.Since, ov.Daily[0].Day)
	assert.Equal(t, 1, ov.Daily[0].Pending)
	assert.Equal(t, 0, ov.Daily[1].Total)
	assert.Equal(t, 1, ov.Daily[4].Rejected)
	assert.Equal(t, 1, ov.Daily[6].Pending)

	assert.Equal(t, []domain.PreferenceCount{
		{Value: "Jazz", Count: 2},
		{Value: "Rock", Count: 1},
		{Value: "rock", Count: 1},
		{Value: "Pop", Count: 1},
	}, ov.TopPreferences)
}

func TestOverview_DaysBounds(t *testing.T) {
	store := memory.NewStore()
	svc := NewReportingService(store.Registrations(), store.Deliveries())

	ov, err := svc.Overview(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultReportDays, ov.Days)
	assert.Len(t, ov.Daily, DefaultReportDays)

	ov, err = svc.Overview(context.Background(), 10000)
	require.NoError(t, err)
	assert.Equal(t, MaxReportDays, ov.Days)
}

func TestOverview_StoreError(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRegistrationRepo)
	repo.On("CountByStatus", ctx, mock.Anything).Return(domain.RegistrationStats{}, errors.New("timeout")).Once()

	_, err := NewReportingService(repo, nil).Overview(ctx, 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestEmailStats(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	for _, rec := range []domain.DeliveryRecord{
		{EmailID: "a", TemplateKind: domain.TemplateApproval, Status: domain.DeliveryStatusSent},
		{EmailID: "b", TemplateKind: domain.TemplateApproval, Status: domain.DeliveryStatusSent},
		{EmailID: "c", TemplateKind: domain.TemplateApproval, Status: domain.DeliveryStatusFailed},
		{EmailID: "d", TemplateKind: domain.TemplateWelcome, Status: domain.DeliveryStatusFailed},
	} {
		require.NoError(t, store.Deliveries().Create(ctx, &rec))
	}
	_, err := store.Deliveries().AdvanceStatus(ctx, "a", domain.DeliveryStatusClicked, time.Now())
	require.NoError(t, err)

	stats, err := NewReportingService(store.Registrations(), store.Deliveries()).EmailStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	approval := stats[0]
	assert.Equal(t, domain.TemplateApproval, approval.TemplateKind)
	assert.Equal(t, 3, approval.Total)
	assert.Equal(t, 2, approval.Sent)
	assert.Equal(t, 1, approval.Failed)
	assert.Equal(t, 1, approval.Opened)
	assert.Equal(t, 1, approval.Clicked)
	assert.InDelta(t, 0.5, approval.OpenRate, 1e-9)
	assert.InDelta(t, 0.5, approval.ClickRate, 1e-9)

	welcome := stats[1]
	assert.Equal(t, 0.0, welcome.OpenRate)
	assert.Equal(t, 0.0, welcome.ClickRate)
}
