package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketdesk-backoffice/internal/domain"
	"ticketdesk-backoffice/internal/repository/memory"
)

func TestLedger_TrackingTransitions(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	l := NewLedger(store.Deliveries())

	require.True(t, l.Record(ctx, &domain.DeliveryRecord{EmailID: "e1", Status: domain.DeliveryStatusSent, TemplateKind: domain.TemplateApproval}))
	require.True(t, l.Record(ctx, &domain.DeliveryRecord{EmailID: "e2", Status: domain.DeliveryStatusFailed, TemplateKind: domain.TemplateApproval}))

	assert.True(t, l.MarkOpened(ctx, "e1"))
	assert.False(t, l.MarkOpened(ctx, "e1"), "second open is a no-op")
	assert.True(t, l.MarkClicked(ctx, "e1"))
	assert.False(t, l.MarkOpened(ctx, "e1"), "clicked never regresses")

	assert.False(t, l.MarkOpened(ctx, "e2"), "failed is terminal")
	assert.False(t, l.MarkClicked(ctx, "missing"))

	rec, err := store.Deliveries().GetByEmailID(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryStatusClicked, rec.Status)
	assert.NotNil(t, rec.OpenedAt)
	assert.NotNil(t, rec.ClickedAt)
}

func TestLedger_ClickWithoutOpenStampsBoth(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	l := NewLedger(store.Deliveries())
	require.True(t, l.Record(ctx, &domain.DeliveryRecord{EmailID: "e1", Status: domain.DeliveryStatusSent}))

	assert.True(t, l.MarkClicked(ctx, "e1"))

	rec, err := store.Deliveries().GetByEmailID(ctx, "e1")
	require.NoError(t, err)
	require.NotNil(t, rec.OpenedAt)
	require.NotNil(t, rec.ClickedAt)
	assert.Equal(t, *rec.OpenedAt, *rec.ClickedAt)
}

func TestLedger_WriteFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	l := NewLedger(store.Deliveries())
	store.FailDeliveryWrites = errors.New("disk full")

	assert.False(t, l.Record(ctx, &domain.DeliveryRecord{EmailID: "e1", Status: domain.DeliveryStatusSent}))
	assert.False(t, l.MarkOpened(ctx, "e1"))
	assert.False(t, l.MarkClicked(ctx, "e1"))
}
