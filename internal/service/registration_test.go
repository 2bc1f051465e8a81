package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ticketdesk-backoffice/internal/domain"
	"ticketdesk-backoffice/internal/notify"
	"ticketdesk-backoffice/internal/repository"
	"ticketdesk-backoffice/internal/repository/memory"
)

func newRegistrations(sender notify.Sender) (RegistrationService, *memory.Store) {
	store := memory.NewStore()
	return NewRegistrationService(store.Registrations(), store.Deliveries(), notify.MustRenderer(), sender, testSite), store
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	sender := new(MockSender)
	svc, store := newRegistrations(sender)

	sender.On("Send", ctx, mock.MatchedBy(func(req notify.SendRequest) bool {
		return req.To == "fan@example.com" && req.TemplateKind == domain.TemplateWelcome && req.RegistrationID != ""
	})).Return(notify.SendResult{Success: true}).Once()

	reg, err := svc.Submit(ctx, SubmitRequest{
		Email:       "  Fan@Example.com ",
		FullName:    " Pat Fan ",
		Preferences: "Rock, Jazz",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, reg.ID)
	assert.Equal(t, "fan@example.com", reg.Email)
	assert.Equal(t, "Pat Fan", reg.FullName)
	assert.Equal(t, domain.RegistrationStatusPending, reg.Status)

	got, err := store.Registrations().GetByID(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rock, Jazz", got.Preferences)
	sender.AssertExpectations(t)
}

func TestSubmit_WelcomeFailureIsNotAnError(t *testing.T) {
	ctx := context.Background()
	sender := new(MockSender)
	svc, _ := newRegistrations(sender)
	sender.On("Send", ctx, mock.Anything).Return(notify.SendResult{Success: false, Message: "boom"}).Once()

	reg, err := svc.Submit(ctx, SubmitRequest{Email: "a@example.com", FullName: "A"})
	require.NoError(t, err)
	assert.NotNil(t, reg)
}

func TestSubmit_Validation(t *testing.T) {
	svc, store := newRegistrations(new(MockSender))
	ctx := context.Background()

	for _, req := range []SubmitRequest{
		{Email: "", FullName: "A"},
		{Email: "not-an-email", FullName: "A"},
		{Email: "Pat <pat@example.com>", FullName: "A"},
		{Email: "a@example.com", FullName: "   "},
	} {
		_, err := svc.Submit(ctx, req)
		assert.ErrorIs(t, err, ErrValidation, req)
	}
	all, err := store.Registrations().ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSubmit_StoreError(t *testing.T) {
	sender := new(MockSender)
	svc, store := newRegistrations(sender)
	store.FailRegistrationWrites = errors.New("read-only transaction")

	_, err := svc.Submit(context.Background(), SubmitRequest{Email: "a@example.com", FullName: "A"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only transaction")
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestLookup_Modes(t *testing.T) {
	ctx := context.Background()
	svc, store := newRegistrations(new(MockSender))
	for _, email := range []string{"dup@example.com", "DUP@example.com", "dup@example.com"} {
		require.NoError(t, store.Registrations().Create(ctx, &domain.Registration{Email: email, FullName: "D"}))
	}

	exact, err := svc.Lookup(ctx, "dup@example.com", domain.MatchExact)
	require.NoError(t, err)
	assert.Len(t, exact, 2)

	loose, err := svc.Lookup(ctx, "Dup@Example.com", domain.MatchCaseInsensitive)
	require.NoError(t, err)
	assert.Len(t, loose, 3)

	none, err := svc.Lookup(ctx, "nobody@example.com", domain.MatchExact)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	_, err = svc.Lookup(ctx, " ", domain.MatchExact)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	svc, store := newRegistrations(new(MockSender))
	for i, name := range []string{"Alice", "Bob", "Carol"} {
		status := domain.RegistrationStatusPending
		if i == 1 {
			status = domain.RegistrationStatusApproved
		}
		require.NoError(t, store.Registrations().Create(ctx, &domain.Registration{Email: name + "@example.com", FullName: name, Status: status}))
	}

	page, err := svc.List(ctx, domain.RegistrationFilter{Status: domain.RegistrationStatusPending, SortField: domain.SortByFullName})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, domain.DefaultPageSize, page.PageSize)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Alice", page.Items[0].FullName)

	page, err = svc.List(ctx, domain.RegistrationFilter{Search: "bob"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	_, err = svc.List(ctx, domain.RegistrationFilter{Status: "archived"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateNotesAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, store := newRegistrations(new(MockSender))
	reg := &domain.Registration{Email: "a@example.com", FullName: "A"}
	require.NoError(t, store.Registrations().Create(ctx, reg))

	require.NoError(t, svc.UpdateNotes(ctx, reg.ID, "VIP"))
	got, err := svc.Get(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, "VIP", got.Notes)

	require.NoError(t, svc.Delete(ctx, reg.ID))
	_, err = svc.Get(ctx, reg.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, reg.ID), repository.ErrNotFound)
	assert.ErrorIs(t, svc.UpdateNotes(ctx, reg.ID, "x"), repository.ErrNotFound)
}

func TestDeliveries(t *testing.T) {
	ctx := context.Background()
	svc, store := newRegistrations(new(MockSender))
	reg := &domain.Registration{Email: "a@example.com", FullName: "A"}
	require.NoError(t, store.Registrations().Create(ctx, reg))

	recs, err := svc.Deliveries(ctx, reg.ID)
	require.NoError(t, err)
	assert.Empty(t, recs)

	id := reg.ID
	require.NoError(t, store.Deliveries().Create(ctx, &domain.DeliveryRecord{EmailID: "e1", RegistrationID: &id, Status: domain.DeliveryStatusSent}))
	recs, err = svc.Deliveries(ctx, reg.ID)
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	_, err = svc.Deliveries(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestExport_UnsupportedFormat(t *testing.T) {
	svc, _ := newRegistrations(new(MockSender))
	_, _, err := svc.Export(context.Background(), ExportFormat("xml"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
