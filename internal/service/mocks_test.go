package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"ticketdesk-backoffice/internal/domain"
	"ticketdesk-backoffice/internal/notify"
)

// MockSender
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, req notify.SendRequest) notify.SendResult {
	args := m.Called(ctx, req)
	return args.Get(0).(notify.SendResult)
}

// MockRegistrationRepo
type MockRegistrationRepo struct {
	mock.Mock
}

func (m *MockRegistrationRepo) Create(ctx context.Context, reg *domain.Registration) error {
	args := m.Called(ctx, reg)
	return args.Error(0)
}
func (m *MockRegistrationRepo) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Registration), args.Error(1)
}
func (m *MockRegistrationRepo) FindByEmail(ctx context.Context, email string, mode domain.MatchMode) ([]domain.Registration, error) {
	args := m.Called(ctx, email, mode)
	return args.Get(0).([]domain.Registration), args.Error(1)
}
func (m *MockRegistrationRepo) UpdateStatus(ctx context.Context, id string, status domain.RegistrationStatus, lastNotificationSent *time.Time) error {
	args := m.Called(ctx, id, status, lastNotificationSent)
	return args.Error(0)
}
func (m *MockRegistrationRepo) UpdateNotes(ctx context.Context, id, notes string) error {
	args := m.Called(ctx, id, notes)
	return args.Error(0)
}
func (m *MockRegistrationRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockRegistrationRepo) ListFiltered(ctx context.Context, filter domain.RegistrationFilter) ([]domain.Registration, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Registration), args.Int(1), args.Error(2)
}
func (m *MockRegistrationRepo) ListAll(ctx context.Context) ([]domain.Registration, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Registration), args.Error(1)
}
func (m *MockRegistrationRepo) CountByStatus(ctx context.Context, since *time.Time) (domain.RegistrationStats, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(domain.RegistrationStats), args.Error(1)
}
func (m *MockRegistrationRepo) DailyStatusCounts(ctx context.Context, since time.Time) ([]domain.DailyStatusCount, error) {
	args := m.Called(ctx, since)
	return args.Get(0).([]domain.DailyStatusCount), args.Error(1)
}
func (m *MockRegistrationRepo) ListPreferences(ctx context.Context, since *time.Time) ([]string, error) {
	args := m.Called(ctx, since)
	return args.Get(0).([]string), args.Error(1)
}
