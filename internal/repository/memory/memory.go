// Package memory is an in-process implementation of the repositories, used
// by tests and by the server when DATABASE_URL is "memory://".
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ticketdesk-backoffice/internal/domain"
	"ticketdesk-backoffice/internal/repository"
)

type Store struct {
	mu            sync.RWMutex
	registrations map[string]*domain.Registration
	deliveries    []*domain.DeliveryRecord
	nextID        int64
	now           func() time.Time

	// Fail* inject errors for tests.
	FailRegistrationWrites error
	FailDeliveryWrites     error
}

func NewStore() *Store {
	return &Store{
		registrations: make(map[string]*domain.Registration),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Registrations and Deliveries expose the store through the repository interfaces.
func (s *Store) Registrations() repository.RegistrationRepository { return registrationRepo{s} }
func (s *Store) Deliveries() repository.DeliveryRepository       { return deliveryRepo{s} }

// DeliveryCount returns the number of ledger rows.
func (s *Store) DeliveryCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.deliveries)
}

type registrationRepo struct{ s *Store }

var (
	_ repository.RegistrationRepository = registrationRepo{}
	_ repository.DeliveryRepository     = deliveryRepo{}
)

func (r registrationRepo) Create(ctx context.Context, reg *domain.Registration) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailRegistrationWrites != nil {
		return s.FailRegistrationWrites
	}
	if reg.Status == "" {
		reg.Status = domain.RegistrationStatusPending
	}
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = s.now()
	}
	reg.UpdatedAt = reg.CreatedAt
	cp := *reg
	s.registrations[reg.ID] = &cp
	return nil
}

func (r registrationRepo) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	reg, ok := r.s.registrations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *reg
	return &cp, nil
}

func (r registrationRepo) FindByEmail(ctx context.Context, email string, mode domain.MatchMode) ([]domain.Registration, error) {
	var out []domain.Registration
	for _, reg := range r.sorted() {
		if reg.Email == email || (mode == domain.MatchCaseInsensitive && strings.EqualFold(reg.Email, email)) {
			out = append(out, reg)
		}
	}
	return out, nil
}

func (r registrationRepo) UpdateStatus(ctx context.Context, id string, status domain.RegistrationStatus, lastNotificationSent *time.Time) error {
	return r.mutate(id, func(reg *domain.Registration) {
		reg.Status = status
		if lastNotificationSent != nil {
			t := *lastNotificationSent
			reg.LastNotificationSent = &t
		}
	})
}

func (r registrationRepo) UpdateNotes(ctx context.Context, id, notes string) error {
	return r.mutate(id, func(reg *domain.Registration) { reg.Notes = notes })
}

func (r registrationRepo) mutate(id string, fn func(*domain.Registration)) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailRegistrationWrites != nil {
		return s.FailRegistrationWrites
	}
	reg, ok := s.registrations[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(reg)
	reg.UpdatedAt = s.now()
	return nil
}

func (r registrationRepo) Delete(ctx context.Context, id string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailRegistrationWrites != nil {
		return s.FailRegistrationWrites
	}
	if _, ok := s.registrations[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.registrations, id)
	for _, d := range s.deliveries {
		if d.RegistrationID != nil && *d.RegistrationID == id {
			d.RegistrationID = nil
		}
	}
	return nil
}

func (r registrationRepo) ListFiltered(ctx context.Context, filter domain.RegistrationFilter) ([]domain.Registration, int, error) {
	f := filter.Normalize()
	search := strings.ToLower(strings.TrimSpace(f.Search))
	pref := strings.ToLower(strings.TrimSpace(f.Preference))

	var matched []domain.Registration
	for _, reg := range r.sorted() {
		if f.Status != "" && reg.Status != f.Status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(reg.Email), search) &&
			!strings.Contains(strings.ToLower(reg.FullName), search) &&
			!strings.Contains(strings.ToLower(reg.PhoneNumber), search) {
			continue
		}
		if pref != "" && !strings.Contains(strings.ToLower(reg.Preferences), pref) {
			continue
		}
		matched = append(matched, reg)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		var less, equal bool
		switch f.SortField {
		case domain.SortByEmail:
			less, equal = a.Email < b.Email, a.Email == b.Email
		case domain.SortByFullName:
			less, equal = a.FullName < b.FullName, a.FullName == b.FullName
		case domain.SortByStatus:
			less, equal = a.Status < b.Status, a.Status == b.Status
		case domain.SortByUpdatedAt:
			less, equal = a.UpdatedAt.Before(b.UpdatedAt), a.UpdatedAt.Equal(b.UpdatedAt)
		default:
			less, equal = a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt)
		}
		if equal {
			return a.ID < b.ID
		}
		if f.SortDesc {
			return !less
		}
		return less
	})

	total := len(matched)
	start := f.Offset()
	if start > total {
		start = total
	}
	end := start + f.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r registrationRepo) ListAll(ctx context.Context) ([]domain.Registration, error) {
	return r.sorted(), nil
}

func (r registrationRepo) CountByStatus(ctx context.Context, since *time.Time) (domain.RegistrationStats, error) {
	var st domain.RegistrationStats
	for _, reg := range r.sorted() {
		if since == nil || !reg.CreatedAt.Before(*since) {
			st.Add(reg.Status, 1)
		}
	}
	return st, nil
}

func (r registrationRepo) DailyStatusCounts(ctx context.Context, since time.Time) ([]domain.DailyStatusCount, error) {
	var days []domain.DailyStatusCount
	for _, reg := range r.sorted() {
		if reg.CreatedAt.Before(since) {
			continue
		}
		c := reg.CreatedAt.UTC()
		day := time.Date(c.Year(), c.Month(), c.Day(), 0, 0, 0, 0, time.UTC)
		if len(days) == 0 || !days[len(days)-1].Day.Equal(day) {
			days = append(days, domain.DailyStatusCount{Day: day})
		}
		days[len(days)-1].Add(reg.Status, 1)
	}
	return days, nil
}

func (r registrationRepo) ListPreferences(ctx context.Context, since *time.Time) ([]string, error) {
	var prefs []string
	for _, reg := range r.sorted() {
		if reg.Preferences == "" || (since != nil && reg.CreatedAt.Before(*since)) {
			continue
		}
		prefs = append(prefs, reg.Preferences)
	}
	return prefs, nil
}

// sorted returns copies ordered by creation time, then id.
func (r registrationRepo) sorted() []domain.Registration {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Registration, 0, len(r.s.registrations))
	for _, reg := range r.s.registrations {
		out = append(out, *reg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

type deliveryRepo struct{ s *Store }

func (d deliveryRepo) Create(ctx context.Context, rec *domain.DeliveryRecord) error {
	s := d.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailDeliveryWrites != nil {
		return s.FailDeliveryWrites
	}
	s.nextID++
	rec.ID = s.nextID
	now := s.now()
	if rec.SentAt.IsZero() {
		rec.SentAt = now
	}
	rec.CreatedAt, rec.UpdatedAt = now, now
	cp := *rec
	s.deliveries = append(s.deliveries, &cp)
	return nil
}

func (d deliveryRepo) GetByEmailID(ctx context.Context, emailID string) (*domain.DeliveryRecord, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	for _, rec := range d.s.deliveries {
		if rec.EmailID == emailID {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (d deliveryRepo) AdvanceStatus(ctx context.Context, emailID string, status domain.DeliveryStatus, at time.Time) (bool, error) {
	s := d.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailDeliveryWrites != nil {
		return false, s.FailDeliveryWrites
	}
	for _, rec := range s.deliveries {
		if rec.EmailID != emailID {
			continue
		}
		if !domain.CanAdvance(rec.Status, status) {
			return false, nil
		}
		t := at
		switch status {
		case domain.DeliveryStatusOpened:
			rec.OpenedAt = &t
		case domain.DeliveryStatusClicked:
			rec.ClickedAt = &t
			if rec.OpenedAt == nil {
				rec.OpenedAt = &t
			}
		}
		rec.Status = status
		rec.UpdatedAt = s.now()
		return true, nil
	}
	return false, nil
}

func (d deliveryRepo) ListByRegistration(ctx context.Context, registrationID string) ([]domain.DeliveryRecord, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	out := []domain.DeliveryRecord{}
	for i := len(d.s.deliveries) - 1; i >= 0; i-- {
		rec := d.s.deliveries[i]
		if rec.RegistrationID != nil && *rec.RegistrationID == registrationID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (d deliveryRepo) TemplateStats(ctx context.Context) ([]domain.TemplateStats, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	byKind := map[domain.TemplateKind]*domain.TemplateStats{}
	var kinds []domain.TemplateKind
	for _, rec := range d.s.deliveries {
		ts, ok := byKind[rec.TemplateKind]
		if !ok {
			ts = &domain.TemplateStats{TemplateKind: rec.TemplateKind}
			byKind[rec.TemplateKind] = ts
			kinds = append(kinds, rec.TemplateKind)
		}
		ts.Total++
		if rec.Status == domain.DeliveryStatusFailed {
			ts.Failed++
		} else {
			ts.Sent++
		}
		if rec.OpenedAt != nil {
			ts.Opened++
		}
		if rec.ClickedAt != nil {
			ts.Clicked++
		}
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	out := make([]domain.TemplateStats, 0, len(kinds))
	for _, k := range kinds {
		ts := *byKind[k]
		ts.ComputeRates()
		out = append(out, ts)
	}
	return out, nil
}
