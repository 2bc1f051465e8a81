package service

import (
	"context"
	"fmt"
	"time"

	"ticketdesk-backoffice/internal/domain"
	"ticketdesk-backoffice/internal/repository"
)

const (
	DefaultReportDays  = 7
	MaxReportDays      = 365
	TopPreferenceCount = 5
)

// Overview is the dashboard summary for a trailing window of days.
type Overview struct {
	Days           int                       `json:"days"`
	Since          time.Time                 `json:"since"`
	Totals         domain.RegistrationStats  `json:"totals"`
	Window         domain.RegistrationStats  `json:"window"`
	Daily          []domain.DailyStatusCount `json:"daily"`
	TopPreferences []domain.PreferenceCount  `json:"top_preferences"`
}

type reportingService struct {
	regs       repository.RegistrationRepository
	deliveries repository.DeliveryRepository
	now        func() time.Time
}

func NewReportingService(regs repository.RegistrationRepository, deliveries repository.DeliveryRepository) ReportingService {
	return &reportingService{
		regs:       regs,
		deliveries: deliveries,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *reportingService) Overview(ctx context.Context, days int) (*Overview, error) {
	if days <= 0 {
		days = DefaultReportDays
	}
	if days > MaxReportDays {
		days = MaxReportDays
	}
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	since := today.AddDate(0, 0, -(days - 1))

	totals, err := s.regs.CountByStatus(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count registrations: %w", err)
	}
	window, err := s.regs.CountByStatus(ctx, &since)
	if err != nil {
		return nil, fmt.Errorf("failed to count registrations in window: %w", err)
	}
	counts, err := s.regs.DailyStatusCounts(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily counts: %w", err)
	}
	prefs, err := s.regs.ListPreferences(ctx, &since)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}

	return &Overview{
		Days:           days,
		Since:          since,
		Totals:         totals,
		Window:         window,
		Daily:          fillDays(counts, since, days),
		TopPreferences: domain.TopPreferences(prefs, TopPreferenceCount),
	}, nil
}

// fillDays returns one entry per day starting at since, zero where counts has none.
func fillDays(counts []domain.DailyStatusCount, since time.Time, days int) []domain.DailyStatusCount {
	byDay := make(map[time.Time]domain.DailyStatusCount, len(counts))
	for _, c := range counts {
		d := c.Day.UTC()
		byDay[time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)] = c
	}
	out := make([]domain.DailyStatusCount, 0, days)
	for i := 0; i < days; i++ {
		day := since.AddDate(0, 0, i)
		c := byDay[day]
		c.Day = day
		out = append(out, c)
	}
	return out
}

func (s *reportingService) EmailStats(ctx context.Context) ([]domain.TemplateStats, error) {
	stats, err := s.deliveries.TemplateStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load email stats: %w", err)
	}
	if stats == nil {
		stats = []domain.TemplateStats{}
	}
	return stats, nil
}
