package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"ticketdesk-backoffice/internal/domain"
	"ticketdesk-backoffice/internal/logger"
	"ticketdesk-backoffice/internal/notify"
	"ticketdesk-backoffice/internal/repository"
)

var ErrValidation = errors.New("validation failed")

// SubmitRequest is a public access request.
type SubmitRequest struct {
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Preferences string `json:"preferences"`
}

type RegistrationPage struct {
	Items    []domain.Registration `json:"items"`
	Total    int                   `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
}

type registrationService struct {
	repo       repository.RegistrationRepository
	deliveries repository.DeliveryRepository
	renderer   *notify.Renderer
	sender     notify.Sender
	cfg        ApprovalConfig
}

func NewRegistrationService(
	repo repository.RegistrationRepository,
	deliveries repository.DeliveryRepository,
	renderer *notify.Renderer,
	sender notify.Sender,
	cfg ApprovalConfig,
) RegistrationService {
	return &registrationService{
		repo:       repo,
		deliveries: deliveries,
		renderer:   renderer,
		sender:     sender,
		cfg:        cfg,
	}
}

func (s *registrationService) Submit(ctx context.Context, req SubmitRequest) (*domain.Registration, error) {
	logger.EnterMethod("RegistrationService.Submit")

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, fmt.Errorf("%w: email is not a valid address", ErrValidation)
	}
	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return nil, fmt.Errorf("%w: full name is required", ErrValidation)
	}

	reg := &domain.Registration{
		Email:       email,
		FullName:    name,
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		Preferences: strings.TrimSpace(req.Preferences),
		Status:      domain.RegistrationStatusPending,
	}
	if err := s.repo.Create(ctx, reg); err != nil {
		logger.ExitMethodWithError("RegistrationService.Submit", err)
		return nil, fmt.Errorf("failed to create registration: %w", err)
	}

	s.sendWelcome(ctx, reg)
	logger.ExitMethod("RegistrationService.Submit", "registrationID", reg.ID)
	return reg, nil
}

// sendWelcome acknowledges a submission. Failures are logged only.
func (s *registrationService) sendWelcome(ctx context.Context, reg *domain.Registration) {
	rendered, err := s.renderer.Render(notify.NotificationData{
		Kind:          domain.TemplateWelcome,
		RecipientName: reg.FullName,
		SiteName:      s.cfg.SiteName,
		SiteURL:       s.cfg.SiteURL,
		ActionURL:     s.cfg.SiteURL,
		RequestedAt:   reg.CreatedAt,
	})
	if err != nil {
		logger.Error("Failed to render welcome email", "registrationID", reg.ID, "error", err)
		return
	}
	res := s.sender.Send(ctx, notify.SendRequest{
		To:             reg.Email,
		Subject:        rendered.Subject,
		HTML:           rendered.HTML,
		RegistrationID: reg.ID,
		TemplateKind:   domain.TemplateWelcome,
	})
	if !res.Success {
		logger.Warn("Welcome email not sent", "registrationID", reg.ID, "error", res.Message)
	}
}

func (s *registrationService) Get(ctx context.Context, id string) (*domain.Registration, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *registrationService) Lookup(ctx context.Context, email string, mode domain.MatchMode) ([]domain.Registration, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	regs, err := s.repo.FindByEmail(ctx, email, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to look up registrations: %w", err)
	}
	if regs == nil {
		regs = []domain.Registration{}
	}
	return regs, nil
}

func (s *registrationService) List(ctx context.Context, filter domain.RegistrationFilter) (*RegistrationPage, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, filter.Status)
	}
	filter = filter.Normalize()
	items, total, err := s.repo.ListFiltered(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	if items == nil {
		items = []domain.Registration{}
	}
	return &RegistrationPage{Items: items, Total: total, Page: filter.Page, PageSize: filter.PageSize}, nil
}

func (s *registrationService) UpdateNotes(ctx context.Context, id, notes string) error {
	if err := s.repo.UpdateNotes(ctx, id, notes); err != nil {
		return fmt.Errorf("failed to update notes: %w", err)
	}
	logger.Info("Registration notes updated", "registrationID", id)
	return nil
}

func (s *registrationService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete registration: %w", err)
	}
	logger.Info("Registration deleted", "registrationID", id)
	return nil
}

func (s *registrationService) Deliveries(ctx context.Context, id string) ([]domain.DeliveryRecord, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	recs, err := s.deliveries.ListByRegistration(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}
	if recs == nil {
		recs = []domain.DeliveryRecord{}
	}
	return recs, nil
}

func (s *registrationService) Export(ctx context.Context, format ExportFormat) ([]byte, string, error) {
	if !format.Valid() {
		return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load registrations: %w", err)
	}
	logger.Info("Exporting registrations", "format", format, "rows", len(rows))
	return ExportRegistrations(rows, format)
}
