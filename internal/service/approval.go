package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticketdesk-backoffice/internal/domain"
	"ticketdesk-backoffice/internal/logger"
	"ticketdesk-backoffice/internal/metrics"
	"ticketdesk-backoffice/internal/notify"
	"ticketdesk-backoffice/internal/repository"
)

type ResultCode string

const (
	CodeOK                ResultCode = "ok"
	CodeNotFound          ResultCode = "not_found"
	CodeInvalidTransition ResultCode = "invalid_transition"
	CodeStoreError        ResultCode = "store_error"
)

// StatusChangeResult reports the data change and the notification as two
// independent outcomes. Success is true once the store update committed.
type StatusChangeResult struct {
	Success    bool                      `json:"success"`
	Code       ResultCode                `json:"code"`
	Message    string                    `json:"message"`
	Status     domain.RegistrationStatus `json:"status,omitempty"`
	EmailSent  bool                      `json:"emailSent"`
	EmailError string                    `json:"emailError,omitempty"`
	EmailID    string                    `json:"emailId,omitempty"`
}

// Step names one stage of a status change.
type Step string

const (
	StepLookup     Step = "lookup"
	StepTransition Step = "transition"
	StepUpdate     Step = "update"
	StepRender     Step = "render"
	StepDeliver    Step = "deliver"
	StepLedger     Step = "ledger"
)

// approvalSteps is the order SetStatus runs in.
var approvalSteps = []Step{StepLookup, StepTransition, StepUpdate, StepRender, StepDeliver, StepLedger}

// FailurePolicy is what a failed step does to the rest of the status change.
type FailurePolicy int

const (
	// Abort stops the change and returns a failed result.
	Abort FailurePolicy = iota
	// Degrade keeps the committed status change and reports the email as not sent.
	Degrade
	// Ignore logs the failure and leaves the result untouched.
	Ignore
)

func (p FailurePolicy) String() string {
	switch p {
	case Abort:
		return "abort"
	case Degrade:
		return "degrade"
	case Ignore:
		return "ignore"
	}
	return "unknown"
}

// StepPolicy returns the failure policy for step. Nothing before the store
// update may leave a partial change; nothing after it may undo one.
func StepPolicy(step Step) FailurePolicy {
	switch step {
	case StepLookup, StepTransition, StepUpdate:
		return Abort
	case StepRender, StepDeliver:
		return Degrade
	default:
		return Ignore
	}
}

// ApprovalConfig is the site identity used in notification copy.
type ApprovalConfig struct {
	SiteName string
	SiteURL  string
	LoginURL string
}

type approvalService struct {
	repo     repository.RegistrationRepository
	renderer *notify.Renderer
	sender   notify.Sender
	cfg      ApprovalConfig
	now      func() time.Time
}

func NewApprovalService(repo repository.RegistrationRepository, renderer *notify.Renderer, sender notify.Sender, cfg ApprovalConfig) ApprovalService {
	return &approvalService{
		repo:     repo,
		renderer: renderer,
		sender:   sender,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *approvalService) Approve(ctx context.Context, id string) StatusChangeResult {
	return s.run(ctx, id, domain.RegistrationStatusApproved, "", false)
}

func (s *approvalService) Reject(ctx context.Context, id, reason string) StatusChangeResult {
	return s.run(ctx, id, domain.RegistrationStatusRejected, reason, false)
}

func (s *approvalService) ResendConfirmation(ctx context.Context, id string) StatusChangeResult {
	return s.run(ctx, id, domain.RegistrationStatusApproved, "", true)
}

func (s *approvalService) SetStatus(ctx context.Context, id string, target domain.RegistrationStatus) StatusChangeResult {
	return s.run(ctx, id, target, "", false)
}

func (s *approvalService) run(ctx context.Context, id string, target domain.RegistrationStatus, reason string, resend bool) StatusChangeResult {
	logger.EnterMethod("ApprovalService.SetStatus", "registrationID", id, "target", target, "resend", resend)
	var res StatusChangeResult

	// lookup
	reg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		code, msg := CodeStoreError, fmt.Sprintf("failed to load registration: %v", err)
		if errors.Is(err, repository.ErrNotFound) {
			code, msg = CodeNotFound, "registration not found"
		}
		s.fail(&res, StepLookup, code, msg)
		return s.finish(res, id)
	}

	// transition
	if resend && reg.Status != domain.RegistrationStatusApproved {
		s.fail(&res, StepTransition, CodeInvalidTransition,
			fmt.Sprintf("confirmation can only be resent for approved registrations (status is %s)", reg.Status))
		return s.finish(res, id)
	}
	if !domain.CanTransition(reg.Status, target) {
		s.fail(&res, StepTransition, CodeInvalidTransition,
			fmt.Sprintf("cannot change registration status from %s to %s", reg.Status, target))
		return s.finish(res, id)
	}

	// update
	var stamped *time.Time
	if target == domain.RegistrationStatusApproved {
		now := s.now()
		stamped = &now
	}
	if err := s.repo.UpdateStatus(ctx, id, target, stamped); err != nil {
		code, msg := CodeStoreError, fmt.Sprintf("failed to update registration: %v", err)
		if errors.Is(err, repository.ErrNotFound) {
			code, msg = CodeNotFound, "registration not found"
		}
		s.fail(&res, StepUpdate, code, msg)
		return s.finish(res, id)
	}
	res = StatusChangeResult{Success: true, Code: CodeOK, Status: target}

	// render
	kind := domain.TemplateApproval
	if target == domain.RegistrationStatusRejected {
		kind = domain.TemplateRejection
	}
	data := notify.NotificationData{
		Kind:          kind,
		RecipientName: reg.FullName,
		SiteName:      s.cfg.SiteName,
		SiteURL:       s.cfg.SiteURL,
		RequestedAt:   reg.CreatedAt,
		Reason:        reason,
	}
	if kind == domain.TemplateApproval {
		data.ActionURL = s.cfg.LoginURL
	}
	rendered, err := s.renderer.Render(data)
	if err != nil {
		s.fail(&res, StepRender, "", err.Error())
		res.Message = statusMessage(target, resend, res)
		return s.finish(res, id)
	}

	// deliver
	sent := s.sender.Send(ctx, notify.SendRequest{
		To:             reg.Email,
		Subject:        rendered.Subject,
		HTML:           rendered.HTML,
		RegistrationID: reg.ID,
		TemplateKind:   kind,
	})
	res.EmailID = sent.EmailID
	if sent.Success {
		res.EmailSent = true
	} else {
		s.fail(&res, StepDeliver, "", sent.Message)
	}

	// ledger
	if !sent.ConfigError && !sent.Recorded {
		s.fail(&res, StepLedger, "", "delivery record was not written")
	}

	res.Message = statusMessage(target, resend, res)
	return s.finish(res, id)
}

// fail applies the step's policy to res.
func (s *approvalService) fail(res *StatusChangeResult, step Step, code ResultCode, msg string) {
	policy := StepPolicy(step)
	logger.Warn("Status change step failed", "step", step, "policy", policy, "error", msg)
	switch policy {
	case Abort:
		*res = StatusChangeResult{Success: false, Code: code, Message: msg}
	case Degrade:
		res.EmailSent = false
		res.EmailError = msg
	}
}

func (s *approvalService) finish(res StatusChangeResult, id string) StatusChangeResult {
	if res.Success {
		email := "failed"
		if res.EmailSent {
			email = "sent"
		}
		metrics.RegistrationTransitionsTotal.WithLabelValues(string(res.Status), email).Inc()
		logger.ExitMethod("ApprovalService.SetStatus", "registrationID", id, "status", res.Status, "emailSent", res.EmailSent)
		return res
	}
	logger.ExitMethodWithError("ApprovalService.SetStatus", errors.New(res.Message), "registrationID", id, "code", res.Code)
	return res
}

func statusMessage(target domain.RegistrationStatus, resend bool, res StatusChangeResult) string {
	switch {
	case resend && res.EmailSent:
		return "Confirmation email resent"
	case resend:
		return "Confirmation email could not be resent: " + res.EmailError
	case res.EmailSent:
		return fmt.Sprintf("Registration %s and notification email sent", target)
	default:
		return fmt.Sprintf("Registration %s but the notification email could not be sent: %s", target, res.EmailError)
	}
}
