package domain

import "time"

type TemplateKind string

const (
	TemplateApproval  TemplateKind = "approval"
	TemplateRejection TemplateKind = "rejection"
	TemplateWelcome   TemplateKind = "welcome"
	TemplateGeneric   TemplateKind = "generic"
)

func (k TemplateKind) Valid() bool {
	switch k {
	case TemplateApproval, TemplateRejection, TemplateWelcome, TemplateGeneric:
		return true
	}
	return false
}

type DeliveryStatus string

const (
	DeliveryStatusSent    DeliveryStatus = "sent"
	DeliveryStatusFailed  DeliveryStatus = "failed"
	DeliveryStatusOpened  DeliveryStatus = "opened"
	DeliveryStatusClicked DeliveryStatus = "clicked"
)

// DeliveryMetadata carries the known optional details of a send attempt.
type DeliveryMetadata struct {
	Provider     string `json:"provider,omitempty"`
	ProviderID   string `json:"providerId,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// DeliveryRecord is one ledger entry per email send attempt.
type DeliveryRecord struct {
	ID             int64            `json:"id"`
	EmailID        string           `json:"email_id"`
	Recipient      string           `json:"recipient"`
	Subject        string           `json:"subject"`
	TemplateKind   TemplateKind     `json:"template_kind"`
	Status         DeliveryStatus   `json:"status"`
	RegistrationID *string          `json:"registration_id,omitempty"`
	Metadata       DeliveryMetadata `json:"metadata"`
	SentAt         time.Time        `json:"sent_at"`
	OpenedAt       *time.Time       `json:"opened_at,omitempty"`
	ClickedAt      *time.Time       `json:"clicked_at,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// DeliveryTransitions lists the tracking moves a record may make. failed is
// terminal and nothing moves back to sent.
var DeliveryTransitions = map[DeliveryStatus][]DeliveryStatus{
	DeliveryStatusSent:   {DeliveryStatusOpened, DeliveryStatusClicked},
	DeliveryStatusOpened: {DeliveryStatusClicked},
}

// CanAdvance reports whether a record in status from may be moved to to.
func CanAdvance(from, to DeliveryStatus) bool {
	for _, s := range DeliveryTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// AdvanceSources returns the statuses from which to is reachable.
func AdvanceSources(to DeliveryStatus) []DeliveryStatus {
	var out []DeliveryStatus
	for _, from := range []DeliveryStatus{DeliveryStatusSent, DeliveryStatusOpened, DeliveryStatusClicked, DeliveryStatusFailed} {
		if CanAdvance(from, to) {
			out = append(out, from)
		}
	}
	return out
}
