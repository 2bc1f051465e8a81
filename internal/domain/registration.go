package domain

import "time"

type RegistrationStatus string

const (
	RegistrationStatusPending  RegistrationStatus = "pending"
	RegistrationStatusApproved RegistrationStatus = "approved"
	RegistrationStatusRejected RegistrationStatus = "rejected"
)

// Valid reports whether s is one of the three stored statuses.
func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationStatusPending, RegistrationStatusApproved, RegistrationStatusRejected:
		return true
	}
	return false
}

// Registration is an access request submitted by a prospective user.
type Registration struct {
	ID                   string             `json:"id"`
	Email                string             `json:"email"`
	FullName             string             `json:"full_name"`
	PhoneNumber          string             `json:"phone_number"`
	Preferences          string             `json:"preferences"` // comma-delimited tags
	Notes                string             `json:"notes"`
	Status               RegistrationStatus `json:"status"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
	LastNotificationSent *time.Time         `json:"last_notification_sent,omitempty"`
}

type transition struct {
	from RegistrationStatus
	to   RegistrationStatus
}

// RegistrationTransitions is the single allow-list of operator-driven status
// changes. approved -> approved is the resend path.
var RegistrationTransitions = map[transition]bool{
	{RegistrationStatusPending, RegistrationStatusApproved}:  true,
	{RegistrationStatusPending, RegistrationStatusRejected}:  true,
	{RegistrationStatusApproved, RegistrationStatusApproved}: true,
}

// CanTransition reports whether a registration in status from may be moved to to.
func CanTransition(from, to RegistrationStatus) bool {
	return RegistrationTransitions[transition{from, to}]
}

// SortField is a whitelisted column for ordering registration listings.
type SortField string

const (
	SortByCreatedAt SortField = "created_at"
	SortByUpdatedAt SortField = "updated_at"
	SortByEmail     SortField = "email"
	SortByFullName  SortField = "full_name"
	SortByStatus    SortField = "status"
)

func (f SortField) Valid() bool {
	switch f {
	case SortByCreatedAt, SortByUpdatedAt, SortByEmail, SortByFullName, SortByStatus:
		return true
	}
	return false
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// RegistrationFilter drives the paged admin listing.
type RegistrationFilter struct {
	Status     RegistrationStatus // empty means any
	Search     string             // matched against email, full name and phone
	Preference string             // substring of the preferences field
	SortField  SortField
	SortDesc   bool
	Page       int // 1-based
	PageSize   int
}

// Normalize fills defaults and clamps paging values.
func (f RegistrationFilter) Normalize() RegistrationFilter {
	if !f.SortField.Valid() {
		f.SortField = SortByCreatedAt
		f.SortDesc = true
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	return f
}

// Offset returns the row offset of the filter's page.
func (f RegistrationFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// MatchMode selects how FindByEmail compares addresses.
type MatchMode int

const (
	MatchExact MatchMode = iota
	MatchCaseInsensitive
)
