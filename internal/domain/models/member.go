package models

// VerificationStatus is the identity-verification state of a member.
type VerificationStatus string

const (
	VerificationVerified   VerificationStatus = "Verified"
	VerificationPending    VerificationStatus = "Pending"
	VerificationUnverified VerificationStatus = "Unverified"
)

// VerificationStatuses lists every verification status in display order.
func VerificationStatuses() []VerificationStatus {
	return []VerificationStatus{VerificationVerified, VerificationPending, VerificationUnverified}
}

// AccountStatus is the administrative state of a member account.
type AccountStatus string

const (
	StatusActive      AccountStatus = "Active"
	StatusDisabled    AccountStatus = "Disabled"
	StatusBlocklisted AccountStatus = "Blocklisted"
)

// AccountStatuses lists every account status in display order.
func AccountStatuses() []AccountStatus {
	return []AccountStatus{StatusActive, StatusDisabled, StatusBlocklisted}
}

// Member is the canonical member record used by every filtering, search and
// pagination step. Upstream variants are mapped onto it at the client
// boundary (see system/normalize).
//
// Timestamps are kept as the ISO-8601 strings the backend sent; they are
// parsed only when a date-range filter is evaluated.
type Member struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	Username           string             `json:"username,omitempty"`
	VerificationStatus VerificationStatus `json:"verificationStatus"`
	AccountStatus      AccountStatus      `json:"status"`
	Email              string             `json:"email"`
	Mobile             string             `json:"mobile"`
	Domain             string             `json:"domain"`
	DateRegistered     string             `json:"dateRegistered"`
	LastActive         string             `json:"lastActive"`
	Balance            *float64           `json:"balance,omitempty"`
}
