// Package normalize maps upstream member payloads onto models.Member and
// canonicalizes operator-entered filter values.
//
// The backend has shipped two shapes over time: the current one
// (emailAddress, mobileNumber, dateTimeCreated, dateTimeLastActive and
// SCREAMING_CASE enums) and an older one (email, mobile, dateRegistered,
// lastActive and Capitalized enums). Record accepts both.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/membersadmin/internal/app/system/htmlsanitize"
	"github.com/dalemusser/membersadmin/internal/domain/models"
	"github.com/oapi-codegen/nullable"
)

// ErrIncompleteRecord is returned when a required field is missing, null, or
// holds a value outside the fixed enum.
var ErrIncompleteRecord = errors.New("incomplete member record")

// Record is a member as the backend sends it. Fields are nullable so that an
// explicit null can be told apart from an absent key.
type Record struct {
	ID                 nullable.Nullable[json.RawMessage] `json:"id,omitempty"`
	Name               nullable.Nullable[string]          `json:"name,omitempty"`
	Username           nullable.Nullable[string]          `json:"username,omitempty"`
	VerificationStatus nullable.Nullable[string]          `json:"verificationStatus,omitempty"`
	Status             nullable.Nullable[string]          `json:"status,omitempty"`
	AccountStatus      nullable.Nullable[string]          `json:"accountStatus,omitempty"`
	Email              nullable.Nullable[string]          `json:"email,omitempty"`
	EmailAddress       nullable.Nullable[string]          `json:"emailAddress,omitempty"`
	Mobile             nullable.Nullable[string]          `json:"mobile,omitempty"`
	MobileNumber       nullable.Nullable[string]          `json:"mobileNumber,omitempty"`
	Domain             nullable.Nullable[string]          `json:"domain,omitempty"`
	DateRegistered     nullable.Nullable[string]          `json:"dateRegistered,omitempty"`
	DateTimeCreated    nullable.Nullable[string]          `json:"dateTimeCreated,omitempty"`
	LastActive         nullable.Nullable[string]          `json:"lastActive,omitempty"`
	DateTimeLastActive nullable.Nullable[string]          `json:"dateTimeLastActive,omitempty"`
	Balance            nullable.Nullable[float64]         `json:"balance,omitempty"`
}

// Member converts one upstream record. Required fields are id, name,
// verification status and account status; everything else degrades to the
// zero value.
func Member(rec Record) (models.Member, error) {
	id, ok := memberID(rec.ID)
	if !ok {
		return models.Member{}, fmt.Errorf("%w: id", ErrIncompleteRecord)
	}

	name := display(rec.Name)
	if name == "" {
		return models.Member{}, fmt.Errorf("%w: name (id %s)", ErrIncompleteRecord, id)
	}

	vs, ok := VerificationStatus(first(rec.VerificationStatus))
	if !ok {
		return models.Member{}, fmt.Errorf("%w: verificationStatus (id %s)", ErrIncompleteRecord, id)
	}

	as, ok := AccountStatus(first(rec.Status, rec.AccountStatus))
	if !ok {
		return models.Member{}, fmt.Errorf("%w: status (id %s)", ErrIncompleteRecord, id)
	}

	m := models.Member{
		ID:                 id,
		Name:               name,
		Username:           display(rec.Username),
		VerificationStatus: vs,
		AccountStatus:      as,
		Email:              first(rec.EmailAddress, rec.Email),
		Mobile:             first(rec.MobileNumber, rec.Mobile),
		Domain:             first(rec.Domain),
		DateRegistered:     first(rec.DateTimeCreated, rec.DateRegistered),
		LastActive:         first(rec.DateTimeLastActive, rec.LastActive),
	}
	if b, err := rec.Balance.Get(); err == nil {
		m.Balance = &b
	}
	return m, nil
}

// Members converts a batch and stops at the first incomplete record.
func Members(recs []Record) ([]models.Member, error) {
	out := make([]models.Member, 0, len(recs))
	for _, rec := range recs {
		m, err := Member(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// VerificationStatus parses any casing of VERIFIED, PENDING or UNVERIFIED.
func VerificationStatus(s string) (models.VerificationStatus, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "VERIFIED":
		return models.VerificationVerified, true
	case "PENDING":
		return models.VerificationPending, true
	case "UNVERIFIED":
		return models.VerificationUnverified, true
	}
	return "", false
}

// AccountStatus parses any casing of ACTIVE, DISABLED or BLOCKLISTED. The
// legacy BLACKLISTED spelling maps to Blocklisted.
func AccountStatus(s string) (models.AccountStatus, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ACTIVE":
		return models.StatusActive, true
	case "DISABLED":
		return models.StatusDisabled, true
	case "BLOCKLISTED", "BLACKLISTED":
		return models.StatusBlocklisted, true
	}
	return "", false
}

// Values trims each entry, drops blanks and removes duplicates while keeping
// first-seen order. It returns nil when nothing is left.
func Values(in []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// first returns the first specified, non-null, non-blank value, trimmed.
// Identifiers and lookup keys go through here untouched so that exact-match
// filters still see what the backend sent.
func first(fields ...nullable.Nullable[string]) string {
	return pick(fields, strings.TrimSpace)
}

// display is first with markup removed, for fields only ever shown as text.
func display(fields ...nullable.Nullable[string]) string {
	return pick(fields, func(v string) string {
		return strings.TrimSpace(htmlsanitize.PlainText(v))
	})
}

func pick(fields []nullable.Nullable[string], clean func(string) string) string {
	for _, f := range fields {
		v, err := f.Get()
		if err != nil {
			continue
		}
		if v = clean(v); v != "" {
			return v
		}
	}
	return ""
}

// memberID accepts a JSON string or number and returns its text form.
func memberID(raw nullable.Nullable[json.RawMessage]) (string, bool) {
	v, err := raw.Get()
	if err != nil {
		return "", false
	}
	v = bytes.TrimSpace(v)
	if len(v) == 0 {
		return "", false
	}

	switch c := v[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return "", false
		}
		s = strings.TrimSpace(s)
		return s, s != ""
	case c == '-' || (c >= '0' && c <= '9'):
		var n json.Number
		if err := json.Unmarshal(v, &n); err != nil {
			return "", false
		}
		return n.String(), true
	}
	return "", false
}
