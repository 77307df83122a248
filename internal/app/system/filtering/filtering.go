// Package filtering evaluates a MembersFilter against members in memory.
package filtering

import (
	"strings"
	"time"

	"github.com/dalemusser/membersadmin/internal/domain/models"
)

// timestampLayouts are tried in order. Layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp or calendar date.
// A date without a time is midnight UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Match reports whether m satisfies every populated predicate of f.
func Match(m models.Member, f models.MembersFilter) bool {
	ok, _ := compile(f).match(m)
	return ok
}

// Apply returns the members of ms that satisfy f, in their original order,
// and the number of members excluded only because a timestamp needed by an
// active date range could not be parsed.
func Apply(ms []models.Member, f models.MembersFilter) ([]models.Member, int) {
	c := compile(f)
	out := make([]models.Member, 0, len(ms))
	skipped := 0
	for _, m := range ms {
		ok, skip := c.match(m)
		if skip {
			skipped++
		}
		if ok {
			out = append(out, m)
		}
	}
	return out, skipped
}

// dateRange is active as soon as either bound is set, even when that bound
// does not parse. An unparseable bound leaves its side open, but members
// still need a parseable timestamp to pass.
type dateRange struct {
	bounded        bool
	from, to       time.Time
	hasFrom, hasTo bool
}

func newDateRange(from, to string) dateRange {
	r := dateRange{bounded: strings.TrimSpace(from) != "" || strings.TrimSpace(to) != ""}
	r.from, r.hasFrom = ParseTimestamp(from)
	r.to, r.hasTo = ParseTimestamp(to)
	return r
}

func (r dateRange) active() bool { return r.bounded }

// contains checks value against the inclusive bounds. The second result is
// true when the range is active and value does not parse.
func (r dateRange) contains(value string) (bool, bool) {
	if !r.active() {
		return true, false
	}
	t, ok := ParseTimestamp(value)
	if !ok {
		return false, true
	}
	if r.hasFrom && t.Before(r.from) {
		return false, false
	}
	if r.hasTo && t.After(r.to) {
		return false, false
	}
	return true, false
}

type compiled struct {
	names, emails, mobiles, domains, usernames map[string]struct{}
	statuses                                   map[models.AccountStatus]struct{}
	verifications                              map[models.VerificationStatus]struct{}
	registered, lastActive                     dateRange
}

func compile(f models.MembersFilter) compiled {
	return compiled{
		names:         set(f.Names),
		emails:        set(f.Emails),
		mobiles:       set(f.Mobiles),
		domains:       set(f.Domains),
		usernames:     set(f.Usernames),
		statuses:      set(f.Statuses),
		verifications: set(f.VerificationStatuses),
		registered:    newDateRange(f.RegisteredFrom, f.RegisteredTo),
		lastActive:    newDateRange(f.LastActiveFrom, f.LastActiveTo),
	}
}

func (c compiled) match(m models.Member) (bool, bool) {
	if !in(c.names, m.Name) ||
		!in(c.emails, m.Email) ||
		!in(c.mobiles, m.Mobile) ||
		!in(c.domains, m.Domain) ||
		!in(c.usernames, m.Username) ||
		!in(c.statuses, m.AccountStatus) ||
		!in(c.verifications, m.VerificationStatus) {
		return false, false
	}
	if ok, skip := c.registered.contains(m.DateRegistered); !ok {
		return false, skip
	}
	return c.lastActive.contains(m.LastActive)
}

// set returns nil for an empty selection; a nil set matches everything.
func set[T comparable](values []T) map[T]struct{} {
	if len(values) == 0 {
		return nil
	}
	out := make(map[T]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}

func in[T comparable](s map[T]struct{}, v T) bool {
	if s == nil {
		return true
	}
	_, ok := s[v]
	return ok
}
