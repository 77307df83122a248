package querystate

import (
	"strings"

	"github.com/dalemusser/membersadmin/internal/app/system/normalize"
	"github.com/dalemusser/membersadmin/internal/domain/models"
	"github.com/oapi-codegen/nullable"
)

// FilterPatch is a partial filter update. An absent field is left as is, an
// explicit null clears it, and a value replaces it.
type FilterPatch struct {
	Names                nullable.Nullable[[]string] `json:"names,omitempty"`
	Emails               nullable.Nullable[[]string] `json:"emails,omitempty"`
	Mobiles              nullable.Nullable[[]string] `json:"mobiles,omitempty"`
	Domains              nullable.Nullable[[]string] `json:"domains,omitempty"`
	Usernames            nullable.Nullable[[]string] `json:"usernames,omitempty"`
	Statuses             nullable.Nullable[[]string] `json:"statuses,omitempty"`
	VerificationStatuses nullable.Nullable[[]string] `json:"verificationStatuses,omitempty"`
	RegisteredFrom       nullable.Nullable[string]   `json:"registeredFrom,omitempty"`
	RegisteredTo         nullable.Nullable[string]   `json:"registeredTo,omitempty"`
	LastActiveFrom       nullable.Nullable[string]   `json:"lastActiveFrom,omitempty"`
	LastActiveTo         nullable.Nullable[string]   `json:"lastActiveTo,omitempty"`
}

// Set returns a patch value that replaces a list field.
func Set(values ...string) nullable.Nullable[[]string] {
	return nullable.NewNullableWithValue(values)
}

// Clear returns a patch value that empties a field.
func Clear[T any]() nullable.Nullable[T] {
	return nullable.NewNullNullable[T]()
}

// Date returns a patch value that sets a date bound.
func Date(s string) nullable.Nullable[string] {
	return nullable.NewNullableWithValue(s)
}

// Apply merges p into cur and restores the point-search invariant: at most
// one of names, emails and mobiles stays populated, and while one is, the
// domain, status, verification and date filters are cleared.
//
// The winning axis is the one this patch populated; when the patch
// populates several (or none), names beat emails beat mobiles.
func (p FilterPatch) Apply(cur models.MembersFilter) models.MembersFilter {
	next := cur.Clone()

	applyList(&next.Names, p.Names)
	applyList(&next.Emails, p.Emails)
	applyList(&next.Mobiles, p.Mobiles)
	applyList(&next.Domains, p.Domains)
	applyList(&next.Usernames, p.Usernames)
	if raw, set := listValue(p.Statuses); set {
		next.Statuses = accountStatuses(raw)
	}
	if raw, set := listValue(p.VerificationStatuses); set {
		next.VerificationStatuses = verificationStatuses(raw)
	}
	applyDate(&next.RegisteredFrom, p.RegisteredFrom)
	applyDate(&next.RegisteredTo, p.RegisteredTo)
	applyDate(&next.LastActiveFrom, p.LastActiveFrom)
	applyDate(&next.LastActiveTo, p.LastActiveTo)

	axes := []*[]string{&next.Names, &next.Emails, &next.Mobiles}
	edited := []bool{
		populated(p.Names),
		populated(p.Emails),
		populated(p.Mobiles),
	}

	winner := -1
	for i, e := range edited {
		if e && len(*axes[i]) > 0 {
			winner = i
			break
		}
	}
	if winner < 0 {
		for i, a := range axes {
			if len(*a) > 0 {
				winner = i
				break
			}
		}
	}
	if winner < 0 {
		return next
	}

	for i, a := range axes {
		if i != winner {
			*a = nil
		}
	}
	next.Domains = nil
	next.Statuses = nil
	next.VerificationStatuses = nil
	next.RegisteredFrom = ""
	next.RegisteredTo = ""
	next.LastActiveFrom = ""
	next.LastActiveTo = ""
	return next
}

// listValue reports the new list for a specified field; null yields nil.
func listValue(n nullable.Nullable[[]string]) ([]string, bool) {
	if !n.IsSpecified() {
		return nil, false
	}
	if n.IsNull() {
		return nil, true
	}
	v, _ := n.Get()
	return v, true
}

func applyList(dst *[]string, n nullable.Nullable[[]string]) {
	if v, set := listValue(n); set {
		*dst = normalize.Values(v)
	}
}

func applyDate(dst *string, n nullable.Nullable[string]) {
	if !n.IsSpecified() {
		return
	}
	if n.IsNull() {
		*dst = ""
		return
	}
	v, _ := n.Get()
	*dst = strings.TrimSpace(v)
}

// populated reports whether the patch sets a list with a non-blank entry.
func populated(n nullable.Nullable[[]string]) bool {
	v, set := listValue(n)
	return set && len(normalize.Values(v)) > 0
}
