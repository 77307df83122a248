package querystate

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/dalemusser/membersadmin/internal/app/system/normalize"
	"github.com/dalemusser/membersadmin/internal/app/system/paging"
	"github.com/dalemusser/membersadmin/internal/domain/models"
)

// Query-string keys shared by Encode and Decode.
const (
	keyPage                 = "page"
	keyPageSize             = "pageSize"
	keyNames                = "names"
	keyEmails               = "emails"
	keyMobiles              = "mobiles"
	keyDomains              = "domains"
	keyUsernames            = "usernames"
	keyStatuses             = "statuses"
	keyVerificationStatuses = "verificationStatuses"
	keyRegisteredFrom       = "registeredFrom"
	keyRegisteredTo         = "registeredTo"
	keyLastActiveFrom       = "lastActiveFrom"
	keyLastActiveTo         = "lastActiveTo"
)

// Encode renders a filter and position as query values. List fields repeat
// their key once per value; empty fields are omitted.
func Encode(f models.MembersFilter, p models.Pagination) url.Values {
	v := url.Values{}
	v.Set(keyPage, strconv.Itoa(p.Page))
	v.Set(keyPageSize, strconv.Itoa(p.PageSize))

	addAll(v, keyNames, f.Names)
	addAll(v, keyEmails, f.Emails)
	addAll(v, keyMobiles, f.Mobiles)
	addAll(v, keyDomains, f.Domains)
	addAll(v, keyUsernames, f.Usernames)
	for _, s := range f.Statuses {
		v.Add(keyStatuses, strings.ToUpper(string(s)))
	}
	for _, s := range f.VerificationStatuses {
		v.Add(keyVerificationStatuses, strings.ToUpper(string(s)))
	}

	setIf(v, keyRegisteredFrom, f.RegisteredFrom)
	setIf(v, keyRegisteredTo, f.RegisteredTo)
	setIf(v, keyLastActiveFrom, f.LastActiveFrom)
	setIf(v, keyLastActiveTo, f.LastActiveTo)
	return v
}

// Decode reads a filter and position from query values. Page and page size
// fall back to 1 and the default size; list entries are trimmed with blanks
// and duplicates dropped; unknown status tokens are ignored.
func Decode(v url.Values) (models.MembersFilter, models.Pagination) {
	f := models.MembersFilter{
		Names:          normalize.Values(v[keyNames]),
		Emails:         normalize.Values(v[keyEmails]),
		Mobiles:        normalize.Values(v[keyMobiles]),
		Domains:        normalize.Values(v[keyDomains]),
		Usernames:      normalize.Values(v[keyUsernames]),
		RegisteredFrom: strings.TrimSpace(v.Get(keyRegisteredFrom)),
		RegisteredTo:   strings.TrimSpace(v.Get(keyRegisteredTo)),
		LastActiveFrom: strings.TrimSpace(v.Get(keyLastActiveFrom)),
		LastActiveTo:   strings.TrimSpace(v.Get(keyLastActiveTo)),
	}
	f.Statuses = accountStatuses(v[keyStatuses])
	f.VerificationStatuses = verificationStatuses(v[keyVerificationStatuses])

	p := models.Pagination{
		Page:     paging.PageValue(v.Get(keyPage)),
		PageSize: paging.PageSizeValue(v.Get(keyPageSize)),
	}
	return f, p
}

func accountStatuses(raw []string) []models.AccountStatus {
	var out []models.AccountStatus
	for _, s := range normalize.Values(raw) {
		if st, ok := normalize.AccountStatus(s); ok && !containsValue(out, st) {
			out = append(out, st)
		}
	}
	return out
}

func verificationStatuses(raw []string) []models.VerificationStatus {
	var out []models.VerificationStatus
	for _, s := range normalize.Values(raw) {
		if st, ok := normalize.VerificationStatus(s); ok && !containsValue(out, st) {
			out = append(out, st)
		}
	}
	return out
}

func containsValue[T comparable](s []T, v T) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func addAll(v url.Values, key string, values []string) {
	for _, s := range values {
		v.Add(key, s)
	}
}

func setIf(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}
