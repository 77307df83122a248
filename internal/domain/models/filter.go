package models

// MembersFilter is the operator's filter selection. Every non-empty field
// narrows the roster; fields are AND-ed together.
//
// Names, Emails and Mobiles are the point-search axes. At most one of them
// is non-empty in state held by the query-state reconciler, and while one is
// set every other field is cleared.
type MembersFilter struct {
	Names                []string             `json:"names"`
	Emails               []string             `json:"emails"`
	Mobiles              []string             `json:"mobiles"`
	Domains              []string             `json:"domains"`
	Usernames            []string             `json:"usernames"`
	Statuses             []AccountStatus      `json:"statuses"`
	VerificationStatuses []VerificationStatus `json:"verificationStatuses"`
	RegisteredFrom       string               `json:"registeredFrom,omitempty"`
	RegisteredTo         string               `json:"registeredTo,omitempty"`
	LastActiveFrom       string               `json:"lastActiveFrom,omitempty"`
	LastActiveTo         string               `json:"lastActiveTo,omitempty"`
}

// HasPointSearch reports whether any point-search axis is populated.
func (f MembersFilter) HasPointSearch() bool {
	return len(f.Names) > 0 || len(f.Emails) > 0 || len(f.Mobiles) > 0
}

// IsZero reports whether the filter selects the whole roster.
func (f MembersFilter) IsZero() bool {
	return !f.HasPointSearch() &&
		len(f.Domains) == 0 &&
		len(f.Usernames) == 0 &&
		len(f.Statuses) == 0 &&
		len(f.VerificationStatuses) == 0 &&
		f.RegisteredFrom == "" && f.RegisteredTo == "" &&
		f.LastActiveFrom == "" && f.LastActiveTo == ""
}

// Clone returns a deep copy so callers can hand state out without sharing
// backing arrays.
func (f MembersFilter) Clone() MembersFilter {
	out := f
	out.Names = cloneSlice(f.Names)
	out.Emails = cloneSlice(f.Emails)
	out.Mobiles = cloneSlice(f.Mobiles)
	out.Domains = cloneSlice(f.Domains)
	out.Usernames = cloneSlice(f.Usernames)
	out.Statuses = cloneSlice(f.Statuses)
	out.VerificationStatuses = cloneSlice(f.VerificationStatuses)
	return out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// Pagination is a 1-based page-number position.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// FilterOptions holds the distinct values offered in the filter pickers.
type FilterOptions struct {
	Names     []string `json:"names"`
	Domains   []string `json:"domains"`
	Emails    []string `json:"emails"`
	Mobiles   []string `json:"mobiles"`
	Usernames []string `json:"usernames"`
}
