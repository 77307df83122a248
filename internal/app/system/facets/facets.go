// Package facets derives the option lists shown in the filter pickers.
package facets

import (
	"slices"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dalemusser/membersadmin/internal/domain/models"
)

// Build returns the distinct, non-blank values of each facet field sorted
// in ascending byte order. It is a pure function of ms.
func Build(ms []models.Member) models.FilterOptions {
	names := make(map[string]struct{})
	domains := make(map[string]struct{})
	emails := make(map[string]struct{})
	mobiles := make(map[string]struct{})
	usernames := make(map[string]struct{})

	for _, m := range ms {
		add(names, m.Name)
		add(domains, m.Domain)
		add(emails, m.Email)
		add(mobiles, m.Mobile)
		add(usernames, m.Username)
	}

	return models.FilterOptions{
		Names:     sorted(names),
		Domains:   sorted(domains),
		Emails:    sorted(emails),
		Mobiles:   sorted(mobiles),
		Usernames: sorted(usernames),
	}
}

func add(set map[string]struct{}, v string) {
	if strings.TrimSpace(v) == "" {
		return
	}
	set[v] = struct{}{}
}

func sorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// Key digests the facet-relevant content of a roster. Two rosters with the
// same members in the same order share a key.
func Key(ms []models.Member) uint64 {
	d := xxhash.New()
	for _, m := range ms {
		for _, s := range [...]string{m.ID, m.Name, m.Domain, m.Email, m.Mobile, m.Username} {
			_, _ = d.WriteString(s)
			_, _ = d.Write([]byte{0})
		}
		_, _ = d.Write([]byte{1})
	}
	return d.Sum64()
}

// DefaultMemoSize bounds a Memo created with a non-positive capacity.
const DefaultMemoSize = 64

// Memo caches Build results keyed by roster content. When full it evicts the
// oldest entry. It is safe for concurrent use.
type Memo struct {
	mu       sync.Mutex
	capacity int
	entries  map[uint64]models.FilterOptions
	order    []uint64
	hits     int
	misses   int
}

// NewMemo creates a Memo holding at most capacity rosters.
func NewMemo(capacity int) *Memo {
	if capacity <= 0 {
		capacity = DefaultMemoSize
	}
	return &Memo{
		capacity: capacity,
		entries:  make(map[uint64]models.FilterOptions, capacity),
	}
}

// Options returns Build(ms), reusing a cached result when the roster content
// has been seen before. The returned slices are shared and must not be
// modified.
func (m *Memo) Options(ms []models.Member) models.FilterOptions {
	key := Key(ms)

	m.mu.Lock()
	if opts, ok := m.entries[key]; ok {
		m.hits++
		m.mu.Unlock()
		return opts
	}
	m.misses++
	m.mu.Unlock()

	opts := Build(ms)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; !ok {
		if len(m.order) >= m.capacity {
			oldest := m.order[0]
			m.order = m.order[1:]
			delete(m.entries, oldest)
		}
		m.order = append(m.order, key)
	}
	m.entries[key] = opts
	return opts
}

// Stats returns cache hit and miss counts.
func (m *Memo) Stats() (hits, misses int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits, m.misses
}

// Len returns the number of cached rosters.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
