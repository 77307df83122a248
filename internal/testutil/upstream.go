package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// UpstreamToken is the bearer token the fake upstream accepts.
const UpstreamToken = "mock-admin-token"

// FakeAdmin is an operator account known to the fake upstream.
type FakeAdmin struct {
	Password string
	Name     string
}

// FakeUpstream is an in-process stand-in for the member backend. It serves
// the GraphQL roster connection, the REST search endpoints, the REST roster
// and the operator login endpoint.
type FakeUpstream struct {
	Server *httptest.Server

	mu            sync.Mutex
	records       []map[string]any
	admins        map[string]FakeAdmin
	calls         map[string]int
	queries       []string
	filters       []map[string]any
	failAxis      string
	graphqlErrors bool
}

// NewFakeUpstream starts a fake backend holding records. It is closed when
// the test ends.
func NewFakeUpstream(t *testing.T, records []map[string]any) *FakeUpstream {
	t.Helper()

	f := &FakeUpstream{
		records: records,
		admins:  map[string]FakeAdmin{"admin": {Password: "secret", Name: "Ada Admin"}},
		calls:   make(map[string]int),
	}

	r := chi.NewRouter()
	r.Post("/login", f.serveLogin)
	r.Group(func(pr chi.Router) {
		pr.Use(f.requireToken)
		pr.Post("/graphql", f.serveGraphQL)
		pr.Get("/members", f.serveRoster)
		pr.Get("/members/search/{axis}", f.serveSearch)
	})

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the base URL of the REST endpoints.
func (f *FakeUpstream) URL() string { return f.Server.URL }

// GraphQLURL is the GraphQL endpoint.
func (f *FakeUpstream) GraphQLURL() string { return f.Server.URL + "/graphql" }

// LoginURL is the operator login endpoint.
func (f *FakeUpstream) LoginURL() string { return f.Server.URL + "/login" }

// SetRecords replaces the served roster.
func (f *FakeUpstream) SetRecords(records []map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = records
}

// FailAxis makes searches on axis ("name", "email" or "mobile") answer 500.
func (f *FakeUpstream) FailAxis(axis string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAxis = axis
}

// GraphQLErrors makes the GraphQL endpoint answer with an errors payload.
func (f *FakeUpstream) GraphQLErrors(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.graphqlErrors = on
}

// Calls returns how many requests hit path (e.g. "/graphql").
func (f *FakeUpstream) Calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

// SearchQueries returns the q values received by the search endpoints, in
// arrival order.
func (f *FakeUpstream) SearchQueries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.queries)
}

// Filters returns the GraphQL filter variables received, one per request.
func (f *FakeUpstream) Filters() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.filters)
}

func (f *FakeUpstream) count(path string) {
	f.mu.Lock()
	f.calls[path]++
	f.mu.Unlock()
}

func (f *FakeUpstream) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+UpstreamToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeUpstream) serveLogin(w http.ResponseWriter, r *http.Request) {
	f.count("/login")

	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Username == "" || body.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Username and password are required"})
		return
	}

	f.mu.Lock()
	admin, ok := f.admins[body.Username]
	f.mu.Unlock()
	if !ok || admin.Password != body.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": UpstreamToken,
		"admin": map[string]string{"username": body.Username, "name": admin.Name},
	})
}

func (f *FakeUpstream) serveRoster(w http.ResponseWriter, r *http.Request) {
	f.count("/members")
	f.mu.Lock()
	records := slices.Clone(f.records)
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, records)
}

var searchFields = map[string]string{
	"name":   "name",
	"email":  "emailAddress",
	"mobile": "mobileNumber",
}

func (f *FakeUpstream) serveSearch(w http.ResponseWriter, r *http.Request) {
	axis := chi.URLParam(r, "axis")
	f.count("/members/search/" + axis)

	field, ok := searchFields[axis]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not found"})
		return
	}

	q := strings.ToLower(r.URL.Query().Get("q"))

	f.mu.Lock()
	f.queries = append(f.queries, q)
	failing := f.failAxis == axis
	records := slices.Clone(f.records)
	f.mu.Unlock()

	if failing {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "search failed"})
		return
	}

	out := make([]map[string]any, 0)
	for _, rec := range records {
		v, _ := rec[field].(string)
		if q == "" || strings.Contains(strings.ToLower(v), q) {
			out = append(out, rec)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeUpstream) serveGraphQL(w http.ResponseWriter, r *http.Request) {
	f.count("/graphql")

	var req struct {
		Query     string `json:"query"`
		Variables struct {
			First  int            `json:"first"`
			After  *string        `json:"after"`
			Filter map[string]any `json:"filter"`
		} `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad request"})
		return
	}

	f.mu.Lock()
	f.filters = append(f.filters, req.Variables.Filter)
	withErrors := f.graphqlErrors
	records := slices.Clone(f.records)
	f.mu.Unlock()

	if withErrors {
		writeJSON(w, http.StatusOK, map[string]any{
			"data":   nil,
			"errors": []map[string]string{{"message": "Access denied"}},
		})
		return
	}

	matched := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		if matchGraphQLFilter(rec, req.Variables.Filter) {
			matched = append(matched, rec)
		}
	}

	offset := 0
	if req.Variables.After != nil {
		offset, _ = strconv.Atoi(*req.Variables.After)
	}
	first := req.Variables.First
	if first <= 0 {
		first = len(matched)
	}
	end := min(offset+first, len(matched))
	if offset > end {
		offset = end
	}

	edges := make([]map[string]any, 0, end-offset)
	for _, rec := range matched[offset:end] {
		edges = append(edges, map[string]any{"node": rec})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"members": map[string]any{
				"edges": edges,
				"pageInfo": map[string]any{
					"hasNextPage": end < len(matched),
					"endCursor":   strconv.Itoa(end),
				},
			},
		},
	})
}

// matchGraphQLFilter supports the "in" operator on status,
// verificationStatus and domain. Date filters are accepted and ignored.
func matchGraphQLFilter(rec map[string]any, filter map[string]any) bool {
	for _, field := range []string{"status", "verificationStatus", "domain"} {
		cond, ok := filter[field].(map[string]any)
		if !ok {
			continue
		}
		values, _ := cond["in"].([]any)
		v, _ := rec[field].(string)
		found := false
		for _, want := range values {
			if s, _ := want.(string); s == v {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
