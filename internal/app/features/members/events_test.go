package members_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/membersadmin/internal/testutil"
)

// readEvent returns the next SSE event's name and data, skipping comments.
func readEvent(t *testing.T, br *bufio.Reader) (name, data string) {
	t.Helper()
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			t.Fatalf("read event: %v (partial %q)", err, line)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if name != "" {
				return name, data
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestServeStateEvents(t *testing.T) {
	f := newFixture(t, 23)
	user := testutil.AdminUser()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.router.ServeHTTP(w, testutil.WithUser(r, user))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/state/events", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}
	br := bufio.NewReader(resp.Body)

	name, data := readEvent(t, br)
	var first pageBody
	if err := json.Unmarshal([]byte(data), &first); err != nil {
		t.Fatalf("decode first event: %v", err)
	}
	if name != "state" || first.Total != 0 || first.PageSize != 10 || first.Data == nil {
		t.Errorf("first event = %s %+v, want an empty state with page size 10", name, first)
	}

	post, err := http.Post(srv.URL+"/state/page-size", "application/json", strings.NewReader(`{"pageSize":25}`))
	if err != nil {
		t.Fatalf("POST page-size: %v", err)
	}
	post.Body.Close()
	if post.StatusCode != http.StatusOK {
		t.Fatalf("POST page-size status = %d", post.StatusCode)
	}

	// A loading snapshot may arrive before the settled one.
	var settled pageBody
	for {
		name, data = readEvent(t, br)
		if name != "state" {
			t.Fatalf("unexpected event %q", name)
		}
		if err := json.Unmarshal([]byte(data), &settled); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if !settled.Loading {
			break
		}
	}
	if settled.Total != 23 || settled.PageSize != 25 || len(settled.Data) != 23 {
		t.Errorf("settled = total %d size %d rows %d, want 23/25/23", settled.Total, settled.PageSize, len(settled.Data))
	}

	f.states.Drop(user.SessionID)
	for {
		name, _ = readEvent(t, br)
		if name == "closed" {
			break
		}
	}
}

func TestServeStateEvents_ReportsFetchError(t *testing.T) {
	f := newFixture(t, 5)
	user := testutil.ExpiredUser()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.router.ServeHTTP(w, testutil.WithUser(r, user))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/state/events", nil)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer resp.Body.Close()
	br := bufio.NewReader(resp.Body)
	readEvent(t, br)

	post, err := http.Post(srv.URL+"/state/refresh", "application/json", nil)
	if err != nil {
		t.Fatalf("POST refresh: %v", err)
	}
	post.Body.Close()

	var ev struct {
		Loading bool   `json:"loading"`
		Error   string `json:"error"`
	}
	for {
		_, data := readEvent(t, br)
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if !ev.Loading {
			break
		}
	}
	if ev.Error != "unauthorized" {
		t.Errorf("error = %q, want unauthorized", ev.Error)
	}
}
