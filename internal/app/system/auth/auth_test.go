package auth_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/membersadmin/internal/app/system/auth"
	"go.uber.org/zap"
)

func newTestSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(
		"test-session-key-must-be-32-chars-long",
		"test-session",
		"",
		24*time.Hour,
		false,
		zap.NewNop(),
	)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewSessionManager_Validation(t *testing.T) {
	if _, err := auth.NewSessionManager("", "s", "", time.Hour, false, zap.NewNop()); err == nil {
		t.Error("expected error for empty key")
	}
	if _, err := auth.NewSessionManager("test-session-key-must-be-32-chars-long", "", "", time.Hour, false, zap.NewNop()); err == nil {
		t.Error("expected error for empty name")
	}

	sm, err := auth.NewSessionManager("test-session-key-must-be-32-chars-long", "s", "example.com", time.Hour, true, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	opts := sm.Store().Options
	if !opts.Secure || opts.SameSite != http.SameSiteNoneMode || !opts.HttpOnly {
		t.Errorf("secure options = %+v", opts)
	}
	if opts.MaxAge != 3600 || opts.Domain != "example.com" {
		t.Errorf("MaxAge = %d Domain = %q", opts.MaxAge, opts.Domain)
	}
}

func TestRequireSignedIn_NoUser(t *testing.T) {
	sm := newTestSessionManager(t)
	handler := sm.RequireSignedIn(okHandler())

	tests := []struct {
		name     string
		headers  map[string]string
		wantCode int
		check    func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name:     "html redirects to login",
			headers:  map[string]string{"Accept": "text/html"},
			wantCode: http.StatusSeeOther,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				loc := rec.Header().Get("Location")
				if !strings.HasPrefix(loc, "/login?return=") {
					t.Errorf("expected redirect to /login, got %q", loc)
				}
			},
		},
		{
			name:     "htmx gets HX-Redirect",
			headers:  map[string]string{"HX-Request": "true"},
			wantCode: http.StatusUnauthorized,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				if hx := rec.Header().Get("HX-Redirect"); !strings.HasPrefix(hx, "/login") {
					t.Errorf("expected HX-Redirect to /login, got %q", hx)
				}
			},
		},
		{
			name:     "api gets json 401",
			headers:  map[string]string{"Accept": "application/json"},
			wantCode: http.StatusUnauthorized,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				if !strings.Contains(rec.Body.String(), `"unauthorized"`) {
					t.Errorf("body = %q", rec.Body.String())
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/members?page=2", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			tt.check(t, rec)
		})
	}
}

func TestRequireSignedIn_WithUser(t *testing.T) {
	sm := newTestSessionManager(t)
	called := false
	handler := sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := auth.WithTestUser(httptest.NewRequest("GET", "/members", nil), &auth.SessionUser{Username: "admin", Token: "tok"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called || rec.Code != http.StatusOK {
		t.Errorf("called = %v status = %d", called, rec.Code)
	}
}

func TestSignInRoundTrip(t *testing.T) {
	sm := newTestSessionManager(t)

	rec := httptest.NewRecorder()
	u, err := sm.SignIn(rec, httptest.NewRequest("POST", "/login", nil), auth.SessionUser{
		Username: "admin",
		Name:     "Ada Admin",
		Token:    "mock-admin-token",
	})
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if u.SessionID == "" {
		t.Fatal("SignIn should assign a session id")
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	if strings.Contains(cookies[0].Value, "mock-admin-token") {
		t.Error("token should not appear in the cookie in clear text")
	}

	var got *auth.SessionUser
	handler := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.CurrentUser(r)
	}))
	req := httptest.NewRequest("GET", "/me", nil)
	req.AddCookie(cookies[0])
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil {
		t.Fatal("expected user in context")
	}
	if *got != *u {
		t.Errorf("loaded user = %+v, want %+v", *got, *u)
	}
}

func TestSignOut_ExpiresCookie(t *testing.T) {
	sm := newTestSessionManager(t)

	rec := httptest.NewRecorder()
	if err := sm.SignOut(rec, httptest.NewRequest("POST", "/logout", nil)); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected an expiring cookie, got %+v", cookies)
	}
}

func TestLoadSessionUser_IgnoresBadCookie(t *testing.T) {
	sm := newTestSessionManager(t)

	found := true
	handler := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, found = auth.CurrentUser(r)
	}))
	req := httptest.NewRequest("GET", "/me", nil)
	req.AddCookie(&http.Cookie{Name: sm.Name(), Value: "tampered"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if found {
		t.Error("undecodable cookie should not sign anyone in")
	}
}

func TestCurrentUser_NoUser(t *testing.T) {
	user, ok := auth.CurrentUser(httptest.NewRequest("GET", "/", nil))
	if ok || user != nil {
		t.Errorf("CurrentUser = (%v, %v), want (nil, false)", user, ok)
	}
}
