package logout_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/membersadmin/internal/app/features/logout"
	"github.com/dalemusser/membersadmin/internal/app/system/auditlog"
	"github.com/dalemusser/membersadmin/internal/testutil"
	"go.uber.org/zap"
)

type recordingDropper struct{ dropped []string }

func (d *recordingDropper) Drop(id string) { d.dropped = append(d.dropped, id) }

func newTestRouter(t *testing.T) (http.Handler, *recordingDropper) {
	t.Helper()
	d := &recordingDropper{}
	h := logout.NewHandler(testutil.NewSessionManager(t), d, auditlog.New(nil, zap.NewNop(), auditlog.Config{}), zap.NewNop())
	return logout.Routes(h), d
}

func TestServeLogout(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		headers  map[string]string
		wantCode int
		check    func(t *testing.T, rec *testutil.ResponseRecorder)
	}{
		{
			name:     "api post",
			method:   "POST",
			wantCode: http.StatusOK,
			check: func(t *testing.T, rec *testutil.ResponseRecorder) {
				rec.AssertContains(t, `"isAuthenticated":false`)
			},
		},
		{
			name:     "browser get redirects",
			method:   "GET",
			headers:  map[string]string{"Accept": "text/html"},
			wantCode: http.StatusSeeOther,
			check: func(t *testing.T, rec *testutil.ResponseRecorder) {
				rec.AssertRedirect(t, "/login")
			},
		},
		{
			name:     "htmx",
			method:   "POST",
			headers:  map[string]string{"HX-Request": "true"},
			wantCode: http.StatusOK,
			check: func(t *testing.T, rec *testutil.ResponseRecorder) {
				if got := rec.Header().Get("HX-Redirect"); got != "/login" {
					t.Errorf("HX-Redirect = %q, want /login", got)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, d := newTestRouter(t)
			user := testutil.AdminUser()

			req := testutil.NewAuthenticatedRequest(tt.method, "/", user)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := testutil.NewRecorder()
			router.ServeHTTP(rec, req)

			rec.AssertStatus(t, tt.wantCode)
			tt.check(t, rec)

			c := rec.SessionCookie(testutil.SessionName)
			if c == nil || c.MaxAge >= 0 {
				t.Errorf("expected an expiring session cookie, got %+v", c)
			}
			if len(d.dropped) != 1 || d.dropped[0] != user.SessionID {
				t.Errorf("dropped = %v, want [%s]", d.dropped, user.SessionID)
			}
		})
	}
}

func TestServeLogout_WithoutSession(t *testing.T) {
	router, d := newTestRouter(t)

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewRequest("POST", "/"))

	rec.AssertStatus(t, http.StatusOK)
	if len(d.dropped) != 0 {
		t.Errorf("nothing to drop without a session, got %v", d.dropped)
	}
}
