package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/membersadmin/internal/app/system/timeouts"
	"github.com/dalemusser/membersadmin/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func validAppConfig() AppConfig {
	return AppConfig{
		GraphQLEndpoint:    "http://localhost:4000/graphql",
		APIBaseURL:         "http://localhost:4000",
		AuthLoginEndpoint:  "http://localhost:4000/login",
		UpstreamTimeout:    5 * time.Second,
		RosterPageSize:     50,
		RosterMaxPages:     20,
		SearchConcurrency:  4,
		FacetMemoSize:      8,
		SessionKey:         "test-session-key-must-be-32-chars-long",
		SessionName:        testutil.SessionName,
		SessionMaxAge:      time.Hour,
		StateIdleTTL:       time.Minute,
		StateSweepInterval: time.Minute,
		StateIdleWarning:   30 * time.Second,
		MongoDatabase:      "membersadmin_test",
		AuditLogAuth:       "log",
		AuditLogUpstream:   "off",
		LoginRateLimit:     10,
		LoginUserRateLimit: 5,
		LoginRateWindow:    time.Minute,
		TimeoutShort:       2 * time.Second,
		TimeoutMedium:      5 * time.Second,
		TimeoutLong:        10 * time.Second,
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{"valid", "dev", func(*AppConfig) {}, ""},
		{"rest roster only", "dev", func(c *AppConfig) { c.GraphQLEndpoint = "" }, ""},
		{"relative api url", "dev", func(c *AppConfig) { c.APIBaseURL = "/api" }, "api_base_url"},
		{"bad scheme", "dev", func(c *AppConfig) { c.AuthLoginEndpoint = "ftp://host/login" }, "auth_login_endpoint"},
		{"zero page size", "dev", func(c *AppConfig) { c.RosterPageSize = 0 }, "roster_page_size"},
		{"zero concurrency", "dev", func(c *AppConfig) { c.SearchConcurrency = 0 }, "search_concurrency"},
		{"zero timeout", "dev", func(c *AppConfig) { c.TimeoutMedium = 0 }, "timeout_medium"},
		{"sweep without interval", "dev", func(c *AppConfig) { c.StateSweepInterval = 0 }, "state_sweep_interval"},
		{"negative idle warning", "dev", func(c *AppConfig) { c.StateIdleWarning = -time.Second }, "state_idle_warning"},
		{"sweep disabled", "dev", func(c *AppConfig) { c.StateIdleTTL, c.StateSweepInterval = 0, 0 }, ""},
		{"bad audit setting", "dev", func(c *AppConfig) { c.AuditLogAuth = "everything" }, "audit_log_auth"},
		{"bad mongo uri", "dev", func(c *AppConfig) { c.MongoURI = "postgres://nope" }, "MongoDB URI"},
		{"mongo without database", "dev", func(c *AppConfig) {
			c.MongoURI = "mongodb://localhost:27017"
			c.MongoDatabase = ""
		}, "mongo_database"},
		{"short key in prod", "prod", func(c *AppConfig) { c.SessionKey = "short" }, "session_key"},
		{"short key in dev", "dev", func(c *AppConfig) { c.SessionKey = "short" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validAppConfig()
			tt.mutate(&cfg)

			err := ValidateConfig(&config.CoreConfig{Env: tt.env}, cfg, testLogger())
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestBackground_StopAllReverseOnce(t *testing.T) {
	var order []int
	bg := &Background{}
	for i := 1; i <= 3; i++ {
		i := i
		bg.Add(func() { order = append(order, i) })
	}

	bg.StopAll()
	bg.StopAll()

	if diff := cmp.Diff([]int{3, 2, 1}, order); diff != "" {
		t.Errorf("stop order mismatch (-want +got):\n%s", diff)
	}
}

func TestStartup_ConfiguresTimeouts(t *testing.T) {
	t.Cleanup(timeouts.Reset)

	cfg := validAppConfig()
	if err := Startup(context.Background(), &config.CoreConfig{Env: "dev"}, cfg, DBDeps{}, testLogger()); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	if timeouts.Short() != cfg.TimeoutShort || timeouts.Medium() != cfg.TimeoutMedium || timeouts.Long() != cfg.TimeoutLong {
		t.Errorf("timeouts = %+v", timeouts.Current())
	}
}

func TestConnectDB_WithoutMongo(t *testing.T) {
	cfg := validAppConfig()
	deps, err := ConnectDB(context.Background(), &config.CoreConfig{Env: "dev"}, cfg, testLogger())
	if err != nil {
		t.Fatalf("ConnectDB: %v", err)
	}
	if deps.MongoClient != nil || deps.MongoDatabase != nil || deps.Background == nil {
		t.Errorf("deps = %+v", deps)
	}
	if err := EnsureSchema(context.Background(), nil, cfg, deps, testLogger()); err != nil {
		t.Errorf("EnsureSchema without mongo: %v", err)
	}
}

func TestEnsureSchema_CreatesAuditIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := EnsureSchema(ctx, nil, validAppConfig(), DBDeps{MongoDatabase: db}, testLogger()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	specs, err := db.Collection("audit_events").Indexes().ListSpecifications(ctx)
	if err != nil {
		t.Fatalf("ListSpecifications: %v", err)
	}
	if len(specs) < 2 {
		t.Errorf("expected audit indexes beyond _id, got %d", len(specs))
	}
}

func TestBuildHandler_EndToEnd(t *testing.T) {
	up := testutil.NewFakeUpstream(t, testutil.RosterRecords(23))

	cfg := validAppConfig()
	cfg.GraphQLEndpoint = up.GraphQLURL()
	cfg.APIBaseURL = up.URL()
	cfg.AuthLoginEndpoint = up.LoginURL()

	deps := DBDeps{Background: &Background{}}
	t.Cleanup(func() {
		_ = Shutdown(context.Background(), nil, cfg, deps, testLogger())
	})

	h, err := BuildHandler(&config.CoreConfig{Env: "dev"}, cfg, deps, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	jar, _ := cookiejar.New(nil)
	client := &http.Client{Jar: jar}

	call := func(method, path string, body any) (int, map[string]any) {
		t.Helper()
		var rdr *bytes.Reader
		if body != nil {
			b, _ := json.Marshal(body)
			rdr = bytes.NewReader(b)
		} else {
			rdr = bytes.NewReader(nil)
		}
		req, _ := http.NewRequest(method, srv.URL+path, rdr)
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", method, path, err)
		}
		defer resp.Body.Close()
		var out map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&out)
		return resp.StatusCode, out
	}

	if code, body := call("GET", "/health", nil); code != http.StatusOK || body["database"] != "disabled" {
		t.Errorf("health: %d %v", code, body)
	}
	if code, _ := call("GET", "/members/state", nil); code != http.StatusUnauthorized {
		t.Errorf("state before login: %d, want 401", code)
	}

	code, body := call("POST", "/login", map[string]string{"username": "admin", "password": "secret"})
	if code != http.StatusOK || body["name"] != "Ada Admin" {
		t.Fatalf("login: %d %v", code, body)
	}

	if code, body := call("GET", "/me", nil); code != http.StatusOK || body["isAuthenticated"] != true {
		t.Errorf("me: %d %v", code, body)
	}

	code, body = call("GET", "/members/state", nil)
	if code != http.StatusOK || body["total"] != float64(23) || body["pageCount"] != float64(3) {
		t.Errorf("state: %d total %v pageCount %v", code, body["total"], body["pageCount"])
	}

	code, body = call("POST", "/members/state/page", map[string]int{"page": 9})
	if code != http.StatusOK || body["page"] != float64(3) {
		t.Errorf("clamped page: %d %v", code, body["page"])
	}

	code, body = call("GET", "/members?pageSize=25&statuses=active", nil)
	if code != http.StatusOK || body["pageSize"] != float64(25) {
		t.Errorf("stateless list: %d %v", code, body)
	}

	if code, body := call("POST", "/heartbeat", map[string]bool{"hadUserActivity": true}); code != http.StatusOK || body["stateActive"] != true {
		t.Errorf("heartbeat: %d %v", code, body)
	}
	if code, body := call("GET", "/audit", nil); code != http.StatusServiceUnavailable || body["error"] != "unavailable" {
		t.Errorf("audit without mongo: %d %v", code, body)
	}

	if code, body := call("GET", "/nope", nil); code != http.StatusNotFound || body["error"] != "not_found" {
		t.Errorf("not found: %d %v", code, body)
	}

	if code, _ := call("POST", "/logout", nil); code != http.StatusOK {
		t.Errorf("logout: %d", code)
	}
	if code, _ := call("GET", "/members/state", nil); code != http.StatusUnauthorized {
		t.Errorf("state after logout: %d, want 401", code)
	}
}
