package bootstrap

import (
	"fmt"
	"net/url"
	"time"

	"github.com/dalemusser/membersadmin/internal/app/system/auditlog"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for membersadmin.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: graphql_endpoint, session_name, etc.
//   - Environment variables: MEMBERSADMIN_GRAPHQL_ENDPOINT, MEMBERSADMIN_SESSION_NAME, etc.
//   - Command-line flags: --graphql_endpoint, --session_name, etc.
var appConfigKeys = []config.AppKey{
	// Member backend
	{Name: "graphql_endpoint", Default: "http://localhost:4000/graphql", Desc: "GraphQL endpoint serving the members connection (blank uses the REST roster)"},
	{Name: "api_base_url", Default: "http://localhost:4000", Desc: "Base URL of the member REST API"},
	{Name: "auth_login_endpoint", Default: "http://localhost:4000/login", Desc: "Operator login endpoint"},
	{Name: "upstream_timeout", Default: "15s", Desc: "Timeout for each backend request"},
	{Name: "roster_page_size", Default: 100, Desc: "Members requested per roster page"},
	{Name: "roster_max_pages", Default: 20, Desc: "Roster pages followed before failing"},
	{Name: "search_concurrency", Default: 4, Desc: "Point searches in flight per query"},
	{Name: "facet_memo_size", Default: 64, Desc: "Rosters whose filter options are memoized"},

	// Session
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "membersadmin-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "12h", Desc: "Session cookie lifetime"},

	// Query state
	{Name: "state_idle_ttl", Default: "30m", Desc: "Idle time before a session's query state is dropped (0 keeps it)"},
	{Name: "state_sweep_interval", Default: "5m", Desc: "How often idle query state is swept"},
	{Name: "state_idle_warning", Default: "2m", Desc: "Heartbeats warn this close to the idle sweep (0 disables)"},

	// MongoDB audit store
	{Name: "mongo_uri", Default: "", Desc: "MongoDB URI for the audit store (blank disables it)"},
	{Name: "mongo_database", Default: "membersadmin", Desc: "MongoDB database name"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_upstream", Default: "all", Desc: "Upstream event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Login rate limiting
	{Name: "login_rate_limit", Default: 10, Desc: "Login attempts per client IP per window"},
	{Name: "login_user_rate_limit", Default: 5, Desc: "Login attempts per username per window"},
	{Name: "login_rate_window", Default: "1m", Desc: "Login rate-limit window"},

	// Timeouts
	{Name: "timeout_short", Default: "5s", Desc: "Timeout for single backend calls such as login"},
	{Name: "timeout_medium", Default: "20s", Desc: "Timeout for a members query"},
	{Name: "timeout_long", Default: "30s", Desc: "Timeout for schema setup"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, MEMBERSADMIN_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "MEMBERSADMIN", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		GraphQLEndpoint:   appValues.String("graphql_endpoint"),
		APIBaseURL:        appValues.String("api_base_url"),
		AuthLoginEndpoint: appValues.String("auth_login_endpoint"),
		UpstreamTimeout:   appValues.Duration("upstream_timeout", 15*time.Second),
		RosterPageSize:    appValues.Int("roster_page_size"),
		RosterMaxPages:    appValues.Int("roster_max_pages"),
		SearchConcurrency: appValues.Int("search_concurrency"),
		FacetMemoSize:     appValues.Int("facet_memo_size"),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 12*time.Hour),

		StateIdleTTL:       appValues.Duration("state_idle_ttl", 30*time.Minute),
		StateSweepInterval: appValues.Duration("state_sweep_interval", 5*time.Minute),
		StateIdleWarning:   appValues.Duration("state_idle_warning", 2*time.Minute),

		MongoURI:      appValues.String("mongo_uri"),
		MongoDatabase: appValues.String("mongo_database"),

		AuditLogAuth:     appValues.String("audit_log_auth"),
		AuditLogUpstream: appValues.String("audit_log_upstream"),

		LoginRateLimit:     appValues.Int("login_rate_limit"),
		LoginUserRateLimit: appValues.Int("login_user_rate_limit"),
		LoginRateWindow:    appValues.Duration("login_rate_window", time.Minute),

		TimeoutShort:  appValues.Duration("timeout_short", 5*time.Second),
		TimeoutMedium: appValues.Duration("timeout_medium", 20*time.Second),
		TimeoutLong:   appValues.Duration("timeout_long", 30*time.Second),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := validateAppConfig(appCfg); err != nil {
		logger.Error("invalid app config", zap.Error(err))
		return err
	}
	if appCfg.MongoURI == "" {
		logger.Info("mongo_uri not set; audit events go to the log only")
	}
	if coreCfg != nil && coreCfg.Env == "prod" && len(appCfg.SessionKey) < 32 {
		return fmt.Errorf("session_key must be at least 32 characters in prod")
	}
	return nil
}

func validateAppConfig(appCfg AppConfig) error {
	if appCfg.GraphQLEndpoint != "" {
		if err := validateURL("graphql_endpoint", appCfg.GraphQLEndpoint); err != nil {
			return err
		}
	}
	if err := validateURL("api_base_url", appCfg.APIBaseURL); err != nil {
		return err
	}
	if err := validateURL("auth_login_endpoint", appCfg.AuthLoginEndpoint); err != nil {
		return err
	}

	positive := []struct {
		name  string
		value int
	}{
		{"roster_page_size", appCfg.RosterPageSize},
		{"roster_max_pages", appCfg.RosterMaxPages},
		{"search_concurrency", appCfg.SearchConcurrency},
		{"facet_memo_size", appCfg.FacetMemoSize},
		{"login_rate_limit", appCfg.LoginRateLimit},
		{"login_user_rate_limit", appCfg.LoginUserRateLimit},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", p.name, p.value)
		}
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"upstream_timeout", appCfg.UpstreamTimeout},
		{"session_max_age", appCfg.SessionMaxAge},
		{"login_rate_window", appCfg.LoginRateWindow},
		{"timeout_short", appCfg.TimeoutShort},
		{"timeout_medium", appCfg.TimeoutMedium},
		{"timeout_long", appCfg.TimeoutLong},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}
	if appCfg.StateIdleTTL > 0 && appCfg.StateSweepInterval <= 0 {
		return fmt.Errorf("state_sweep_interval must be positive when state_idle_ttl is set")
	}
	if appCfg.StateIdleWarning < 0 {
		return fmt.Errorf("state_idle_warning must not be negative, got %s", appCfg.StateIdleWarning)
	}

	if !auditlog.ValidSetting(appCfg.AuditLogAuth) {
		return fmt.Errorf("audit_log_auth must be all, db, log or off, got %q", appCfg.AuditLogAuth)
	}
	if !auditlog.ValidSetting(appCfg.AuditLogUpstream) {
		return fmt.Errorf("audit_log_upstream must be all, db, log or off, got %q", appCfg.AuditLogUpstream)
	}

	if appCfg.SessionName == "" {
		return fmt.Errorf("session_name is required")
	}
	if appCfg.SessionKey == "" {
		return fmt.Errorf("session_key is required")
	}

	if appCfg.MongoURI != "" {
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
		if appCfg.MongoDatabase == "" {
			return fmt.Errorf("mongo_database is required when mongo_uri is set")
		}
	}
	return nil
}

func validateURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", name, raw)
	}
	return nil
}
