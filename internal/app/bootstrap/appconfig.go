package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration; ports, TLS, log level and
// request limits live in CoreConfig.
type AppConfig struct {
	// Member backend
	GraphQLEndpoint   string        // GraphQL members connection; blank reads the REST roster
	APIBaseURL        string        // Root of the REST search and roster endpoints
	AuthLoginEndpoint string        // Operator login endpoint returning {token, admin}
	UpstreamTimeout   time.Duration // Per-request timeout for backend calls
	RosterPageSize    int           // "first" argument of each roster page request
	RosterMaxPages    int           // Cursor pages followed before giving up
	SearchConcurrency int           // Point searches in flight per query
	FacetMemoSize     int           // Distinct rosters whose filter options are memoized

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: membersadmin-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// Per-session query state
	StateIdleTTL       time.Duration // Idle time before a session's query state is dropped
	StateSweepInterval time.Duration // How often idle query state is swept
	StateIdleWarning   time.Duration // Heartbeats warn this close to the idle sweep

	// Optional MongoDB audit store. Blank MongoURI disables it.
	MongoURI      string
	MongoDatabase string

	// Audit logging: "all", "db", "log" or "off"
	AuditLogAuth     string
	AuditLogUpstream string

	// Login rate limiting
	LoginRateLimit     int           // Attempts per client IP per window
	LoginUserRateLimit int           // Attempts per username per window
	LoginRateWindow    time.Duration // Window length

	// Operation timeouts (see system/timeouts)
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
}
