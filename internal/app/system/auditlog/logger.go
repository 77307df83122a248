// Package auditlog records operator audit events to MongoDB and to the
// structured log, as configured per category.
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/membersadmin/internal/app/store/audit"
	"github.com/dalemusser/membersadmin/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// Destination settings for a category.
const (
	All = "all" // MongoDB + zap
	DB  = "db"  // MongoDB only
	Log = "log" // zap only
	Off = "off"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth covers sign-in, sign-out and rate-limit events.
	Auth string
	// Upstream covers sessions cleared because the backend rejected the
	// token, and roster walks that hit the page cap.
	Upstream string
}

// ValidSetting reports whether s is one of All, DB, Log or Off.
func ValidSetting(s string) bool {
	switch s {
	case All, DB, Log, Off:
		return true
	}
	return false
}

// Logger provides convenience methods for logging audit events.
// store may be nil, in which case database destinations are skipped.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.Username != "" {
		fields = append(fields, zap.String("username", event.Username))
	}
	if event.SessionID != "" {
		fields = append(fields, zap.String("session_id", event.SessionID))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// A nil Logger is a no-op.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryUpstream:
		setting = l.config.Upstream
	default:
		setting = All
	}

	if setting == Off {
		return
	}
	if setting == All || setting == Log {
		l.logToZap(event)
	}
	if (setting == All || setting == DB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func requestEvent(r *http.Request, category, eventType string) audit.Event {
	return audit.Event{
		Category:  category,
		EventType: eventType,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// --- Authentication Events ---

// LoginSuccess logs a successful sign-in.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, username, sessionID string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventLoginSuccess)
	e.Username = username
	e.SessionID = sessionID
	e.Success = true
	l.Log(ctx, e)
}

// LoginFailedInvalid logs a sign-in the backend rejected.
func (l *Logger) LoginFailedInvalid(ctx context.Context, r *http.Request, username string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventLoginFailedInvalid)
	e.Username = username
	e.FailureReason = "invalid credentials"
	l.Log(ctx, e)
}

// LoginFailedUpstream logs a sign-in that failed because the backend could
// not be reached.
func (l *Logger) LoginFailedUpstream(ctx context.Context, r *http.Request, username string, cause error) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventLoginFailedUpstream)
	e.Username = username
	e.FailureReason = "backend unavailable"
	if cause != nil {
		e.Details = map[string]string{"error": cause.Error()}
	}
	l.Log(ctx, e)
}

// LoginFailedRateLimit logs a sign-in refused by the login limiter.
func (l *Logger) LoginFailedRateLimit(ctx context.Context, r *http.Request, username string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventLoginFailedRateLimit)
	e.Username = username
	e.FailureReason = "rate limit exceeded"
	l.Log(ctx, e)
}

// Logout logs an operator sign-out.
func (l *Logger) Logout(ctx context.Context, r *http.Request, username, sessionID string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventLogout)
	e.Username = username
	e.SessionID = sessionID
	e.Success = true
	l.Log(ctx, e)
}

// --- Upstream Events ---

// SessionClearedUnauthorized logs a session ended because the backend
// rejected its token.
func (l *Logger) SessionClearedUnauthorized(ctx context.Context, r *http.Request, username, sessionID string) {
	e := requestEvent(r, audit.CategoryUpstream, audit.EventSessionClearedUnauthorized)
	e.Username = username
	e.SessionID = sessionID
	e.FailureReason = "backend rejected token"
	l.Log(ctx, e)
}

// PaginationExhausted logs a roster walk that hit the page cap.
func (l *Logger) PaginationExhausted(ctx context.Context, r *http.Request, username string) {
	e := requestEvent(r, audit.CategoryUpstream, audit.EventRosterPaginationExhausted)
	e.Username = username
	e.FailureReason = "roster page cap reached"
	e.Details = map[string]string{"path": r.URL.Path}
	l.Log(ctx, e)
}
