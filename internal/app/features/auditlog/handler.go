// Package auditlog serves the recorded audit events to signed-in operators.
package auditlog

import (
	"context"
	"time"

	uierrors "github.com/dalemusser/membersadmin/internal/app/features/errors"
	"github.com/dalemusser/membersadmin/internal/app/store/audit"
	"go.uber.org/zap"
)

// EventQuerier reads audit events. *audit.Store satisfies it.
type EventQuerier interface {
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error)
	CountByFilter(ctx context.Context, filter audit.QueryFilter) (int64, error)
	GetFailedLogins(ctx context.Context, since time.Time, limit int64) ([]audit.Event, error)
}

type Handler struct {
	Events EventQuerier
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
}

// NewHandler constructs an Audit Log feature handler. events is nil when
// no audit store is configured; every endpoint then answers 503.
func NewHandler(events EventQuerier, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Events: events,
		Log:    logger,
		ErrLog: errLog,
	}
}
