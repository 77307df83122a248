// Package members serves the member list: a stateless query endpoint and a
// per-session stateful view backed by querystate.
package members

import (
	"context"

	uierrors "github.com/dalemusser/membersadmin/internal/app/features/errors"
	"github.com/dalemusser/membersadmin/internal/app/system/auditlog"
	"github.com/dalemusser/membersadmin/internal/app/system/auth"
	"github.com/dalemusser/membersadmin/internal/app/system/querystate"
	"github.com/dalemusser/membersadmin/internal/app/system/roster"
	"github.com/dalemusser/membersadmin/internal/domain/models"
	"go.uber.org/zap"
)

// Querier runs one members query. *roster.Service satisfies it.
type Querier interface {
	Query(ctx context.Context, token string, f models.MembersFilter, p models.Pagination) (roster.Result, error)
}

// Handler is the feature-level handler for Members.
type Handler struct {
	Roster     Querier
	States     *querystate.Registry
	SessionMgr *auth.SessionManager
	Log        *zap.Logger
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger
}

func NewHandler(
	rosterSvc Querier,
	states *querystate.Registry,
	sessionMgr *auth.SessionManager,
	errLog *uierrors.ErrorLogger,
	audit *auditlog.Logger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Roster:     rosterSvc,
		States:     states,
		SessionMgr: sessionMgr,
		Log:        logger,
		ErrLog:     errLog,
		AuditLog:   audit,
	}
}
