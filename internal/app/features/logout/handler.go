package logout

import (
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/membersadmin/internal/app/features/errors"
	"github.com/dalemusser/membersadmin/internal/app/system/auditlog"
	"github.com/dalemusser/membersadmin/internal/app/system/auth"
	"go.uber.org/zap"
)

// StateDropper discards per-session query state.
type StateDropper interface {
	Drop(sessionID string)
}

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	States     StateDropper
	AuditLog   *auditlog.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, states StateDropper, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		States:     states,
		AuditLog:   audit,
	}
}

// ServeLogout handles GET and POST /logout. Signing out without a session
// still clears the cookie and succeeds.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.CurrentUser(r); ok {
		if h.States != nil && u.SessionID != "" {
			h.States.Drop(u.SessionID)
		}
		h.AuditLog.Logout(r.Context(), r, u.Username, u.SessionID)
	}

	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Error("logout: save session", zap.Error(err))
	}

	// HTMX handling: use HX-Redirect to force a client-side navigation.
	if r.Header.Get("HX-Request") != "" {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method == http.MethodGet && acceptsHTML(r) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	uierrors.WriteJSON(w, http.StatusOK, map[string]any{"isAuthenticated": false})
}

func acceptsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
