package members

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/membersadmin/internal/app/features/errors"
	"github.com/dalemusser/membersadmin/internal/app/store/memberstore"
	"github.com/dalemusser/membersadmin/internal/app/system/auth"
	"github.com/dalemusser/membersadmin/internal/app/system/normalize"
	"github.com/dalemusser/membersadmin/internal/app/system/querystate"
	"github.com/dalemusser/membersadmin/internal/app/system/search"
	"go.uber.org/zap"
)

const (
	unavailableMessage = "Unable to load members right now. Please try again."
	pageSizeMessage    = "Page size must be one of 10, 25 or 50."
)

// writeQueryError maps a roster or query-state failure to a response.
func (h *Handler) writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, memberstore.ErrUnauthorized):
		h.clearSession(w, r)
		auth.Unauthorized(w, r)

	case errors.Is(err, querystate.ErrInvalidPageSize):
		uierrors.RenderBadRequest(w, pageSizeMessage)

	case errors.Is(err, querystate.ErrSuperseded):
		uierrors.Write(w, http.StatusConflict, uierrors.CodeSuperseded, "A newer change replaced this request.")

	case errors.Is(err, querystate.ErrClosed):
		uierrors.Write(w, http.StatusConflict, uierrors.CodeSuperseded, "This view was closed. Please reload.")

	case errors.Is(err, context.Canceled):
		// The client went away; nobody is listening for a response.
		h.Log.Debug("members query canceled", zap.String("path", r.URL.Path))

	case errors.Is(err, context.DeadlineExceeded):
		h.Log.Warn("members query timed out", zap.String("path", r.URL.Path), zap.Error(err))
		uierrors.Write(w, http.StatusGatewayTimeout, uierrors.CodeTimeout, "The member service took too long to respond.")

	case errors.Is(err, memberstore.ErrPaginationExhausted):
		if u, ok := auth.CurrentUser(r); ok {
			h.AuditLog.PaginationExhausted(r.Context(), r, u.Username)
		}
		h.ErrLog.LogUnavailable(w, r, "roster pagination exhausted", err, unavailableMessage)

	case errors.Is(err, normalize.ErrIncompleteRecord),
		errors.Is(err, search.ErrSearchUnavailable),
		errors.Is(err, memberstore.ErrUnavailable):
		h.ErrLog.LogUnavailable(w, r, "members query failed", err, unavailableMessage)

	default:
		h.ErrLog.LogServerError(w, r, "members query failed", err, "A server error occurred.")
	}
}

// clearSession signs the operator out after the backend rejected their
// token and drops their query state.
func (h *Handler) clearSession(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return
	}
	h.States.Drop(u.SessionID)
	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Error("members: clear session", zap.Error(err))
	}
	h.AuditLog.SessionClearedUnauthorized(r.Context(), r, u.Username, u.SessionID)
}

// describeError gives the error code and message a stream client sees for
// a failed fetch. Streams cannot change the session cookie, so an
// unauthorized token is only reported here; the next request clears it.
func describeError(err error) (code, message string) {
	switch {
	case errors.Is(err, memberstore.ErrUnauthorized):
		return uierrors.CodeUnauthorized, "Your session has expired. Please sign in again."
	case errors.Is(err, context.DeadlineExceeded):
		return uierrors.CodeTimeout, "The member service took too long to respond."
	case errors.Is(err, memberstore.ErrPaginationExhausted),
		errors.Is(err, normalize.ErrIncompleteRecord),
		errors.Is(err, search.ErrSearchUnavailable),
		errors.Is(err, memberstore.ErrUnavailable):
		return uierrors.CodeUnavailable, unavailableMessage
	}
	return uierrors.CodeInternal, "A server error occurred."
}
