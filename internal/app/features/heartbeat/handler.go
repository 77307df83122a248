// Package heartbeat keeps a signed-in operator's member-list state alive
// while the page is open and warns before it is swept.
package heartbeat

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/membersadmin/internal/app/features/errors"
	"github.com/dalemusser/membersadmin/internal/app/system/auth"
	"go.uber.org/zap"
)

// StateKeeper is the part of the query-state registry the heartbeat needs.
// *querystate.Registry satisfies it.
type StateKeeper interface {
	Touch(sessionID string) bool
	IdleRemaining(sessionID string, now time.Time) (time.Duration, bool)
}

// Handler handles heartbeat requests.
type Handler struct {
	States StateKeeper
	Log    *zap.Logger

	// IdleWarning is how close to the idle sweep a heartbeat without user
	// activity starts reporting idleWarning. Zero disables warnings.
	IdleWarning time.Duration
}

// NewHandler creates a new heartbeat handler.
func NewHandler(states StateKeeper, idleWarning time.Duration, logger *zap.Logger) *Handler {
	return &Handler{
		States:      states,
		IdleWarning: idleWarning,
		Log:         logger,
	}
}

// heartbeatRequest is the JSON body for the heartbeat endpoint. A missing
// body counts as user activity.
type heartbeatRequest struct {
	HadUserActivity *bool `json:"hadUserActivity"`
}

type heartbeatResponse struct {
	StateActive      bool `json:"stateActive"`
	IdleWarning      bool `json:"idleWarning,omitempty"`
	SecondsRemaining int  `json:"secondsRemaining,omitempty"`
}

// ServeHeartbeat handles POST /heartbeat.
func (h *Handler) ServeHeartbeat(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	active := true
	var req heartbeatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<12)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.Log.Debug("ignoring malformed heartbeat body", zap.Error(err))
	} else if req.HadUserActivity != nil {
		active = *req.HadUserActivity
	}

	touched := active && h.States.Touch(u.SessionID)
	remaining, ok := h.States.IdleRemaining(u.SessionID, time.Now())

	resp := heartbeatResponse{StateActive: touched || ok}
	if ok && h.IdleWarning > 0 && remaining <= h.IdleWarning {
		resp.IdleWarning = true
		resp.SecondsRemaining = int(remaining / time.Second)
	}

	uierrors.WriteJSON(w, http.StatusOK, resp)
}
