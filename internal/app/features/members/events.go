package members

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/membersadmin/internal/app/system/querystate"
	"go.uber.org/zap"
)

const keepAliveInterval = 25 * time.Second

// ServeStateEvents handles GET /members/state/events: a Server-Sent Events
// stream of the session's query state. The current snapshot is sent first,
// then every snapshot the reconciler publishes. The stream ends when the
// client goes away or the state is dropped (sign-out, idle sweep).
func (h *Handler) ServeStateEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.ErrLog.LogServerError(w, r, "members events: streaming unsupported", nil, "Streaming is not supported.")
		return
	}

	rec := h.reconciler(r)
	updates, unsubscribe := rec.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeStateEvent(w, rec.State()); err != nil {
		return
	}
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case s, open := <-updates:
			if !open {
				_, _ = fmt.Fprint(w, "event: closed\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			if err := writeStateEvent(w, s); err != nil {
				h.Log.Debug("members events: write failed", zap.Error(err))
				return
			}
			flusher.Flush()
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// stateEvent is the data of one "state" event. A failed fetch carries the
// error code and message instead of rows.
type stateEvent struct {
	pageResponse
	Error   string `json:"error,omitempty"`
	Failure string `json:"failure,omitempty"`
}

func writeStateEvent(w http.ResponseWriter, s querystate.State) error {
	ev := stateEvent{pageResponse: fromState(s)}
	if s.Err != nil {
		ev.Error, ev.Failure = describeError(s.Err)
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: state\ndata: %s\n\n", b)
	return err
}
