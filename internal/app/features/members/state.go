package members

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/dalemusser/membersadmin/internal/app/system/auth"
	"github.com/dalemusser/membersadmin/internal/app/system/querystate"
	"github.com/dalemusser/membersadmin/internal/app/system/timeouts"
)

const maxBodyBytes = 1 << 16

// reconciler returns the signed-in session's query state.
func (h *Handler) reconciler(r *http.Request) *querystate.Reconciler {
	u, _ := auth.CurrentUser(r)
	return h.States.Get(u.SessionID, u.Token)
}

// mutate runs op against the session's reconciler under the medium timeout
// and writes the resulting snapshot or error.
func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, *querystate.Reconciler) (querystate.State, error)) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, op)
	defer cancel()

	s, err := fn(ctx, h.reconciler(r))
	if err != nil {
		h.writeQueryError(w, r, err)
		return
	}
	writePage(w, fromState(s))
}

// ServeState handles GET /members/state. The first call for a session
// fetches page 1 with no filters.
func (h *Handler) ServeState(w http.ResponseWriter, r *http.Request) {
	rec := h.reconciler(r)
	s := rec.State()
	if s.Generation == 0 {
		h.mutate(w, r, "members state", func(ctx context.Context, rec *querystate.Reconciler) (querystate.State, error) {
			return rec.Refresh(ctx)
		})
		return
	}
	if s.Err != nil {
		h.writeQueryError(w, r, s.Err)
		return
	}
	writePage(w, fromState(s))
}

// HandleUpdateFilters handles POST /members/state/filters. The body is a
// querystate.FilterPatch: absent keys keep their value, null clears.
func (h *Handler) HandleUpdateFilters(w http.ResponseWriter, r *http.Request) {
	var patch querystate.FilterPatch
	if !h.decodeBody(w, r, &patch) {
		return
	}
	h.mutate(w, r, "members update filters", func(ctx context.Context, rec *querystate.Reconciler) (querystate.State, error) {
		return rec.UpdateFilters(ctx, patch)
	})
}

// HandleResetFilters handles POST /members/state/reset.
func (h *Handler) HandleResetFilters(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "members reset filters", func(ctx context.Context, rec *querystate.Reconciler) (querystate.State, error) {
		return rec.ResetFilters(ctx)
	})
}

// HandleSetPage handles POST /members/state/page with {"page": n}.
func (h *Handler) HandleSetPage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Page *int `json:"page"`
	}
	if !h.decodeBody(w, r, &body) {
		return
	}
	if body.Page == nil {
		h.ErrLog.LogBadRequest(w, r, "members set page: missing page", nil, "A page number is required.")
		return
	}
	h.mutate(w, r, "members set page", func(ctx context.Context, rec *querystate.Reconciler) (querystate.State, error) {
		return rec.SetPage(ctx, *body.Page)
	})
}

// HandleSetPageSize handles POST /members/state/page-size with
// {"pageSize": n}.
func (h *Handler) HandleSetPageSize(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PageSize *int `json:"pageSize"`
	}
	if !h.decodeBody(w, r, &body) {
		return
	}
	if body.PageSize == nil {
		h.ErrLog.LogBadRequest(w, r, "members set page size: missing size", nil, pageSizeMessage)
		return
	}
	h.mutate(w, r, "members set page size", func(ctx context.Context, rec *querystate.Reconciler) (querystate.State, error) {
		return rec.SetPageSize(ctx, *body.PageSize)
	})
}

// HandleRefresh handles POST /members/state/refresh.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "members refresh", func(ctx context.Context, rec *querystate.Reconciler) (querystate.State, error) {
		return rec.Refresh(ctx)
	})
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil && err != io.EOF {
		h.ErrLog.LogBadRequest(w, r, "members: decode body", err, "Invalid request body.")
		return false
	}
	return true
}
