package members

import (
	"net/http"

	"github.com/dalemusser/membersadmin/internal/app/system/auth"
	"github.com/dalemusser/membersadmin/internal/app/system/querystate"
	"github.com/dalemusser/membersadmin/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// ServeList handles GET /members. Filters and pagination come from the
// query string (see querystate.Decode); nothing is remembered between
// requests.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	f, p := querystate.Decode(r.URL.Query())

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "members list")
	defer cancel()

	res, err := h.Roster.Query(ctx, u.Token, f, p)
	if err != nil {
		h.writeQueryError(w, r, err)
		return
	}
	if res.Skipped > 0 {
		h.Log.Debug("members excluded by unparseable timestamps", zap.Int("skipped", res.Skipped))
	}
	writePage(w, fromResult(res, f))
}
