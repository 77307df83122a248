package members

import (
	"github.com/dalemusser/membersadmin/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts all member routes under the path where the caller mounts it.
// Typically: r.Mount("/members", members.Routes(handler, sessionMgr))
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		// Stateless: everything comes from the query string.
		pr.Get("/", h.ServeList)

		// Per-session state.
		pr.Get("/state", h.ServeState)
		pr.Get("/state/events", h.ServeStateEvents)
		pr.Post("/state/filters", h.HandleUpdateFilters)
		pr.Post("/state/reset", h.HandleResetFilters)
		pr.Post("/state/page", h.HandleSetPage)
		pr.Post("/state/page-size", h.HandleSetPageSize)
		pr.Post("/state/refresh", h.HandleRefresh)
	})

	return r
}
