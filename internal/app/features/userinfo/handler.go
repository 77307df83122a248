package userinfo

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/membersadmin/internal/app/system/auth"
)

// Handler serves the signed-in operator's identity.
type Handler struct{}

// NewHandler creates a new userinfo handler.
func NewHandler() *Handler {
	return &Handler{}
}

// ServeUserInfo handles GET /me.
//
//	{ "isAuthenticated": bool, "username": "...", "name": "..." }
//
// The bearer token is never included.
func (h *Handler) ServeUserInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	user, ok := auth.CurrentUser(r)
	if !ok {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"isAuthenticated": false,
			"username":        "",
			"name":            "",
		})
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"isAuthenticated": true,
		"username":        user.Username,
		"name":            user.Name,
	})
}
