package login

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/membersadmin/internal/app/features/errors"
	"github.com/dalemusser/membersadmin/internal/app/store/authstore"
	"github.com/dalemusser/membersadmin/internal/app/system/auditlog"
	"github.com/dalemusser/membersadmin/internal/app/system/auth"
	"github.com/dalemusser/membersadmin/internal/app/system/ratelimit"
	"github.com/dalemusser/membersadmin/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.uber.org/zap"
)

const defaultReturn = "/members"

// Authenticator exchanges operator credentials for a backend session.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (authstore.Session, error)
}

type Handler struct {
	Auth       Authenticator
	SessionMgr *auth.SessionManager
	Limiter    *ratelimit.LoginLimiter
	AuditLog   *auditlog.Logger
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger
}

func NewHandler(
	authn Authenticator,
	sessionMgr *auth.SessionManager,
	limiter *ratelimit.LoginLimiter,
	audit *auditlog.Logger,
	errLog *uierrors.ErrorLogger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Auth:       authn,
		SessionMgr: sessionMgr,
		Limiter:    limiter,
		AuditLog:   audit,
		ErrLog:     errLog,
		Log:        logger,
	}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Return   string `json:"return"`
}

type statusResponse struct {
	IsAuthenticated bool   `json:"isAuthenticated"`
	Username        string `json:"username,omitempty"`
	Name            string `json:"name,omitempty"`
	Redirect        string `json:"redirect,omitempty"`
}

// ServeLogin handles GET /login. It reports whether the caller already has
// a session and where a successful sign-in would send them.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Redirect: urlutil.SafeReturn(query.Get(r, "return"), "", defaultReturn)}
	if u, ok := auth.CurrentUser(r); ok {
		resp.IsAuthenticated = true
		resp.Username = u.Username
		resp.Name = u.Name
	}
	uierrors.WriteJSON(w, http.StatusOK, resp)
}

// HandleLoginPost handles POST /login with either a JSON body or a form.
func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	creds, err := readCredentials(r)
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "login: unreadable body", err, "Invalid login request.")
		return
	}
	creds.Username = strings.TrimSpace(creds.Username)
	if creds.Username == "" || creds.Password == "" {
		uierrors.RenderBadRequest(w, "Username and password are required.")
		return
	}

	if ok, reason := h.Limiter.Check(r, creds.Username); !ok {
		h.AuditLog.LoginFailedRateLimit(r.Context(), r, creds.Username)
		uierrors.Write(w, http.StatusTooManyRequests, uierrors.CodeRateLimited, reason)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sess, err := h.Auth.Authenticate(ctx, creds.Username, creds.Password)
	switch {
	case err == nil:
	case errors.Is(err, authstore.ErrInvalidCredentials):
		h.AuditLog.LoginFailedInvalid(r.Context(), r, creds.Username)
		uierrors.Write(w, http.StatusUnauthorized, uierrors.CodeUnauthorized, "Invalid credentials. Please try again.")
		return
	default:
		h.AuditLog.LoginFailedUpstream(r.Context(), r, creds.Username, err)
		h.ErrLog.LogUnavailable(w, r, "login: backend authentication failed", err,
			"Unable to sign in right now. Please try again.")
		return
	}

	username := sess.Username
	if username == "" {
		username = creds.Username
	}
	u, err := h.SessionMgr.SignIn(w, r, auth.SessionUser{
		Username: username,
		Name:     sess.Name,
		Token:    sess.Token,
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "login: save session", err, "Unable to create session. Please try again.")
		return
	}
	h.Limiter.ResetUser(creds.Username)
	h.AuditLog.LoginSuccess(r.Context(), r, u.Username, u.SessionID)

	dest := urlutil.SafeReturn(creds.Return, "", defaultReturn)
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", dest)
	}
	uierrors.WriteJSON(w, http.StatusOK, statusResponse{
		IsAuthenticated: true,
		Username:        u.Username,
		Name:            u.Name,
		Redirect:        dest,
	})
}

func readCredentials(r *http.Request) (credentials, error) {
	var c credentials
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "application/json" {
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&c); err != nil {
			return c, err
		}
		return c, nil
	}
	if err := r.ParseForm(); err != nil {
		return c, err
	}
	c.Username = r.PostFormValue("username")
	c.Password = r.PostFormValue("password")
	c.Return = r.PostFormValue("return")
	if c.Return == "" {
		c.Return = query.Get(r, "return")
	}
	return c, nil
}
