// Package authstore exchanges operator credentials for a backend bearer
// token.
package authstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/membersadmin/internal/app/system/htmlsanitize"
	"go.uber.org/zap"
)

var (
	// ErrInvalidCredentials means the backend answered 401 or 403.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnavailable covers transport failures, other non-2xx answers and
	// responses without a token.
	ErrUnavailable = errors.New("login endpoint unavailable")
)

// Session is a successful sign-in.
type Session struct {
	Token    string
	Username string
	Name     string
}

// Client is safe for concurrent use.
type Client struct {
	endpoint string
	http     *http.Client
	log      *zap.Logger
}

// New creates a Client posting to endpoint. A nil transport means
// http.DefaultTransport.
func New(endpoint string, timeout time.Duration, transport http.RoundTripper, logger *zap.Logger) *Client {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout, Transport: transport},
		log:      logger,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	Admin struct {
		Username string `json:"username"`
		Name     string `json:"name"`
	} `json:"admin"`
}

// Authenticate posts the credentials and returns the issued session.
// Callers validate that both fields are non-blank first.
func (c *Client) Authenticate(ctx context.Context, username, password string) (Session, error) {
	body, err := json.Marshal(loginRequest{Username: username, Password: password})
	if err != nil {
		return Session{}, fmt.Errorf("encode login: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Session{}, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Session{}, ctxErr
		}
		return Session{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		_, _ = io.Copy(io.Discard, resp.Body)
		return Session{}, ErrInvalidCredentials
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, resp.Body)
		return Session{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Session{}, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	if strings.TrimSpace(out.Token) == "" {
		return Session{}, fmt.Errorf("%w: response carried no token", ErrUnavailable)
	}

	s := Session{
		Token:    out.Token,
		Username: htmlsanitize.PlainText(out.Admin.Username),
		Name:     htmlsanitize.PlainText(out.Admin.Name),
	}
	if s.Username == "" {
		s.Username = username
	}
	c.log.Debug("operator authenticated", zap.String("username", s.Username))
	return s, nil
}
