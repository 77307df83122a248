// Package memberstore talks to the upstream member backend: the GraphQL
// roster connection and the REST point-search endpoints.
//
// Every call takes the operator's bearer token explicitly; the client holds
// no credentials of its own.
package memberstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

var (
	// ErrUnauthorized means the backend rejected the token (HTTP 401/403 or
	// a GraphQL errors payload), or no token was supplied.
	ErrUnauthorized = errors.New("upstream rejected credentials")
	// ErrUnavailable covers transport failures, other non-2xx answers and
	// undecodable bodies.
	ErrUnavailable = errors.New("upstream unavailable")
	// ErrPaginationExhausted is returned when the roster still reports more
	// pages after MaxPages requests.
	ErrPaginationExhausted = errors.New("roster pagination exceeded page limit")
)

// Default limits applied when Config leaves them zero.
const (
	DefaultRosterPageSize = 100
	DefaultMaxPages       = 20
	DefaultTimeout        = 15 * time.Second
)

// Config locates the backend endpoints.
type Config struct {
	// GraphQLEndpoint serves the members connection. When empty the roster
	// is read from the REST endpoint APIBaseURL + "/members" instead.
	GraphQLEndpoint string
	// APIBaseURL is the root of the REST endpoints.
	APIBaseURL string
	// PageSize is the "first" argument of each roster page request.
	PageSize int
	// MaxPages bounds the cursor loop.
	MaxPages int
	// Timeout bounds each HTTP request.
	Timeout time.Duration
	// Transport is the base round tripper; nil means http.DefaultTransport.
	Transport http.RoundTripper
}

// Client is safe for concurrent use.
type Client struct {
	cfg Config
	log *zap.Logger
}

// New creates a Client, filling zero limits with defaults.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultRosterPageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Transport == nil {
		cfg.Transport = http.DefaultTransport
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	return &Client{cfg: cfg, log: logger}
}

// httpClient returns a client that sends token as a bearer credential.
func (c *Client) httpClient(token string) *http.Client {
	return &http.Client{
		Timeout: c.cfg.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   c.cfg.Transport,
		},
	}
}

// do sends req with token and decodes a 2xx JSON body into out.
func (c *Client) do(ctx context.Context, token string, req *http.Request, out any) error {
	if strings.TrimSpace(token) == "" {
		return ErrUnauthorized
	}

	resp, err := c.httpClient(token).Do(req.WithContext(ctx))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s %s: status %d", ErrUnauthorized, req.Method, req.URL.Path, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s %s: status %d", ErrUnavailable, req.Method, req.URL.Path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrUnavailable, req.URL.Path, err)
	}
	return nil
}
