package querystate

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Registry keeps one Reconciler per browsing session.
type Registry struct {
	q       Querier
	idleTTL time.Duration
	log     *zap.Logger

	mu     sync.Mutex
	states map[string]*Reconciler
}

// NewRegistry creates a Registry. Sessions idle longer than idleTTL are
// dropped by Sweep; a non-positive idleTTL disables sweeping.
func NewRegistry(q Querier, idleTTL time.Duration, logger *zap.Logger) *Registry {
	return &Registry{
		q:       q,
		idleTTL: idleTTL,
		log:     logger,
		states:  make(map[string]*Reconciler),
	}
}

// Get returns the session's Reconciler, creating it on first use. The
// stored token is refreshed on every call so a re-login takes effect
// without losing the filters.
func (g *Registry) Get(sessionID, token string) *Reconciler {
	g.mu.Lock()
	defer g.mu.Unlock()

	if r, ok := g.states[sessionID]; ok {
		r.SetToken(token)
		return r
	}
	r := NewReconciler(g.q, token, g.log.With(zap.String("session_id", sessionID)))
	g.states[sessionID] = r
	return r
}

// Touch keeps an existing session's state from being swept. It reports
// false when the session has no state; none is created.
func (g *Registry) Touch(sessionID string) bool {
	g.mu.Lock()
	r, ok := g.states[sessionID]
	g.mu.Unlock()

	if ok {
		r.Touch()
	}
	return ok
}

// IdleRemaining reports how long the session's state has left before Sweep
// would drop it. ok is false when the session has no state or sweeping is
// disabled.
func (g *Registry) IdleRemaining(sessionID string, now time.Time) (remaining time.Duration, ok bool) {
	if g.idleTTL <= 0 {
		return 0, false
	}
	g.mu.Lock()
	r, found := g.states[sessionID]
	g.mu.Unlock()
	if !found {
		return 0, false
	}

	remaining = g.idleTTL - now.Sub(r.LastUsed())
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// Drop closes and forgets the session's state. Called on sign-out and
// when the backend rejects the session's token.
func (g *Registry) Drop(sessionID string) {
	g.mu.Lock()
	r, ok := g.states[sessionID]
	delete(g.states, sessionID)
	g.mu.Unlock()

	if ok {
		r.Close()
	}
}

// Sweep drops every session idle since before now minus the idle TTL and
// returns how many were dropped.
func (g *Registry) Sweep(now time.Time) int {
	if g.idleTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-g.idleTTL)

	g.mu.Lock()
	var stale []*Reconciler
	for id, r := range g.states {
		if r.LastUsed().Before(cutoff) {
			stale = append(stale, r)
			delete(g.states, id)
		}
	}
	g.mu.Unlock()

	for _, r := range stale {
		r.Close()
	}
	return len(stale)
}

// Len returns the number of live sessions.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.states)
}
