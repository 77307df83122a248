// Package querystate owns one operator's filter and pagination state and
// keeps the visible page consistent with it.
//
// Every mutation bumps a generation, cancels the fetch started by the
// previous mutation and runs a new one. Only the fetch for the current
// generation may publish; a fetch whose total no longer covers the current
// page clamps the page and refetches before anything is published.
package querystate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dalemusser/membersadmin/internal/app/system/paging"
	"github.com/dalemusser/membersadmin/internal/app/system/roster"
	"github.com/dalemusser/membersadmin/internal/domain/models"
	"go.uber.org/zap"
)

var (
	// ErrSuperseded is returned by a mutation whose fetch was replaced by a
	// newer one before it finished. The returned State is the newest
	// published snapshot.
	ErrSuperseded = errors.New("query superseded by a newer change")
	// ErrInvalidPageSize rejects page sizes outside paging.PageSizeOptions.
	ErrInvalidPageSize = errors.New("invalid page size")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("query state closed")
)

// maxClampRetries bounds the refetches triggered by a shrinking total.
const maxClampRetries = 3

// Querier runs one members query. *roster.Service satisfies it.
type Querier interface {
	Query(ctx context.Context, token string, f models.MembersFilter, p models.Pagination) (roster.Result, error)
}

// State is a snapshot of the reconciler.
type State struct {
	Filters       models.MembersFilter `json:"filters"`
	Pagination    models.Pagination    `json:"pagination"`
	Members       []models.Member      `json:"data"`
	Total         int                  `json:"total"`
	PageCount     int                  `json:"pageCount"`
	FilterOptions models.FilterOptions `json:"filterOptions"`
	Loading       bool                 `json:"loading"`
	Err           error                `json:"-"`
	Generation    uint64               `json:"-"`
}

func (s State) clone() State {
	out := s
	out.Filters = s.Filters.Clone()
	if s.Members != nil {
		out.Members = append([]models.Member(nil), s.Members...)
	}
	return out
}

// DefaultPagination is page 1 at the default page size.
func DefaultPagination() models.Pagination {
	return models.Pagination{Page: 1, PageSize: paging.DefaultPageSize}
}

// Reconciler is safe for concurrent use. Mutations are synchronous: each
// returns once its fetch published, failed or was superseded.
type Reconciler struct {
	q   Querier
	log *zap.Logger

	mu       sync.Mutex
	token    string
	state    State
	gen      uint64
	cancel   context.CancelFunc
	subs     map[int]chan State
	nextSub  int
	lastUsed time.Time
	closed   bool
}

// NewReconciler returns a Reconciler with empty filters and default
// pagination. Nothing is fetched until the first mutation or Refresh.
func NewReconciler(q Querier, token string, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		q:        q,
		log:      logger,
		token:    token,
		state:    State{Pagination: DefaultPagination(), PageCount: 1},
		subs:     make(map[int]chan State),
		lastUsed: time.Now(),
	}
}

// UpdateFilters merges p into the current filters and resets to page 1.
func (r *Reconciler) UpdateFilters(ctx context.Context, p FilterPatch) (State, error) {
	return r.run(ctx, func(s *State) error {
		s.Filters = p.Apply(s.Filters)
		s.Pagination.Page = 1
		return nil
	})
}

// ResetFilters clears every filter and restores default pagination.
func (r *Reconciler) ResetFilters(ctx context.Context) (State, error) {
	return r.run(ctx, func(s *State) error {
		s.Filters = models.MembersFilter{}
		s.Pagination = DefaultPagination()
		return nil
	})
}

// SetPage moves to page n. Values below 1 become 1 and values above
// paging.MaxPage become paging.MaxPage; filters and page size are untouched.
func (r *Reconciler) SetPage(ctx context.Context, n int) (State, error) {
	return r.run(ctx, func(s *State) error {
		s.Pagination.Page = min(max(n, 1), paging.MaxPage)
		return nil
	})
}

// SetPageSize changes the page size and resets to page 1.
func (r *Reconciler) SetPageSize(ctx context.Context, n int) (State, error) {
	return r.run(ctx, func(s *State) error {
		if !paging.ValidPageSize(n) {
			return ErrInvalidPageSize
		}
		s.Pagination = models.Pagination{Page: 1, PageSize: n}
		return nil
	})
}

// Refresh refetches the current filters and page.
func (r *Reconciler) Refresh(ctx context.Context) (State, error) {
	return r.run(ctx, func(*State) error { return nil })
}

// State returns a copy of the current snapshot.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.clone()
}

// SetToken replaces the bearer token used by later fetches and marks the
// reconciler as used.
func (r *Reconciler) SetToken(token string) {
	r.mu.Lock()
	r.token = token
	r.lastUsed = time.Now()
	r.mu.Unlock()
}

// Touch marks the reconciler as used without changing its state.
func (r *Reconciler) Touch() {
	r.mu.Lock()
	r.lastUsed = time.Now()
	r.mu.Unlock()
}

// LastUsed reports when the reconciler was last mutated or handed out.
func (r *Reconciler) LastUsed() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastUsed
}

// Subscribe returns a channel that receives each published snapshot. The
// channel holds one snapshot; a slow reader only sees the latest. Call the
// returned func to unsubscribe.
func (r *Reconciler) Subscribe() (<-chan State, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan State, 1)
	if r.closed {
		close(ch)
		return ch, func() {}
	}
	id := r.nextSub
	r.nextSub++
	r.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if c, ok := r.subs[id]; ok {
				delete(r.subs, id)
				close(c)
			}
		})
	}
}

// Close cancels any in-flight fetch and closes every subscription.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.gen++
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	for id, ch := range r.subs {
		delete(r.subs, id)
		close(ch)
	}
}

// run applies mutate, then fetches until the result is consistent with the
// page it was fetched for.
func (r *Reconciler) run(ctx context.Context, mutate func(*State) error) (State, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return State{}, ErrClosed
	}
	if err := mutate(&r.state); err != nil {
		snap := r.state.clone()
		r.mu.Unlock()
		return snap, err
	}

	r.gen++
	gen := r.gen
	if r.cancel != nil {
		r.cancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.state.Loading = true
	r.state.Generation = gen
	r.lastUsed = time.Now()
	token := r.token
	f := r.state.Filters.Clone()
	p := r.state.Pagination
	r.mu.Unlock()
	defer cancel()

	for attempt := 0; ; attempt++ {
		res, err := r.query(fetchCtx, token, f, p)

		r.mu.Lock()
		if r.gen != gen {
			snap := r.state.clone()
			r.mu.Unlock()
			return snap, ErrSuperseded
		}

		if err != nil {
			r.state.Loading = false
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				// The caller went away; keep what was last shown.
				snap := r.state.clone()
				r.mu.Unlock()
				return snap, err
			}
			r.state.Members = nil
			r.state.Total = 0
			r.state.PageCount = 1
			r.state.Err = err
			snap := r.publish()
			r.mu.Unlock()
			r.log.Debug("members query failed", zap.Uint64("generation", gen), zap.Error(err))
			return snap, err
		}

		if res.PageCount < p.Page && attempt < maxClampRetries {
			r.log.Debug("page past end; refetching last page",
				zap.Int("page", p.Page),
				zap.Int("page_count", res.PageCount))
			p.Page = res.PageCount
			r.state.Pagination.Page = p.Page
			r.mu.Unlock()
			continue
		}

		r.state.Members = res.Data
		r.state.Total = res.Total
		r.state.PageCount = res.PageCount
		r.state.FilterOptions = res.FilterOptions
		r.state.Loading = false
		r.state.Err = nil
		snap := r.publish()
		r.mu.Unlock()
		return snap, nil
	}
}

// publish sends the current snapshot to every subscriber, replacing any
// snapshot they have not read yet. r.mu must be held.
func (r *Reconciler) publish() State {
	snap := r.state.clone()
	for _, ch := range r.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap.clone():
		default:
		}
	}
	return snap
}

// query runs one fetch. A panic in the query path becomes an error so the
// state never stays loading.
func (r *Reconciler) query(ctx context.Context, token string, f models.MembersFilter, p models.Pagination) (res roster.Result, err error) {
	defer func() {
		if v := recover(); v != nil {
			r.log.Error("members query panicked", zap.Any("panic", v))
			err = fmt.Errorf("members query panicked: %v", v)
		}
	}()
	return r.q.Query(ctx, token, f, p)
}
