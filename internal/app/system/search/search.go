// Package search resolves point-search filters (names, emails, mobiles) into
// a roster by fanning out one backend query per fragment.
package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/membersadmin/internal/app/store/memberstore"
	"github.com/dalemusser/membersadmin/internal/app/system/normalize"
	"github.com/dalemusser/membersadmin/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrSearchUnavailable is returned when any fragment query fails. The
// underlying cause stays in the chain, so errors.Is still finds
// memberstore.ErrUnauthorized.
var ErrSearchUnavailable = errors.New("member search unavailable")

// DefaultConcurrency bounds in-flight fragment queries when none is set.
const DefaultConcurrency = 4

// Searcher runs a single point query. *memberstore.Client satisfies it.
type Searcher interface {
	Search(ctx context.Context, token string, axis memberstore.Axis, fragment string) ([]models.Member, error)
}

// Resolver fans point searches out over a Searcher.
type Resolver struct {
	searcher    Searcher
	concurrency int
	log         *zap.Logger
}

// NewResolver creates a Resolver allowing at most concurrency queries in
// flight per Resolve call.
func NewResolver(s Searcher, concurrency int, logger *zap.Logger) *Resolver {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Resolver{searcher: s, concurrency: concurrency, log: logger}
}

type axisQuery struct {
	axis      memberstore.Axis
	fragments []string
}

// activeAxes returns the axes of f that hold at least one non-blank
// fragment, in name, email, mobile order.
func activeAxes(f models.MembersFilter) []axisQuery {
	var out []axisQuery
	for _, q := range []axisQuery{
		{memberstore.AxisName, normalize.Values(f.Names)},
		{memberstore.AxisEmail, normalize.Values(f.Emails)},
		{memberstore.AxisMobile, normalize.Values(f.Mobiles)},
	} {
		if len(q.fragments) > 0 {
			out = append(out, q)
		}
	}
	return out
}

// Resolve returns the members matched by the point-search axes of f.
// Fragments within an axis are unioned by id; axes are intersected.
// ok is false when f has no active axis, in which case nothing is fetched.
func (r *Resolver) Resolve(ctx context.Context, token string, f models.MembersFilter) ([]models.Member, bool, error) {
	axes := activeAxes(f)
	if len(axes) == 0 {
		return nil, false, nil
	}

	results := make([][][]models.Member, len(axes))
	for i, a := range axes {
		results[i] = make([][]models.Member, len(a.fragments))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, a := range axes {
		for j, fragment := range a.fragments {
			g.Go(func() error {
				ms, err := r.searcher.Search(gctx, token, a.axis, fragment)
				if err != nil {
					return fmt.Errorf("%w: %s %q: %w", ErrSearchUnavailable, a.axis, fragment, err)
				}
				results[i][j] = ms
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		r.log.Warn("point search failed", zap.Error(err))
		return nil, true, err
	}

	unions := make([][]models.Member, len(axes))
	for i, perFragment := range results {
		var all []models.Member
		for _, ms := range perFragment {
			all = append(all, ms...)
		}
		unions[i] = UniqueMembers(all)
	}

	out := Intersect(unions...)
	r.log.Debug("point search resolved",
		zap.Int("axes", len(axes)),
		zap.Int("members", len(out)))
	return out, true, nil
}

// UniqueMembers collapses members sharing an id. Each id keeps the position
// of its first occurrence and the attributes of its last.
func UniqueMembers(ms []models.Member) []models.Member {
	out := make([]models.Member, 0, len(ms))
	index := make(map[string]int, len(ms))
	for _, m := range ms {
		if i, seen := index[m.ID]; seen {
			out[i] = m
			continue
		}
		index[m.ID] = len(out)
		out = append(out, m)
	}
	return out
}

// Intersect keeps the members of the first set whose id appears in every
// other set, in first-set order. Attributes come from the last set.
// Inputs are expected to be id-unique.
func Intersect(sets ...[]models.Member) []models.Member {
	if len(sets) == 0 {
		return []models.Member{}
	}
	if len(sets) == 1 {
		return UniqueMembers(sets[0])
	}

	rest := make([]map[string]models.Member, len(sets)-1)
	for i, s := range sets[1:] {
		byID := make(map[string]models.Member, len(s))
		for _, m := range s {
			byID[m.ID] = m
		}
		rest[i] = byID
	}

	out := make([]models.Member, 0, len(sets[0]))
	for _, m := range UniqueMembers(sets[0]) {
		latest := m
		inAll := true
		for _, byID := range rest {
			other, ok := byID[m.ID]
			if !ok {
				inAll = false
				break
			}
			latest = other
		}
		if inAll {
			out = append(out, latest)
		}
	}
	return out
}
