// Package roster answers one members query: it picks the fetch strategy,
// filters locally, derives facets and slices out the requested page.
package roster

import (
	"context"

	"github.com/dalemusser/membersadmin/internal/app/store/memberstore"
	"github.com/dalemusser/membersadmin/internal/app/system/facets"
	"github.com/dalemusser/membersadmin/internal/app/system/filtering"
	"github.com/dalemusser/membersadmin/internal/app/system/paging"
	"github.com/dalemusser/membersadmin/internal/app/system/search"
	"github.com/dalemusser/membersadmin/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Fetcher loads the roster, optionally narrowed server-side.
// *memberstore.Client satisfies it.
type Fetcher interface {
	FetchRoster(ctx context.Context, token string, filter *memberstore.RosterFilter) ([]models.Member, error)
}

// PointResolver resolves the point-search axes of a filter.
// *search.Resolver satisfies it.
type PointResolver interface {
	Resolve(ctx context.Context, token string, f models.MembersFilter) ([]models.Member, bool, error)
}

// Result is one page of the filtered roster plus the facets of the roster
// in scope.
type Result struct {
	Data          []models.Member      `json:"data"`
	Total         int                  `json:"total"`
	Page          int                  `json:"page"`
	PageSize      int                  `json:"pageSize"`
	PageCount     int                  `json:"pageCount"`
	FilterOptions models.FilterOptions `json:"filterOptions"`
	// Skipped counts members dropped because a timestamp needed by an
	// active date range did not parse.
	Skipped int `json:"skipped"`
}

// Service is safe for concurrent use.
type Service struct {
	fetcher  Fetcher
	resolver PointResolver
	memo     *facets.Memo
	log      *zap.Logger
}

// New creates a Service. memo may be nil, in which case facets are rebuilt
// on every query.
func New(f Fetcher, r PointResolver, memo *facets.Memo, logger *zap.Logger) *Service {
	return &Service{fetcher: f, resolver: r, memo: memo, log: logger}
}

// Query runs f against the backend with token and returns page p.
//
// Point-search filters go through the resolver and facets come from the
// search results. Otherwise the roster is fetched with the server-side part
// of f; when that part is non-empty the unfiltered roster is fetched
// alongside it so the pickers keep offering every value.
//
// The requested page is returned as asked, even when it lies past the last
// page; callers decide whether to clamp.
func (s *Service) Query(ctx context.Context, token string, f models.MembersFilter, p models.Pagination) (Result, error) {
	scope, inScope, err := s.load(ctx, token, f)
	if err != nil {
		return Result{}, err
	}

	scope = search.UniqueMembers(scope)
	filtered, skipped := filtering.Apply(scope, f)
	if skipped > 0 {
		s.log.Debug("members skipped by date validation", zap.Int("count", skipped))
	}

	var opts models.FilterOptions
	if inScope == nil {
		inScope = scope
	}
	if s.memo != nil {
		opts = s.memo.Options(inScope)
	} else {
		opts = facets.Build(inScope)
	}

	return Result{
		Data:          paging.Paginate(filtered, p.Page, p.PageSize),
		Total:         len(filtered),
		Page:          p.Page,
		PageSize:      p.PageSize,
		PageCount:     paging.PageCount(len(filtered), p.PageSize),
		FilterOptions: opts,
		Skipped:       skipped,
	}, nil
}

// load returns the roster to filter and, when it differs, the roster whose
// facets should be offered.
func (s *Service) load(ctx context.Context, token string, f models.MembersFilter) ([]models.Member, []models.Member, error) {
	found, ok, err := s.resolver.Resolve(ctx, token, f)
	if err != nil {
		return nil, nil, err
	}
	if ok {
		return found, nil, nil
	}

	sf := memberstore.ServerFilter(f)
	if sf == nil {
		all, err := s.fetcher.FetchRoster(ctx, token, nil)
		return all, nil, err
	}

	var narrowed, all []models.Member
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		narrowed, err = s.fetcher.FetchRoster(gctx, token, sf)
		return err
	})
	g.Go(func() error {
		var err error
		all, err = s.fetcher.FetchRoster(gctx, token, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return narrowed, search.UniqueMembers(all), nil
}
