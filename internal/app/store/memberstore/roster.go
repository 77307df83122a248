package memberstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dalemusser/membersadmin/internal/app/system/filtering"
	"github.com/dalemusser/membersadmin/internal/app/system/normalize"
	"github.com/dalemusser/membersadmin/internal/domain/models"
	"go.uber.org/zap"
)

const membersQuery = `query Members($first: Int!, $after: String, $filter: MemberFilterInput) {
  members(first: $first, after: $after, filter: $filter) {
    edges {
      node {
        id
        name
        username
        verificationStatus
        emailAddress
        mobileNumber
        domain
        dateTimeCreated
        status
        dateTimeLastActive
      }
    }
    pageInfo {
      hasNextPage
      endCursor
    }
  }
}`

// RosterFilter is the part of a MembersFilter the backend can evaluate.
type RosterFilter struct {
	Statuses             []models.AccountStatus
	VerificationStatuses []models.VerificationStatus
	Domains              []string
	RegisteredFrom       string
	RegisteredTo         string
	LastActiveFrom       string
	LastActiveTo         string
}

// ServerFilter extracts the server-side filter from f. It returns nil when a
// point-search axis is set (those requests never reach the roster) or when
// nothing is left to push down.
func ServerFilter(f models.MembersFilter) *RosterFilter {
	if f.HasPointSearch() {
		return nil
	}
	rf := &RosterFilter{
		Statuses:             f.Statuses,
		VerificationStatuses: f.VerificationStatuses,
		Domains:              normalize.Values(f.Domains),
		RegisteredFrom:       dateBound(f.RegisteredFrom),
		RegisteredTo:         dateBound(f.RegisteredTo),
		LastActiveFrom:       dateBound(f.LastActiveFrom),
		LastActiveTo:         dateBound(f.LastActiveTo),
	}
	if len(rf.input()) == 0 {
		return nil
	}
	return rf
}

// dateBound returns the trimmed bound, or "" when it does not parse. The
// local pass still applies the range, so an unparseable bound only stays
// open on its side.
func dateBound(s string) string {
	s = strings.TrimSpace(s)
	if _, ok := filtering.ParseTimestamp(s); !ok {
		return ""
	}
	return s
}

// input renders the filter as the GraphQL MemberFilterInput object.
func (f *RosterFilter) input() map[string]any {
	in := make(map[string]any)
	if f == nil {
		return in
	}
	if len(f.Statuses) > 0 {
		vals := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			vals = append(vals, upstreamStatus(s))
		}
		in["status"] = map[string]any{"in": vals}
	}
	if len(f.VerificationStatuses) > 0 {
		vals := make([]string, 0, len(f.VerificationStatuses))
		for _, s := range f.VerificationStatuses {
			vals = append(vals, strings.ToUpper(string(s)))
		}
		in["verificationStatus"] = map[string]any{"in": vals}
	}
	if len(f.Domains) > 0 {
		in["domain"] = map[string]any{"in": f.Domains}
	}
	if r := rangeInput(f.RegisteredFrom, f.RegisteredTo); r != nil {
		in["dateTimeCreated"] = r
	}
	if r := rangeInput(f.LastActiveFrom, f.LastActiveTo); r != nil {
		in["dateTimeLastActive"] = r
	}
	return in
}

func rangeInput(from, to string) map[string]any {
	if from == "" && to == "" {
		return nil
	}
	r := make(map[string]any, 2)
	if from != "" {
		r["greaterThanOrEqual"] = from
	}
	if to != "" {
		r["lesserThanOrEqual"] = to
	}
	return r
}

// upstreamStatus maps an account status to the backend enum. The backend
// still spells Blocklisted as BLACKLISTED.
func upstreamStatus(s models.AccountStatus) string {
	if s == models.StatusBlocklisted {
		return "BLACKLISTED"
	}
	return strings.ToUpper(string(s))
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type membersResponse struct {
	Data *struct {
		Members struct {
			Edges []struct {
				Node normalize.Record `json:"node"`
			} `json:"edges"`
			PageInfo struct {
				HasNextPage bool    `json:"hasNextPage"`
				EndCursor   *string `json:"endCursor"`
			} `json:"pageInfo"`
		} `json:"members"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// FetchRoster returns the full roster narrowed by the optional server-side
// filter. The GraphQL connection is followed page by page until hasNextPage
// is false or MaxPages requests have been made.
func (c *Client) FetchRoster(ctx context.Context, token string, filter *RosterFilter) ([]models.Member, error) {
	if c.cfg.GraphQLEndpoint == "" {
		return c.fetchRosterREST(ctx, token)
	}

	var (
		records []normalize.Record
		after   *string
	)
	for page := 1; page <= c.cfg.MaxPages; page++ {
		vars := map[string]any{"first": c.cfg.PageSize}
		if after != nil {
			vars["after"] = *after
		}
		if in := filter.input(); len(in) > 0 {
			vars["filter"] = in
		}

		body, err := json.Marshal(graphQLRequest{Query: membersQuery, Variables: vars})
		if err != nil {
			return nil, fmt.Errorf("encode members query: %w", err)
		}
		req, err := http.NewRequest(http.MethodPost, c.cfg.GraphQLEndpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%w: build members request: %v", ErrUnavailable, err)
		}
		req.Header.Set("Content-Type", "application/json")

		var resp membersResponse
		if err := c.do(ctx, token, req, &resp); err != nil {
			return nil, err
		}
		if len(resp.Errors) > 0 {
			return nil, fmt.Errorf("%w: graphql: %s", ErrUnauthorized, resp.Errors[0].Message)
		}
		if resp.Data == nil {
			return nil, fmt.Errorf("%w: graphql response has no data", ErrUnavailable)
		}

		conn := resp.Data.Members
		for _, e := range conn.Edges {
			records = append(records, e.Node)
		}

		c.log.Debug("roster page fetched",
			zap.Int("page", page),
			zap.Int("rows", len(conn.Edges)),
			zap.Bool("has_next", conn.PageInfo.HasNextPage))

		if !conn.PageInfo.HasNextPage {
			return normalize.Members(records)
		}
		if conn.PageInfo.EndCursor == nil || *conn.PageInfo.EndCursor == "" {
			return nil, fmt.Errorf("%w: hasNextPage without endCursor", ErrUnavailable)
		}
		after = conn.PageInfo.EndCursor
	}

	c.log.Warn("roster pagination exhausted",
		zap.Int("max_pages", c.cfg.MaxPages),
		zap.Int("page_size", c.cfg.PageSize))
	return nil, fmt.Errorf("%w (%d pages of %d)", ErrPaginationExhausted, c.cfg.MaxPages, c.cfg.PageSize)
}

// fetchRosterREST reads the unpaged REST roster. It has no server-side
// filtering; callers filter locally.
func (c *Client) fetchRosterREST(ctx context.Context, token string) ([]models.Member, error) {
	req, err := http.NewRequest(http.MethodGet, c.cfg.APIBaseURL+"/members", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build roster request: %v", ErrUnavailable, err)
	}
	var records []normalize.Record
	if err := c.do(ctx, token, req, &records); err != nil {
		return nil, err
	}
	return normalize.Members(records)
}
