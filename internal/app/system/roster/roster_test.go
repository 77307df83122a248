package roster_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/membersadmin/internal/app/store/memberstore"
	"github.com/dalemusser/membersadmin/internal/app/system/facets"
	"github.com/dalemusser/membersadmin/internal/app/system/roster"
	"github.com/dalemusser/membersadmin/internal/app/system/search"
	"github.com/dalemusser/membersadmin/internal/domain/models"
	"github.com/dalemusser/membersadmin/internal/testutil"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

func newService(t *testing.T, n int) (*roster.Service, *testutil.FakeUpstream) {
	t.Helper()
	up := testutil.NewFakeUpstream(t, testutil.RosterRecords(n))
	client := memberstore.New(memberstore.Config{
		GraphQLEndpoint: up.GraphQLURL(),
		APIBaseURL:      up.URL(),
		PageSize:        50,
	}, zap.NewNop())
	resolver := search.NewResolver(client, 4, zap.NewNop())
	return roster.New(client, resolver, facets.NewMemo(8), zap.NewNop()), up
}

func TestQuery_FullRoster(t *testing.T) {
	svc, up := newService(t, 23)

	res, err := svc.Query(context.Background(), testutil.UpstreamToken, models.MembersFilter{}, models.Pagination{Page: 3, PageSize: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.Total != 23 || res.PageCount != 3 || res.Page != 3 || res.PageSize != 10 {
		t.Errorf("totals = %d/%d page %d size %d", res.Total, res.PageCount, res.Page, res.PageSize)
	}
	if diff := cmp.Diff([]string{"21", "22", "23"}, testutil.IDs(res.Data)); diff != "" {
		t.Errorf("page ids mismatch (-want +got):\n%s", diff)
	}
	if len(res.FilterOptions.Names) != 23 {
		t.Errorf("facet names = %d, want 23", len(res.FilterOptions.Names))
	}
	if calls := up.Calls("/graphql"); calls != 1 {
		t.Errorf("graphql calls = %d, want 1", calls)
	}
}

func TestQuery_ServerFilterKeepsFullFacets(t *testing.T) {
	svc, up := newService(t, 12)

	f := models.MembersFilter{Statuses: []models.AccountStatus{models.StatusDisabled}}
	res, err := svc.Query(context.Background(), testutil.UpstreamToken, f, models.Pagination{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	// DISABLED is every id with id%3 == 1.
	if diff := cmp.Diff([]string{"1", "4", "7", "10"}, testutil.IDs(res.Data)); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	if len(res.FilterOptions.Names) != 12 {
		t.Errorf("facet names = %d, want all 12", len(res.FilterOptions.Names))
	}
	if calls := up.Calls("/graphql"); calls != 2 {
		t.Errorf("graphql calls = %d, want filtered + unfiltered", calls)
	}
}

func TestQuery_PointSearch(t *testing.T) {
	svc, up := newService(t, 12)

	f := models.MembersFilter{Names: []string{"Member 03", "Member 11"}}
	res, err := svc.Query(context.Background(), testutil.UpstreamToken, f, models.Pagination{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if diff := cmp.Diff([]string{"3", "11"}, testutil.IDs(res.Data)); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Member 03", "Member 11"}, res.FilterOptions.Names); diff != "" {
		t.Errorf("facets should come from the search results (-want +got):\n%s", diff)
	}
	if up.Calls("/graphql") != 0 {
		t.Error("point search should not fetch the roster")
	}
	if up.Calls("/members/search/name") != 2 {
		t.Errorf("name searches = %d, want 2", up.Calls("/members/search/name"))
	}
}

func TestQuery_PageBeyondEnd(t *testing.T) {
	svc, _ := newService(t, 23)

	res, err := svc.Query(context.Background(), testutil.UpstreamToken, models.MembersFilter{}, models.Pagination{Page: 4, PageSize: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res.Data) != 0 || res.Page != 4 || res.PageCount != 3 {
		t.Errorf("got %d rows page %d of %d, want 0 rows page 4 of 3", len(res.Data), res.Page, res.PageCount)
	}
}

func TestQuery_Unauthorized(t *testing.T) {
	svc, _ := newService(t, 3)

	_, err := svc.Query(context.Background(), "expired", models.MembersFilter{}, models.Pagination{Page: 1, PageSize: 10})
	if !errors.Is(err, memberstore.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}

	_, err = svc.Query(context.Background(), "expired", models.MembersFilter{Emails: []string{"x"}}, models.Pagination{Page: 1, PageSize: 10})
	if !errors.Is(err, search.ErrSearchUnavailable) || !errors.Is(err, memberstore.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrSearchUnavailable wrapping ErrUnauthorized", err)
	}
}

func TestQuery_SkipsUnparseableTimestamps(t *testing.T) {
	svc, up := newService(t, 3)
	records := testutil.RosterRecords(3)
	records[0]["dateTimeLastActive"] = "not-a-date"
	up.SetRecords(records)

	f := models.MembersFilter{LastActiveFrom: "2024-01-01"}
	res, err := svc.Query(context.Background(), testutil.UpstreamToken, f, models.Pagination{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if diff := cmp.Diff([]string{"2", "3"}, testutil.IDs(res.Data)); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	if res.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", res.Skipped)
	}
}

func TestQuery_UnparseableBoundStaysLocal(t *testing.T) {
	svc, up := newService(t, 3)
	records := testutil.RosterRecords(3)
	records[0]["dateTimeLastActive"] = "not-a-date"
	up.SetRecords(records)

	f := models.MembersFilter{LastActiveFrom: "garbage"}
	res, err := svc.Query(context.Background(), testutil.UpstreamToken, f, models.Pagination{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if diff := cmp.Diff([]string{"2", "3"}, testutil.IDs(res.Data)); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	if res.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", res.Skipped)
	}
}
