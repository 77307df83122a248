package memberstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/membersadmin/internal/app/store/memberstore"
	"github.com/dalemusser/membersadmin/internal/testutil"
	"github.com/google/go-cmp/cmp"
)

func TestSearch(t *testing.T) {
	up := testutil.NewFakeUpstream(t, testutil.RosterRecords(12))
	client := newClient(up, 10, 20)
	ctx := context.Background()

	tests := []struct {
		name     string
		axis     memberstore.Axis
		fragment string
		wantIDs  []string
	}{
		{"name substring", memberstore.AxisName, "member 1", []string{"10", "11", "12"}},
		{"name case-insensitive", memberstore.AxisName, "MEMBER 03", []string{"3"}},
		{"email", memberstore.AxisEmail, "member02@", []string{"2"}},
		{"mobile", memberstore.AxisMobile, "0000007", []string{"7"}},
		{"no match", memberstore.AxisEmail, "nobody", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := client.Search(ctx, testutil.UpstreamToken, tt.axis, tt.fragment)
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if diff := cmp.Diff(tt.wantIDs, testutil.IDs(got)); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSearch_BlankFragmentSkipsRequest(t *testing.T) {
	up := testutil.NewFakeUpstream(t, testutil.RosterRecords(3))
	client := newClient(up, 10, 20)

	got, err := client.SearchByName(context.Background(), testutil.UpstreamToken, "   ")
	if err != nil {
		t.Fatalf("SearchByName: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty result, got %d", len(got))
	}
	if calls := up.Calls("/members/search/name"); calls != 0 {
		t.Errorf("search calls = %d, want 0", calls)
	}
}

func TestSearch_Errors(t *testing.T) {
	up := testutil.NewFakeUpstream(t, testutil.RosterRecords(3))
	up.FailAxis("mobile")
	client := newClient(up, 10, 20)
	ctx := context.Background()

	if _, err := client.SearchByMobile(ctx, testutil.UpstreamToken, "0917"); !errors.Is(err, memberstore.ErrUnavailable) {
		t.Errorf("failing axis: err = %v, want ErrUnavailable", err)
	}
	if _, err := client.SearchByEmail(ctx, "expired", "member"); !errors.Is(err, memberstore.ErrUnauthorized) {
		t.Errorf("bad token: err = %v, want ErrUnauthorized", err)
	}
	if _, err := client.Search(ctx, testutil.UpstreamToken, memberstore.Axis("domain"), "x"); err == nil {
		t.Error("unknown axis should fail")
	}
}

func TestSearch_QueryIsEscaped(t *testing.T) {
	up := testutil.NewFakeUpstream(t, testutil.RosterRecords(3))
	client := newClient(up, 10, 20)

	if _, err := client.SearchByEmail(context.Background(), testutil.UpstreamToken, "a+b&c"); err != nil {
		t.Fatalf("SearchByEmail: %v", err)
	}
	if diff := cmp.Diff([]string{"a+b&c"}, up.SearchQueries()); diff != "" {
		t.Errorf("received queries mismatch (-want +got):\n%s", diff)
	}
}
