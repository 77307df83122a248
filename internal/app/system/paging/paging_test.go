package paging

import (
	"math"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func TestPageCount(t *testing.T) {
	tests := []struct {
		total, size, want int
	}{
		{0, 10, 1},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{23, 10, 3},
		{23, 25, 1},
		{100, 50, 2},
		{5, 0, 1},
		{23, math.MaxInt, 1},
	}
	for _, tt := range tests {
		if got := PageCount(tt.total, tt.size); got != tt.want {
			t.Errorf("PageCount(%d, %d) = %d, want %d", tt.total, tt.size, got, tt.want)
		}
	}
}

func TestPaginate_Empty(t *testing.T) {
	if got := Paginate([]int{}, 1, 10); got == nil || len(got) != 0 {
		t.Errorf("Paginate(empty) = %#v, want empty slice", got)
	}
}

func TestPaginate(t *testing.T) {
	items := seq(23)
	tests := []struct {
		name       string
		page, size int
		want       []int
	}{
		{"first page", 1, 10, seq(10)},
		{"middle page", 2, 10, []int{11, 12, 13, 14, 15, 16, 17, 18, 19, 20}},
		{"partial last page", 3, 10, []int{21, 22, 23}},
		{"past the end", 4, 10, []int{}},
		{"zero page", 0, 10, []int{}},
		{"zero size", 1, 0, []int{}},
		{"size larger than list", 1, 50, seq(23)},
		{"max int page", math.MaxInt, 50, []int{}},
		{"max int page size 10", math.MaxInt, 10, []int{}},
		{"max int size", 2, math.MaxInt, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Paginate(items, tt.page, tt.size)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Paginate(%d, %d) mismatch (-want +got):\n%s", tt.page, tt.size, diff)
			}
		})
	}
}

func TestPaginate_PagesCoverList(t *testing.T) {
	for _, n := range []int{0, 1, 9, 10, 11, 23, 50, 51} {
		for _, size := range PageSizeOptions {
			items := seq(n)
			var joined []int
			for p := 1; p <= PageCount(n, size); p++ {
				page := Paginate(items, p, size)
				if len(page) > size {
					t.Fatalf("n=%d size=%d page %d has %d rows", n, size, p, len(page))
				}
				joined = append(joined, page...)
			}
			if len(joined) != n {
				t.Fatalf("n=%d size=%d: pages cover %d rows", n, size, len(joined))
			}
			for i, v := range joined {
				if v != i+1 {
					t.Fatalf("n=%d size=%d: row %d = %d, order broken", n, size, i, v)
				}
			}
		}
	}
}

func TestPaginate_DoesNotAliasTail(t *testing.T) {
	items := seq(5)
	page := Paginate(items, 1, 2)
	page = append(page, 99)
	if items[2] != 3 {
		t.Errorf("append to page overwrote source: items[2] = %d", items[2])
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		page, total, size, want int
	}{
		{4, 23, 10, 3},
		{3, 23, 10, 3},
		{0, 23, 10, 1},
		{-2, 23, 10, 1},
		{2, 0, 10, 1},
	}
	for _, tt := range tests {
		if got := Clamp(tt.page, tt.total, tt.size); got != tt.want {
			t.Errorf("Clamp(%d, %d, %d) = %d, want %d", tt.page, tt.total, tt.size, got, tt.want)
		}
	}
}

func TestComputeRange(t *testing.T) {
	tests := []struct {
		name                     string
		page, size, shown, total int
		want                     Range
	}{
		{"no results", 1, 10, 0, 0, Range{}},
		{"first of three", 1, 10, 10, 23, Range{Start: 1, End: 10, NextPage: 2}},
		{"middle", 2, 10, 10, 23, Range{Start: 11, End: 20, PrevPage: 1, NextPage: 3}},
		{"last partial", 3, 10, 3, 23, Range{Start: 21, End: 23, PrevPage: 2}},
		{"single page", 1, 25, 23, 23, Range{Start: 1, End: 23}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeRange(tt.page, tt.size, tt.shown, tt.total)
			if got != tt.want {
				t.Errorf("ComputeRange = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParsePageAndSize(t *testing.T) {
	tests := []struct {
		target   string
		wantPage int
		wantSize int
	}{
		{"/members", 1, DefaultPageSize},
		{"/members?page=3&pageSize=25", 3, 25},
		{"/members?page=abc&pageSize=xyz", 1, DefaultPageSize},
		{"/members?page=-1&pageSize=0", 1, DefaultPageSize},
		{"/members?page=2&pageSize=7", 2, DefaultPageSize},
		{"/members?pageSize=50", 1, 50},
		{"/members?page=9223372036854775807&pageSize=50", MaxPage, 50},
		{"/members?page=99999999999999999999", 1, DefaultPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.target, nil)
			if got := ParsePage(r); got != tt.wantPage {
				t.Errorf("ParsePage = %d, want %d", got, tt.wantPage)
			}
			if got := ParsePageSize(r); got != tt.wantSize {
				t.Errorf("ParsePageSize = %d, want %d", got, tt.wantSize)
			}
		})
	}
}
