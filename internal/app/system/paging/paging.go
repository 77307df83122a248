// Package paging implements page-number pagination over in-memory slices.
package paging

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/dalemusser/waffle/pantry/query"
)

// DefaultPageSize is the number of rows shown when no size is chosen.
const DefaultPageSize = 10

// MaxPage caps requested page numbers. Anything above it is past the end of
// any roster the backend can return.
const MaxPage = 1_000_000

// PageSizeOptions are the page sizes an operator may pick.
var PageSizeOptions = []int{10, 25, 50}

// ValidPageSize reports whether n is one of PageSizeOptions.
func ValidPageSize(n int) bool {
	return slices.Contains(PageSizeOptions, n)
}

// PageCount returns the number of pages needed for total rows. An empty
// result still has one (empty) page.
func PageCount(total, size int) int {
	if size < 1 || total <= 0 {
		return 1
	}
	return (total-1)/size + 1
}

// Clamp moves page into [1, PageCount(total, size)].
func Clamp(page, total, size int) int {
	if page < 1 {
		return 1
	}
	if last := PageCount(total, size); page > last {
		return last
	}
	return page
}

// Paginate returns the rows of the 1-based page. Pages outside the range
// yield an empty, non-nil slice.
func Paginate[T any](items []T, page, size int) []T {
	if page < 1 || size < 1 {
		return []T{}
	}
	// Compare pages before multiplying so a huge page cannot overflow.
	if page-1 >= PageCount(len(items), size) || len(items) == 0 {
		return []T{}
	}
	start := (page - 1) * size
	end := min(start+size, len(items))
	return items[start:end:end]
}

// ParsePage reads the "page" query parameter. Anything that is not a
// positive integer yields 1.
func ParsePage(r *http.Request) int {
	return PageValue(query.Get(r, "page"))
}

// ParsePageSize reads the "pageSize" query parameter. Values outside
// PageSizeOptions yield DefaultPageSize.
func ParsePageSize(r *http.Request) int {
	return PageSizeValue(query.Get(r, "pageSize"))
}

// PageValue parses a raw page number, falling back to 1 and capped at
// MaxPage.
func PageValue(s string) int {
	return min(positiveOr(s, 1), MaxPage)
}

// PageSizeValue parses a raw page size, falling back to DefaultPageSize.
func PageSizeValue(s string) int {
	n := positiveOr(s, DefaultPageSize)
	if !ValidPageSize(n) {
		return DefaultPageSize
	}
	return n
}

func positiveOr(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// Range holds computed display values for one page of a list:
// "Showing Start–End of Total".
type Range struct {
	Start    int // 1-based index of the first row shown (0 if none)
	End      int // 1-based index of the last row shown (0 if none)
	PrevPage int // page for the previous link (0 if none)
	NextPage int // page for the next link (0 if none)
}

// ComputeRange calculates display values for page given the page size, the
// number of rows actually shown and the filtered total.
func ComputeRange(page, size, shown, total int) Range {
	if shown == 0 {
		return Range{}
	}
	start := (page-1)*size + 1
	rng := Range{
		Start: start,
		End:   start + shown - 1,
	}
	if page > 1 {
		rng.PrevPage = page - 1
	}
	if page < PageCount(total, size) {
		rng.NextPage = page + 1
	}
	return rng
}
