// Package pagerange parses user-facing page selections such as "1-3,4-6"
// or "1,3,5,7-9" into 1-based page ranges and page lists.
//
// Parsing is tolerant: tokens that are malformed, reversed or outside
// [1, totalPages] are dropped and only the valid subset is returned. An
// empty result is not an error here; the composition engine rejects
// empty selections with a descriptive message.
package pagerange

import (
	"slices"
	"strconv"
	"strings"
)

// Range is an inclusive, 1-based page range.
type Range struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Name  string `json:"name,omitempty"` // output name for split, optional
}

// Len returns the number of pages in the range.
func (r Range) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Pages expands the range into its page numbers.
func (r Range) Pages() []int {
	pages := make([]int, 0, r.Len())
	for p := r.Start; p <= r.End; p++ {
		pages = append(pages, p)
	}
	return pages
}

// String renders the range the way it is written: "4" or "3-5".
func (r Range) String() string {
	if r.Start == r.End {
		return strconv.Itoa(r.Start)
	}
	return strconv.Itoa(r.Start) + "-" + strconv.Itoa(r.End)
}

// ParseRanges parses text into ranges, one per valid token, in input order.
// Ranges are kept as discrete units: overlapping ranges are not merged
// because each one becomes an independent output document in a split.
func ParseRanges(text string, totalPages int) []Range {
	var ranges []Range
	for _, tok := range strings.Split(text, ",") {
		start, end, ok := parseToken(tok)
		if !ok || start < 1 || end > totalPages {
			continue
		}
		ranges = append(ranges, Range{Start: start, End: end})
	}
	return ranges
}

// ParsePageList parses text into a deduplicated, ascending list of pages.
// Range tokens expand to an inclusive run bounded by totalPages.
func ParsePageList(text string, totalPages int) []int {
	seen := make(map[int]bool)
	var pages []int
	for _, tok := range strings.Split(text, ",") {
		start, end, ok := parseToken(tok)
		if !ok || start < 1 || start > totalPages {
			continue
		}
		for p := start; p <= min(end, totalPages); p++ {
			if !seen[p] {
				seen[p] = true
				pages = append(pages, p)
			}
		}
	}
	slices.Sort(pages)
	return pages
}

// parseToken parses "n" or "start-end". Reversed ranges are rejected.
func parseToken(tok string) (start, end int, ok bool) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return 0, 0, false
	}

	lo, hi, isRange := strings.Cut(tok, "-")
	start, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, false
	}
	if !isRange {
		return start, start, true
	}

	end, err = strconv.Atoi(strings.TrimSpace(hi))
	if err != nil || start > end {
		return 0, 0, false
	}
	return start, end, true
}
