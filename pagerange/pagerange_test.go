package pagerange_test

import (
	"fmt"
	"testing"

	"github.com/lvillar/pdfcompose/pagerange"
	"github.com/stretchr/testify/assert"
)

func TestParseRanges(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		total    int
		expected []pagerange.Range
	}{
		{
			name:     "contiguous ranges",
			text:     "1-3,4-6,7-10",
			total:    10,
			expected: []pagerange.Range{{Start: 1, End: 3}, {Start: 4, End: 6}, {Start: 7, End: 10}},
		},
		{
			name:     "out of bounds token dropped",
			text:     "1-3,99-100",
			total:    10,
			expected: []pagerange.Range{{Start: 1, End: 3}},
		},
		{
			name:     "single page becomes one page range",
			text:     "4",
			total:    5,
			expected: []pagerange.Range{{Start: 4, End: 4}},
		},
		{
			name:     "overlaps are kept separate and in order",
			text:     "3-5, 1-4",
			total:    5,
			expected: []pagerange.Range{{Start: 3, End: 5}, {Start: 1, End: 4}},
		},
		{
			name:     "reversed range dropped",
			text:     "5-3,2",
			total:    5,
			expected: []pagerange.Range{{Start: 2, End: 2}},
		},
		{
			name:     "garbage mixed with one valid token",
			text:     "abc,,0,-2,2-,1-2-3, 2 - 3 ",
			total:    5,
			expected: []pagerange.Range{{Start: 2, End: 3}},
		},
		{
			name:     "range crossing the last page dropped",
			text:     "4-6",
			total:    5,
			expected: nil,
		},
		{
			name:     "empty text",
			text:     "",
			total:    5,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, pagerange.ParseRanges(tt.text, tt.total))
		})
	}
}

func TestParsePageList(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		total    int
		expected []int
	}{
		{name: "mixed singles and range", text: "1,3,5,7-9", total: 10, expected: []int{1, 3, 5, 7, 8, 9}},
		{name: "sorted ascending", text: "5,3,1", total: 5, expected: []int{1, 3, 5}},
		{name: "duplicates removed", text: "2,2,1-3,3", total: 5, expected: []int{1, 2, 3}},
		{name: "range bounded by page count", text: "4-9", total: 5, expected: []int{4, 5}},
		{name: "out of range dropped", text: "0,6,2", total: 5, expected: []int{2}},
		{name: "nothing valid", text: "x,y,9", total: 5, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, pagerange.ParsePageList(tt.text, tt.total))
		})
	}
}

func TestRangeHelpers(t *testing.T) {
	r := pagerange.Range{Start: 3, End: 5}
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []int{3, 4, 5}, r.Pages())
	assert.Equal(t, "3-5", r.String())
	assert.Equal(t, "7", pagerange.Range{Start: 7, End: 7}.String())
	assert.Equal(t, 0, pagerange.Range{Start: 5, End: 3}.Len())
}

func ExampleParseRanges() {
	for _, r := range pagerange.ParseRanges("1-3,99-100,4", 10) {
		fmt.Println(r)
	}
	// Output:
	// 1-3
	// 4
}
