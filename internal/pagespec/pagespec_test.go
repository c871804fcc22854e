package pagespec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRotations(t *testing.T) {
	got, err := ParseRotations("1:90, 3:0,3:-90 ,")
	require.NoError(t, err)
	assert.Equal(t, map[int]int{0: 90, 2: -90}, got)

	for _, bad := range []string{"", "1", "0:90", "x:90", "2:right"} {
		_, err := ParseRotations(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		in       string
		source   string
		index    int
		rotation *int
	}{
		{in: "a.pdf:1", source: "a.pdf", index: 0},
		{in: "b.pdf:3:90", source: "b.pdf", index: 2, rotation: ptr(90)},
		{in: "shelf::2", source: "shelf:", index: 1},
		{in: "shelf::2:0", source: "shelf:", index: 1, rotation: ptr(0)},
		{in: "C:/docs/x.pdf:4", source: "C:/docs/x.pdf", index: 3},
		{in: "dir:5:3", source: "dir:5", index: 2},
		{in: "dir:5:-270", source: "dir", index: 4, rotation: ptr(-270)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ref, err := ParseRef(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.source, ref.Source)
			assert.Equal(t, tt.index, ref.Index)
			assert.Equal(t, tt.rotation, ref.Rotation)
		})
	}

	for _, bad := range []string{"a.pdf", "a.pdf:", "a.pdf:x", ":3", "a.pdf:0"} {
		_, err := ParseRef(bad)
		assert.Error(t, err, bad)
	}
}

func ptr(n int) *int { return &n }
