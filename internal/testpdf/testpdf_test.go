package testpdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocPageWidths(t *testing.T) {
	widths, err := Widths(Doc(3))
	require.NoError(t, err)
	assert.Equal(t, []int{101, 102, 103}, widths)

	widths, err = Widths(DocWithBase(2, 200))
	require.NoError(t, err)
	assert.Equal(t, []int{201, 202}, widths)
}

func TestBuildWritesRotation(t *testing.T) {
	geo, err := Geometry(Build(Page{Width: 300, Height: 500, Rotate: 90}, Page{Width: 300, Height: 500}))
	require.NoError(t, err)
	require.Len(t, geo, 2)
	assert.Equal(t, 90, geo[0].Rotate)
	assert.Equal(t, 0, geo[1].Rotate)
	assert.InDelta(t, 500, geo[0].Height, 0.01)
}

func TestBrokenFixturesDoNotParse(t *testing.T) {
	_, err := Geometry(Corrupt())
	assert.Error(t, err)

	_, err = Geometry(Encrypted())
	assert.Error(t, err)
}
