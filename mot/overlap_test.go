package mot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlap(t *testing.T) {
	a := NewBBox(0, 0, 10, 10)
	b := NewBBox(5, 5, 15, 15)

	res, err := Overlap(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, res.IntersectionArea, eps)
	assert.InDelta(t, 175.0, res.UnionArea, eps)
	assert.InDelta(t, 25.0/175.0, res.IoU, eps)
}

func TestOverlapSymmetry(t *testing.T) {
	boxes := []BBox{
		NewBBox(0, 0, 10, 10),
		NewBBox(5, 5, 15, 15),
		NewBBox(-3, 2, 4, 30),
		NewBBox(100, 100, 120, 110),
		NewBBox(2, 2, 8, 8),
	}
	for _, a := range boxes {
		for _, b := range boxes {
			ab, err := Overlap(a, b)
			require.NoError(t, err)
			ba, err := Overlap(b, a)
			require.NoError(t, err)
			assert.Equal(t, ab.IntersectionArea, ba.IntersectionArea)
			assert.Equal(t, ab.IoU, ba.IoU)
		}
	}
}

func TestOverlapIdentity(t *testing.T) {
	a := NewBBox(3.5, 7, 42, 19.25)
	res, err := Overlap(a, a)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.IoU)
	assert.Equal(t, a.Area(), res.IntersectionArea)
}

func TestOverlapDisjoint(t *testing.T) {
	res, err := Overlap(NewBBox(0, 0, 10, 10), NewBBox(20, 0, 30, 10))
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.IntersectionArea)
	assert.Equal(t, 0.0, res.IoU)

	// Touching edges do not overlap
	res, err = Overlap(NewBBox(0, 0, 10, 10), NewBBox(10, 0, 20, 10))
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.IntersectionArea)
}

func TestOverlapContainment(t *testing.T) {
	outer := NewBBox(0, 0, 100, 200)
	inner := NewBBox(10, 0, 50, 40)
	res, err := Overlap(outer, inner)
	require.NoError(t, err)
	assert.Equal(t, inner.Area(), res.IntersectionArea)
	assert.Equal(t, outer.Area(), res.UnionArea)
}

func TestOverlapMalformed(t *testing.T) {
	_, err := Overlap(NewBBox(10, 0, 0, 10), NewBBox(0, 0, 10, 10))
	assert.ErrorIs(t, err, ErrMalformedBBox)
	_, err = Overlap(NewBBox(0, 0, 10, 10), NewBBox(0, 10, 10, 10))
	assert.ErrorIs(t, err, ErrMalformedBBox)
	assert.Equal(t, 0.0, IoU(NewBBox(0, 0, 0, 0), NewBBox(0, 0, 10, 10)))
}

func TestParseMatchingAlgorithm(t *testing.T) {
	algorithm, ok := ParseMatchingAlgorithm("hungarian")
	assert.True(t, ok)
	assert.Equal(t, MatchingAlgorithmHungarian, algorithm)
	assert.Equal(t, "hungarian", algorithm.String())

	algorithm, ok = ParseMatchingAlgorithm("")
	assert.True(t, ok)
	assert.Equal(t, MatchingAlgorithmGreedy, algorithm)

	_, ok = ParseMatchingAlgorithm("optimal")
	assert.False(t, ok)
}
