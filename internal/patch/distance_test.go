package patch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(windowSize int) []float64 {
	w := make([]float64, windowSize*windowSize)
	for i := range w {
		w[i] = math.Sin(float64(i)) * 3
	}
	return w
}

func TestSelfDistanceIsZero(t *testing.T) {
	for _, tc := range []struct{ window, patch int }{{3, 3}, {7, 3}, {9, 5}, {11, 11}} {
		for _, metric := range []Metric{SquaredL2, L2} {
			d := Matrix(ramp(tc.window), tc.window, tc.patch, metric)
			require.Len(t, d, tc.window*tc.window)
			center := tc.window / 2
			assert.Equal(t, 0.0, d[center*tc.window+center], "window=%d patch=%d", tc.window, tc.patch)
			for _, v := range d {
				assert.GreaterOrEqual(t, v, 0.0)
			}
		}
	}
}

func TestConstantWindowHasZeroDistances(t *testing.T) {
	w := make([]float64, 25)
	for i := range w {
		w[i] = 0.7
	}
	for _, v := range Matrix(w, 5, 3, SquaredL2) {
		assert.Equal(t, 0.0, v)
	}
}

func TestDistancesMatchHandComputedValues(t *testing.T) {
	// 3x3 window, 3x3 patch: the padded window is 5x5
	w := []float64{
		0, 0, 0,
		0, 1, 0,
		0, 0, 0,
	}
	d := Matrix(w, 3, 3, SquaredL2)

	// the reference patch is the window itself; every shifted patch holds
	// the single 1 in another cell, so exactly two cells differ
	assert.Equal(t, 2.0, d[0])
	assert.Equal(t, 2.0, d[8])
	assert.Equal(t, 2.0, d[1])

	l2 := Matrix(w, 3, 3, L2)
	assert.InDelta(t, math.Sqrt2, l2[0], 1e-15)
}

func TestScratchReuse(t *testing.T) {
	s := NewScratch(7, 3)
	a := make([]float64, 49)
	b := make([]float64, 49)

	Distances(ramp(7), 7, 3, SquaredL2, s, a)
	Distances(ramp(7), 7, 3, SquaredL2, nil, b)
	assert.Equal(t, b, a)
}
