package dewaff

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dewaff/internal/algorithms"
	"dewaff/internal/core"
	"dewaff/internal/kernel"
	"dewaff/internal/usm"
)

var (
	darkSide  = []float64{20, 10, -10}
	lightSide = []float64{80, -10, 10}
)

const edge = 32

func labStep(t *testing.T) *core.Image {
	t.Helper()
	img := core.NewImage(64, 64, 3)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			side := darkSide
			if x >= edge {
				side = lightSide
			}
			for c, v := range side {
				img.Set(x, y, c, v)
			}
		}
	}
	return img
}

func newDeceiver(t *testing.T) *Deceiver {
	t.Helper()
	filters := algorithms.NewFilters(4, nil)
	t.Cleanup(filters.Close)
	return New(filters, nil)
}

func ownSide(x int) []float64 {
	if x >= edge {
		return lightSide
	}
	return darkSide
}

func TestDeceivedBilateralPreservesStepEdge(t *testing.T) {
	d := newDeceiver(t)
	img := labStep(t)
	const ws = 11
	sigmaS := ws / 1.5

	out, err := d.DeceivedBilateralFilter(img, ws, sigmaS, 10)
	require.NoError(t, err)
	require.True(t, out.SameShape(img))

	radius := ws / 2
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			want := ownSide(x)
			far := x < edge-radius || x >= edge+radius
			for c := range want {
				if far {
					assert.InDelta(t, want[c], out.At(x, y, c), 1e-9, "far pixel (%d,%d,%d)", x, y, c)
				} else {
					assert.InDelta(t, want[c], out.At(x, y, c), 1, "band pixel (%d,%d,%d)", x, y, c)
				}
			}
		}
	}

	// a Gaussian blur with the same spatial support pulls the edge columns
	// towards the other side; the deceived filter does not
	blurred := kernel.Correlate(img, kernel.GaussianKernel(ws, sigmaS), ws)
	for _, x := range []int{edge - 1, edge} {
		want := ownSide(x)[0]
		assert.Less(t, math.Abs(out.At(x, 32, 0)-want), math.Abs(blurred.At(x, 32, 0)-want))
		assert.Greater(t, math.Abs(blurred.At(x, 32, 0)-want), 10.0)
	}

	again, err := d.DeceivedBilateralFilter(img, ws, sigmaS, 10)
	require.NoError(t, err)
	assert.Equal(t, out.Pix, again.Pix)
}

func TestApplyMatchesNamedMethods(t *testing.T) {
	d := newDeceiver(t)
	img := labStep(t)
	params := algorithms.Params{WindowSize: 7, PatchSize: 3, SpatialSigma: 7 / 1.5, RangeSigma: 10}

	direct := map[string]func() (*core.Image, error){
		algorithms.NameBilateral: func() (*core.Image, error) {
			return d.DeceivedBilateralFilter(img, params.WindowSize, params.SpatialSigma, params.RangeSigma)
		},
		algorithms.NameScaledBilateral: func() (*core.Image, error) {
			return d.DeceivedScaledBilateralFilter(img, params.WindowSize, params.SpatialSigma, params.RangeSigma)
		},
		algorithms.NameNonLocalMeans: func() (*core.Image, error) {
			return d.DeceivedNonLocalMeansFilter(img, params.WindowSize, params.PatchSize, params.SpatialSigma, params.RangeSigma)
		},
		algorithms.NameGuided: func() (*core.Image, error) {
			return d.DeceivedGuidedFilter(img, params.WindowSize, params.SpatialSigma, params.RangeSigma)
		},
	}

	for name, run := range direct {
		want, err := run()
		require.NoError(t, err, name)
		got, err := d.Apply(name, img, params)
		require.NoError(t, err, name)
		assert.Equal(t, want.Pix, got.Pix, name)
	}
}

func TestGuideIsUnsharpMask(t *testing.T) {
	d := newDeceiver(t)
	d.Lambda = 1.5
	img := labStep(t)

	guide, err := d.Guide(img, 9, 3)
	require.NoError(t, err)
	want, err := usm.UnsharpMask(img, 9, 1.5, 3)
	require.NoError(t, err)
	assert.Equal(t, want.Pix, guide.Pix)
}

func TestZeroLambdaFallsBackToPlainFilter(t *testing.T) {
	filters := algorithms.NewFilters(2, nil)
	t.Cleanup(filters.Close)
	d := New(filters, nil)
	d.Lambda = 0

	img := labStep(t)
	deceived, err := d.DeceivedBilateralFilter(img, 5, 2, 10)
	require.NoError(t, err)
	plain, err := filters.BilateralFilter(nil, img, 5, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, plain.Pix, deceived.Pix)
}

func TestApplyRejectsBadInput(t *testing.T) {
	d := newDeceiver(t)
	img := labStep(t)

	_, err := d.Apply("median", img, algorithms.DefaultParams())
	assert.ErrorIs(t, err, core.ErrInvalidParameter)

	params := algorithms.DefaultParams()
	params.PatchSize = 4
	_, err = d.Apply(algorithms.NameNonLocalMeans, img, params)
	assert.ErrorIs(t, err, core.ErrInvalidParameter)

	_, err = d.Apply(algorithms.NameGuided, nil, algorithms.DefaultParams())
	assert.ErrorIs(t, err, core.ErrInputMismatch)

	_, err = d.DeceivedGuidedFilter(img, 5, 0, 10)
	assert.ErrorIs(t, err, core.ErrInvalidParameter)
}
