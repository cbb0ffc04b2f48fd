package kernel

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dewaff/internal/core"
)

func TestMeshGrid(t *testing.T) {
	X, Y := MeshGrid(3)

	wantX := []float64{-1, 0, 1, -1, 0, 1, -1, 0, 1}
	wantY := []float64{-1, -1, -1, 0, 0, 0, 1, 1, 1}
	if diff := cmp.Diff(wantX, X); diff != "" {
		t.Errorf("X mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantY, Y); diff != "" {
		t.Errorf("Y mismatch (-want +got):\n%s", diff)
	}
}

func TestGaussian(t *testing.T) {
	assert.Equal(t, 1.0, Gaussian(0, 3))
	assert.InDelta(t, math.Exp(-0.5), Gaussian(4, 2), 1e-15)

	values := []float64{0, 4, 16}
	ApplyGaussian(values, 2)
	assert.InDelta(t, 1.0, values[0], 1e-15)
	assert.InDelta(t, math.Exp(-0.5), values[1], 1e-15)
	assert.InDelta(t, math.Exp(-2), values[2], 1e-15)
}

func TestGaussianKernelIsNormalized(t *testing.T) {
	for _, size := range []int{3, 5, 11, 17} {
		for _, sigma := range []float64{0.5, 1, 11 / 1.5} {
			k := GaussianKernel(size, sigma)
			require.Len(t, k, size*size)
			assert.InDelta(t, 1.0, Sum(k), 1e-12)

			center := k[(size*size)/2]
			for _, v := range k {
				assert.LessOrEqual(t, v, center)
				assert.Greater(t, v, 0.0)
			}
			// symmetric under 180 degree rotation
			for i := range k {
				assert.InDelta(t, k[i], k[len(k)-1-i], 1e-15)
			}
		}
	}
}

func TestSpatialKernelCenterIsOne(t *testing.T) {
	k := SpatialKernel(7, 2)
	assert.Equal(t, 1.0, k[24])
	assert.InDelta(t, Gaussian(1, 2), k[23], 1e-15)
}

func TestLoGKernelSumsToZero(t *testing.T) {
	for _, size := range []int{3, 5, 9, 15, 17} {
		for _, sigma := range []float64{0.005, 0.5, 1.4, 10} {
			k := LoGKernel(size, sigma)
			var maxAbs float64
			for _, v := range k {
				maxAbs = math.Max(maxAbs, math.Abs(v))
			}
			assert.InDelta(t, 0, Sum(k), 1e-12*math.Max(1, maxAbs)*float64(size*size),
				"size=%d sigma=%g", size, sigma)
		}
	}
}

func TestLoGKernelCenterIsNegative(t *testing.T) {
	k := LoGKernel(5, 1)
	center := k[12]
	for i, v := range k {
		if i != 12 {
			assert.Greater(t, v, center)
		}
	}
}

func TestMinMax(t *testing.T) {
	img := core.NewImage(2, 1, 3)
	copy(img.Pix, []float64{1, -7, 3, 4, 0, 2})

	minVal, maxVal := MinMax(img)
	assert.Equal(t, -7.0, minVal)
	assert.Equal(t, 4.0, maxVal)
	assert.Equal(t, 7.0, AbsMax(img))
}

func TestCorrelateWithDeltaIsIdentity(t *testing.T) {
	img := core.NewImage(6, 5, 3)
	for i := range img.Pix {
		img.Pix[i] = float64(i%7) - 2.5
	}
	delta := make([]float64, 9)
	delta[4] = 1

	out := Correlate(img, delta, 3)
	assert.Equal(t, img.Pix, out.Pix)
}

func TestCorrelateShift(t *testing.T) {
	img := core.NewImage(4, 1, 1)
	copy(img.Pix, []float64{1, 2, 3, 4})
	// picks the right-hand neighbour
	k := []float64{
		0, 0, 0,
		0, 0, 1,
		0, 0, 0,
	}
	out := Correlate(img, k, 3)
	assert.Equal(t, []float64{2, 3, 4, 4}, out.Pix)
}

func TestCorrelateKeepsConstantImageAtBorders(t *testing.T) {
	img := core.NewImage(9, 7, 1)
	img.Fill(0.25)

	out := Correlate(img, GaussianKernel(5, 1.5), 5)
	for i, v := range out.Pix {
		assert.InDelta(t, 0.25, v, 1e-14, "pixel %d", i)
	}
}

func TestCacheReusesKernels(t *testing.T) {
	c := NewCache(4)
	a := c.Get(KindGaussian, 5, 1)
	b := c.Get(KindGaussian, 5, 1)
	require.Equal(t, 1, c.Len())
	assert.Same(t, &a[0], &b[0])

	c.Get(KindLoG, 5, 1)
	c.Get(KindSpatial, 5, 1)
	c.Get(KindSpatial, 7, 1)
	assert.Equal(t, 4, c.Len())

	c.Get(KindSpatial, 9, 1)
	assert.Equal(t, 1, c.Len())

	assert.Equal(t, LoGKernel(5, 1), Cached(KindLoG, 5, 1))
}
