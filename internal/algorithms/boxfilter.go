// Box means through summed area tables
package algorithms

import (
	"github.com/ajroetker/go-highway/hwy/contrib/algo"
	"github.com/ajroetker/go-highway/hwy/contrib/vec"

	"dewaff/internal/core"
)

// boxFilter computes the mean over a (2r+1)^2 box around every pixel of a
// single plane. The plane is edge-replicated by r first, so every box holds
// exactly (2r+1)^2 samples.
type boxFilter struct {
	width, height, radius int
	integral              []float64 // (paddedW+1) x (paddedH+1)
}

func newBoxFilter(width, height, radius int) *boxFilter {
	pw := width + 2*radius
	ph := height + 2*radius
	return &boxFilter{
		width:    width,
		height:   height,
		radius:   radius,
		integral: make([]float64, (pw+1)*(ph+1)),
	}
}

// Mean writes the box mean of plane into dst; dst may alias plane
func (b *boxFilter) Mean(plane, dst []float64) {
	padded := core.PadPlane(plane, b.width, b.height, b.radius)
	pw := b.width + 2*b.radius
	ph := b.height + 2*b.radius
	stride := pw + 1

	// row y+1 of the table = prefix sums of padded row y + row y of the table
	for y := 0; y < ph; y++ {
		above := b.integral[y*stride+1 : (y+1)*stride]
		cur := b.integral[(y+1)*stride+1 : (y+2)*stride]
		copy(cur, padded[y*pw:(y+1)*pw])
		algo.BasePrefixSum(cur)
		vec.BaseMulConstAddTo(cur, 1, above)
	}

	side := 2*b.radius + 1
	area := float64(side * side)
	for y := 0; y < b.height; y++ {
		top := y * stride
		bottom := (y + side) * stride
		for x := 0; x < b.width; x++ {
			sum := b.integral[bottom+x+side] - b.integral[top+x+side] -
				b.integral[bottom+x] + b.integral[top+x]
			dst[y*b.width+x] = sum / area
		}
	}
}

// MeanOf is Mean into a fresh slice
func (b *boxFilter) MeanOf(plane []float64) []float64 {
	dst := make([]float64, len(plane))
	b.Mean(plane, dst)
	return dst
}

// MeanOfProduct is the box mean of the elementwise product a*b
func (b *boxFilter) MeanOfProduct(x, y []float64) []float64 {
	prod := make([]float64, len(x))
	for i := range x {
		prod[i] = x[i] * y[i]
	}
	b.Mean(prod, prod)
	return prod
}
