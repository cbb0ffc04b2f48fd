// Patch similarity inside a processing window, used by non-local means
package patch

import (
	"math"

	"github.com/ajroetker/go-highway/hwy/contrib/vec"

	"dewaff/internal/core"
)

// Metric selects how two patches are compared
type Metric int

const (
	// SquaredL2 is the sum of squared differences
	SquaredL2 Metric = iota
	// L2 is the Euclidean norm of the difference
	L2
)

// Scratch holds the buffers reused across Distances calls by one worker
type Scratch struct {
	padded    []float64
	reference []float64
	moving    []float64
}

// NewScratch sizes the buffers for one (windowSize, patchSize) pair
func NewScratch(windowSize, patchSize int) *Scratch {
	side := windowSize + 2*(patchSize/2)
	return &Scratch{
		padded:    make([]float64, side*side),
		reference: make([]float64, patchSize*patchSize),
		moving:    make([]float64, patchSize*patchSize),
	}
}

// Distances compares the patch centered in a single-channel window against
// the patch centered at every window offset. window is windowSize*windowSize
// row-major, dst receives windowSize*windowSize distances and the center
// entry is always zero. The window is edge-replicated by patchSize/2 so no
// patch reads outside it. s may be nil.
func Distances(window []float64, windowSize, patchSize int, metric Metric, s *Scratch, dst []float64) {
	if s == nil {
		s = NewScratch(windowSize, patchSize)
	}

	half := patchSize / 2
	side := windowSize + 2*half
	for y := 0; y < side; y++ {
		row := core.Clamp(y-half, windowSize) * windowSize
		for x := 0; x < side; x++ {
			s.padded[y*side+x] = window[row+core.Clamp(x-half, windowSize)]
		}
	}

	center := windowSize / 2
	gather(s.padded, side, center, center, patchSize, s.reference)

	for i := 0; i < windowSize; i++ {
		for j := 0; j < windowSize; j++ {
			gather(s.padded, side, j, i, patchSize, s.moving)
			d := vec.BaseL2SquaredDistance(s.reference, s.moving)
			if metric == L2 {
				d = math.Sqrt(d)
			}
			dst[i*windowSize+j] = d
		}
	}
}

// Matrix allocates and returns the distance buffer for one window
func Matrix(window []float64, windowSize, patchSize int, metric Metric) []float64 {
	dst := make([]float64, windowSize*windowSize)
	Distances(window, windowSize, patchSize, metric, nil, dst)
	return dst
}

// gather copies the patch whose top-left corner is (x, y) into dst
func gather(src []float64, stride, x, y, size int, dst []float64) {
	for r := 0; r < size; r++ {
		start := (y+r)*stride + x
		copy(dst[r*size:(r+1)*size], src[start:start+size])
	}
}
