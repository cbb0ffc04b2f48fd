// Weighted average filters with decoupled guide and subject images
package algorithms

import (
	"io"
	"math"
	"sync/atomic"

	"github.com/ajroetker/go-highway/hwy/contrib/vec"
	"github.com/ajroetker/go-highway/hwy/contrib/workerpool"
	"github.com/sirupsen/logrus"

	"dewaff/internal/core"
)

// Window is the guide neighbourhood of one output pixel
type Window struct {
	Size   int
	Guide  [][]float64 // one Size*Size row-major plane per channel
	Center []float64   // guide pixel at the window center, per channel
}

// WeightKernel computes the averaging weights for one window. dst has
// Size*Size entries; weights need not be normalized.
type WeightKernel interface {
	Weights(w *Window, dst []float64)
}

// Filters runs the weighted average filters on a fixed worker pool
type Filters struct {
	pool    *workerpool.Pool
	ownPool bool
	logger  logrus.FieldLogger
}

// NewFilters creates filters backed by a new pool of the given size
// (GOMAXPROCS when workers <= 0). Call Close when done.
func NewFilters(workers int, logger logrus.FieldLogger) *Filters {
	f := NewFiltersWithPool(workerpool.New(workers), logger)
	f.ownPool = true
	return f
}

// NewFiltersWithPool shares an existing pool; Close leaves it open
func NewFiltersWithPool(pool *workerpool.Pool, logger logrus.FieldLogger) *Filters {
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	return &Filters{pool: pool, logger: logger}
}

// Workers reports the pool size
func (f *Filters) Workers() int {
	return f.pool.NumWorkers()
}

// Close releases the pool if this Filters created it
func (f *Filters) Close() {
	if f.ownPool {
		f.pool.Close()
	}
}

// applyWindowed is the skeleton shared by every windowed variant. Both
// images are edge-replicated by windowSize/2; for each output pixel the
// kernel built by newKernel weighs the guide window and the subject window
// is averaged with those weights, channel by channel. newKernel is called
// once per worker chunk so kernels may keep private scratch.
func (f *Filters) applyWindowed(name string, guide, subject *core.Image, windowSize int, newKernel func() WeightKernel) *core.Image {
	pad := windowSize / 2
	paddedGuide := core.Pad(guide, pad)
	paddedSubject := core.Pad(subject, pad)
	out := core.NewImage(subject.Width, subject.Height, subject.Channels)
	ch := subject.Channels
	area := windowSize * windowSize

	var degenerate atomic.Int64

	f.pool.ParallelFor(subject.Height, func(start, end int) {
		weightKernel := newKernel()
		win := &Window{
			Size:   windowSize,
			Guide:  makePlanes(ch, area),
			Center: make([]float64, ch),
		}
		values := makePlanes(ch, area)
		weights := make([]float64, area)

		for y := start; y < end; y++ {
			for x := 0; x < subject.Width; x++ {
				extractWindow(paddedGuide, x, y, windowSize, win.Guide)
				extractWindow(paddedSubject, x, y, windowSize, values)
				o := guide.Offset(x, y)
				copy(win.Center, guide.Pix[o:o+ch])

				weightKernel.Weights(win, weights)
				norm := vec.BaseSum(weights)

				if !(norm > 0) || math.IsInf(norm, 1) {
					copy(out.Pix[o:o+ch], subject.Pix[o:o+ch])
					degenerate.Add(1)
					continue
				}

				for c := 0; c < ch; c++ {
					out.Pix[o+c] = vec.BaseDot(weights, values[c]) / norm
				}
			}
		}
	})

	if n := degenerate.Load(); n > 0 {
		f.logger.WithFields(logrus.Fields{
			"filter": name,
			"pixels": n,
		}).Warn("Weight sum vanished, subject pixels kept")
	}

	return out
}

func makePlanes(channels, area int) [][]float64 {
	planes := make([][]float64, channels)
	for c := range planes {
		planes[c] = make([]float64, area)
	}
	return planes
}

// extractWindow splits the size*size block whose top-left corner in the
// padded image is (x, y) into per-channel planes
func extractWindow(padded *core.Image, x, y, size int, planes [][]float64) {
	ch := padded.Channels
	for r := 0; r < size; r++ {
		src := padded.Offset(x, y+r)
		row := r * size
		for col := 0; col < size; col++ {
			for c := 0; c < ch; c++ {
				planes[c][row+col] = padded.Pix[src+col*ch+c]
			}
		}
	}
}
