// Non-local means weighting
package algorithms

import (
	"math"

	"dewaff/internal/core"
	"dewaff/internal/patch"
)

// nlmKernel weighs each window offset by the similarity of its guide patch
// to the center patch, summed over channels. Not safe for concurrent use.
type nlmKernel struct {
	patchSize int
	scale     float64 // -1 / h^2 with h^2 = 2 sigma_r^2
	scratch   *patch.Scratch
	dist      []float64
}

func newNLMKernel(windowSize, patchSize int, rangeSigma float64) *nlmKernel {
	return &nlmKernel{
		patchSize: patchSize,
		scale:     -1 / (2 * rangeSigma * rangeSigma),
		scratch:   patch.NewScratch(windowSize, patchSize),
		dist:      make([]float64, windowSize*windowSize),
	}
}

func (k *nlmKernel) Weights(w *Window, dst []float64) {
	for i := range dst {
		dst[i] = 0
	}
	for _, plane := range w.Guide {
		patch.Distances(plane, w.Size, k.patchSize, patch.SquaredL2, k.scratch, k.dist)
		for i, d := range k.dist {
			dst[i] += math.Exp(d * k.scale)
		}
	}
}

// NonLocalMeansFilter averages subject with patch similarity weights
// computed on guide. A nil guide filters subject against itself.
func (f *Filters) NonLocalMeansFilter(guide, subject *core.Image, windowSize, patchSize int, rangeSigma float64) (*core.Image, error) {
	if err := validateNonLocal(Params{WindowSize: windowSize, PatchSize: patchSize, RangeSigma: rangeSigma}); err != nil {
		return nil, err
	}
	guide, err := resolveGuide(guide, subject)
	if err != nil {
		return nil, err
	}

	return f.applyWindowed(NameNonLocalMeans, guide, subject, windowSize, func() WeightKernel {
		return newNLMKernel(windowSize, patchSize, rangeSigma)
	}), nil
}
