// Bilateral and scaled bilateral weighting
package algorithms

import (
	"dewaff/internal/core"
	"dewaff/internal/kernel"
)

// bilateralKernel multiplies a fixed spatial Gaussian by a range Gaussian
// of the colour distance to the window center
type bilateralKernel struct {
	spatial    []float64
	rangeSigma float64
}

func newBilateralKernel(windowSize int, spatialSigma, rangeSigma float64) *bilateralKernel {
	return &bilateralKernel{
		spatial:    kernel.Cached(kernel.KindSpatial, windowSize, spatialSigma),
		rangeSigma: rangeSigma,
	}
}

func (k *bilateralKernel) Weights(w *Window, dst []float64) {
	for i := range dst {
		var dist float64
		for c, plane := range w.Guide {
			d := plane[i] - w.Center[c]
			dist += d * d
		}
		dst[i] = dist
	}
	kernel.ApplyGaussian(dst, k.rangeSigma)
	for i, s := range k.spatial {
		dst[i] *= s
	}
}

// BilateralFilter averages subject with weights taken from guide. A nil
// guide filters subject against itself.
func (f *Filters) BilateralFilter(guide, subject *core.Image, windowSize int, spatialSigma, rangeSigma float64) (*core.Image, error) {
	if err := validateSpatial(Params{WindowSize: windowSize, SpatialSigma: spatialSigma, RangeSigma: rangeSigma}); err != nil {
		return nil, err
	}
	guide, err := resolveGuide(guide, subject)
	if err != nil {
		return nil, err
	}

	k := newBilateralKernel(windowSize, spatialSigma, rangeSigma)
	return f.applyWindowed(NameBilateral, guide, subject, windowSize, func() WeightKernel { return k }), nil
}

// ScaledBilateralFilter is the bilateral filter with range weights taken
// from a Gaussian-smoothed copy of the guide, which tames noise in the
// range term.
func (f *Filters) ScaledBilateralFilter(guide, subject *core.Image, windowSize int, spatialSigma, rangeSigma float64) (*core.Image, error) {
	if err := validateSpatial(Params{WindowSize: windowSize, SpatialSigma: spatialSigma, RangeSigma: rangeSigma}); err != nil {
		return nil, err
	}
	guide, err := resolveGuide(guide, subject)
	if err != nil {
		return nil, err
	}

	smoothed := kernel.Correlate(guide, kernel.Cached(kernel.KindGaussian, windowSize, spatialSigma), windowSize)
	k := newBilateralKernel(windowSize, spatialSigma, rangeSigma)
	return f.applyWindowed(NameScaledBilateral, smoothed, subject, windowSize, func() WeightKernel { return k }), nil
}
