// Deceived weighted average filters: filter the input while taking the
// weights from its unsharp-masked copy
package dewaff

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"dewaff/internal/algorithms"
	"dewaff/internal/core"
	"dewaff/internal/usm"
)

// DefaultLambda is the unsharp mask strength used to build guides
const DefaultLambda = 2.0

// Deceiver pairs every filter variant with an unsharp-masked guide
type Deceiver struct {
	Lambda float64

	filters *algorithms.Filters
	logger  logrus.FieldLogger
}

// New creates a Deceiver with DefaultLambda
func New(filters *algorithms.Filters, logger logrus.FieldLogger) *Deceiver {
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	return &Deceiver{
		Lambda:  DefaultLambda,
		filters: filters,
		logger:  logger,
	}
}

// Guide builds the sharpened guide for subject
func (d *Deceiver) Guide(subject *core.Image, windowSize int, spatialSigma float64) (*core.Image, error) {
	guide, err := usm.UnsharpMask(subject, windowSize, d.Lambda, spatialSigma)
	if err != nil {
		return nil, fmt.Errorf("failed to build guide: %w", err)
	}
	return guide, nil
}

func (d *Deceiver) DeceivedBilateralFilter(subject *core.Image, windowSize int, spatialSigma, rangeSigma float64) (*core.Image, error) {
	guide, err := d.Guide(subject, windowSize, spatialSigma)
	if err != nil {
		return nil, err
	}
	return d.filters.BilateralFilter(guide, subject, windowSize, spatialSigma, rangeSigma)
}

func (d *Deceiver) DeceivedScaledBilateralFilter(subject *core.Image, windowSize int, spatialSigma, rangeSigma float64) (*core.Image, error) {
	guide, err := d.Guide(subject, windowSize, spatialSigma)
	if err != nil {
		return nil, err
	}
	return d.filters.ScaledBilateralFilter(guide, subject, windowSize, spatialSigma, rangeSigma)
}

// DeceivedNonLocalMeansFilter uses spatialSigma only for the guide
func (d *Deceiver) DeceivedNonLocalMeansFilter(subject *core.Image, windowSize, patchSize int, spatialSigma, rangeSigma float64) (*core.Image, error) {
	guide, err := d.Guide(subject, windowSize, spatialSigma)
	if err != nil {
		return nil, err
	}
	return d.filters.NonLocalMeansFilter(guide, subject, windowSize, patchSize, rangeSigma)
}

// DeceivedGuidedFilter uses spatialSigma only for the guide
func (d *Deceiver) DeceivedGuidedFilter(subject *core.Image, windowSize int, spatialSigma, rangeSigma float64) (*core.Image, error) {
	guide, err := d.Guide(subject, windowSize, spatialSigma)
	if err != nil {
		return nil, err
	}
	return d.filters.GuidedFilter(guide, subject, windowSize, rangeSigma)
}

// Apply runs the registered variant name with a sharpened guide. Parameters
// are validated before the guide is built.
func (d *Deceiver) Apply(name string, subject *core.Image, params algorithms.Params) (*core.Image, error) {
	if err := algorithms.ValidateParameters(name, params); err != nil {
		return nil, err
	}
	if err := core.ValidateImage(subject); err != nil {
		return nil, err
	}

	d.logger.WithFields(logrus.Fields{
		"filter":        name,
		"window_size":   params.WindowSize,
		"spatial_sigma": params.SpatialSigma,
		"range_sigma":   params.RangeSigma,
		"lambda":        d.Lambda,
		"image":         subject.String(),
	}).Debug("Applying deceived filter")

	guide, err := d.Guide(subject, params.WindowSize, params.SpatialSigma)
	if err != nil {
		return nil, err
	}
	return d.filters.Apply(name, guide, subject, params)
}
