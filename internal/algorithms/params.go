// Shared parameter set for the windowed filters
package algorithms

import (
	"dewaff/internal/core"
)

// Params carries every tunable of the filter variants. Each variant reads
// the subset it needs.
type Params struct {
	WindowSize   int     `json:"window_size" yaml:"window_size" toml:"window_size"`
	PatchSize    int     `json:"patch_size" yaml:"patch_size" toml:"patch_size"`
	SpatialSigma float64 `json:"spatial_sigma" yaml:"spatial_sigma" toml:"spatial_sigma"`
	RangeSigma   float64 `json:"range_sigma" yaml:"range_sigma" toml:"range_sigma"`
}

// DefaultParams mirrors the command line defaults
func DefaultParams() Params {
	const windowSize = 15
	return Params{
		WindowSize:   windowSize,
		PatchSize:    3,
		SpatialSigma: windowSize / 1.5,
		RangeSigma:   10,
	}
}

func validateSpatial(p Params) error {
	if err := core.ValidateWindowSize(p.WindowSize); err != nil {
		return err
	}
	if err := core.ValidateSigma("spatial sigma", p.SpatialSigma); err != nil {
		return err
	}
	return core.ValidateSigma("range sigma", p.RangeSigma)
}

func validateNonLocal(p Params) error {
	if err := core.ValidateWindowSize(p.WindowSize); err != nil {
		return err
	}
	if err := core.ValidatePatchSize(p.PatchSize, p.WindowSize); err != nil {
		return err
	}
	return core.ValidateSigma("range sigma", p.RangeSigma)
}

func validateGuided(p Params) error {
	if err := core.ValidateWindowSize(p.WindowSize); err != nil {
		return err
	}
	return core.ValidateSigma("range sigma", p.RangeSigma)
}

// resolveGuide defaults a nil guide to the subject and checks the pair
func resolveGuide(guide, subject *core.Image) (*core.Image, error) {
	if guide == nil {
		guide = subject
	}
	if err := core.ValidatePair(guide, subject); err != nil {
		return nil, err
	}
	return guide, nil
}
