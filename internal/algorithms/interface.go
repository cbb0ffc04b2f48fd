// Algorithm registry for the decoupled weighted average filters
package algorithms

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"dewaff/internal/core"
)

// Registered variant names
const (
	NameBilateral       = "bilateral"
	NameScaledBilateral = "scaled_bilateral"
	NameNonLocalMeans   = "nlm"
	NameGuided          = "guided"
)

// Algorithm defines the interface for the weighted average filter variants
type Algorithm interface {
	Apply(f *Filters, guide, subject *core.Image, params Params) (*core.Image, error)
	GetDefaultParams() Params
	GetName() string
	GetDescription() string
	Validate(params Params) error
	GetParameterInfo() []ParameterInfo
}

// ParameterInfo describes a parameter for help output
type ParameterInfo struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"` // "int", "float"
	Min         interface{} `json:"min,omitempty"`
	Max         interface{} `json:"max,omitempty"`
	Default     interface{} `json:"default"`
	Description string      `json:"description"`
}

var algorithms = make(map[string]Algorithm)

func Register(name string, algorithm Algorithm) {
	algorithms[name] = algorithm
}

func Get(name string) (Algorithm, bool) {
	algorithm, exists := algorithms[name]
	return algorithm, exists
}

// Apply runs the named variant on f
func (f *Filters) Apply(name string, guide, subject *core.Image, params Params) (*core.Image, error) {
	algorithm, exists := algorithms[name]
	if !exists {
		return nil, fmt.Errorf("%w: algorithm not found: %s", core.ErrInvalidParameter, name)
	}

	return algorithm.Apply(f, guide, subject, params)
}

func ValidateParameters(name string, params Params) error {
	algorithm, exists := algorithms[name]
	if !exists {
		return fmt.Errorf("%w: algorithm not found: %s", core.ErrInvalidParameter, name)
	}

	return algorithm.Validate(params)
}

func IsValidAlgorithm(name string) bool {
	_, exists := algorithms[name]
	return exists
}

// Names lists the registered variants in lexical order
func Names() []string {
	names := lo.Keys(algorithms)
	sort.Strings(names)
	return names
}

func GetAllAlgorithms() map[string]Algorithm {
	result := make(map[string]Algorithm)
	for name, algorithm := range algorithms {
		result[name] = algorithm
	}
	return result
}

func init() {
	Register(NameBilateral, bilateralAlgorithm{})
	Register(NameScaledBilateral, scaledBilateralAlgorithm{})
	Register(NameNonLocalMeans, nonLocalMeansAlgorithm{})
	Register(NameGuided, guidedAlgorithm{})
}

func windowInfo(def int) ParameterInfo {
	return ParameterInfo{
		Name:        "window_size",
		Type:        "int",
		Min:         3,
		Max:         101,
		Default:     def,
		Description: "Odd side length of the processing window",
	}
}

func spatialSigmaInfo(def float64) ParameterInfo {
	return ParameterInfo{
		Name:        "spatial_sigma",
		Type:        "float",
		Min:         0.0,
		Default:     def,
		Description: "Standard deviation of the spatial Gaussian",
	}
}

func rangeSigmaInfo(def float64, description string) ParameterInfo {
	return ParameterInfo{
		Name:        "range_sigma",
		Type:        "float",
		Min:         0.0,
		Default:     def,
		Description: description,
	}
}

type bilateralAlgorithm struct{}

func (bilateralAlgorithm) Apply(f *Filters, guide, subject *core.Image, p Params) (*core.Image, error) {
	return f.BilateralFilter(guide, subject, p.WindowSize, p.SpatialSigma, p.RangeSigma)
}

func (bilateralAlgorithm) GetDefaultParams() Params { return DefaultParams() }

func (bilateralAlgorithm) GetName() string { return "Bilateral Filter" }

func (bilateralAlgorithm) GetDescription() string {
	return "Spatial Gaussian times range Gaussian of the guide colour distance"
}

func (bilateralAlgorithm) Validate(p Params) error { return validateSpatial(p) }

func (bilateralAlgorithm) GetParameterInfo() []ParameterInfo {
	d := DefaultParams()
	return []ParameterInfo{
		windowInfo(d.WindowSize),
		spatialSigmaInfo(d.SpatialSigma),
		rangeSigmaInfo(d.RangeSigma, "Standard deviation of the range Gaussian"),
	}
}

type scaledBilateralAlgorithm struct{}

func (scaledBilateralAlgorithm) Apply(f *Filters, guide, subject *core.Image, p Params) (*core.Image, error) {
	return f.ScaledBilateralFilter(guide, subject, p.WindowSize, p.SpatialSigma, p.RangeSigma)
}

func (scaledBilateralAlgorithm) GetDefaultParams() Params { return DefaultParams() }

func (scaledBilateralAlgorithm) GetName() string { return "Scaled Bilateral Filter" }

func (scaledBilateralAlgorithm) GetDescription() string {
	return "Bilateral filter with range weights from a Gaussian-smoothed guide"
}

func (scaledBilateralAlgorithm) Validate(p Params) error { return validateSpatial(p) }

func (scaledBilateralAlgorithm) GetParameterInfo() []ParameterInfo {
	return bilateralAlgorithm{}.GetParameterInfo()
}

type nonLocalMeansAlgorithm struct{}

func (nonLocalMeansAlgorithm) Apply(f *Filters, guide, subject *core.Image, p Params) (*core.Image, error) {
	return f.NonLocalMeansFilter(guide, subject, p.WindowSize, p.PatchSize, p.RangeSigma)
}

func (nonLocalMeansAlgorithm) GetDefaultParams() Params { return DefaultParams() }

func (nonLocalMeansAlgorithm) GetName() string { return "Non-Local Means Filter" }

func (nonLocalMeansAlgorithm) GetDescription() string {
	return "Patch similarity weights over the search window"
}

func (nonLocalMeansAlgorithm) Validate(p Params) error { return validateNonLocal(p) }

func (nonLocalMeansAlgorithm) GetParameterInfo() []ParameterInfo {
	d := DefaultParams()
	return []ParameterInfo{
		windowInfo(d.WindowSize),
		{
			Name:        "patch_size",
			Type:        "int",
			Min:         3,
			Default:     d.PatchSize,
			Description: "Odd side length of the compared patches, at most the window size",
		},
		rangeSigmaInfo(d.RangeSigma, "Patch distance scale, h = sqrt(2) * range_sigma"),
	}
}

type guidedAlgorithm struct{}

func (guidedAlgorithm) Apply(f *Filters, guide, subject *core.Image, p Params) (*core.Image, error) {
	return f.GuidedFilter(guide, subject, p.WindowSize, p.RangeSigma)
}

func (guidedAlgorithm) GetDefaultParams() Params { return DefaultParams() }

func (guidedAlgorithm) GetName() string { return "Guided Filter" }

func (guidedAlgorithm) GetDescription() string {
	return "Local linear model of the subject against the guide"
}

func (guidedAlgorithm) Validate(p Params) error { return validateGuided(p) }

func (guidedAlgorithm) GetParameterInfo() []ParameterInfo {
	d := DefaultParams()
	return []ParameterInfo{
		windowInfo(d.WindowSize),
		rangeSigmaInfo(d.RangeSigma, "Regularization, eps = range_sigma^2"),
	}
}
