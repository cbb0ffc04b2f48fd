// Run configuration shared by the image and video commands
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"dewaff/internal/algorithms"
	"dewaff/internal/core"
)

// Config holds every tunable of a run. Zero SpatialSigma means
// WindowSize / 1.5.
type Config struct {
	Filter       string  `yaml:"filter" toml:"filter"`
	WindowSize   int     `yaml:"window_size" toml:"window_size"`
	PatchSize    int     `yaml:"patch_size" toml:"patch_size"`
	SpatialSigma float64 `yaml:"spatial_sigma" toml:"spatial_sigma"`
	RangeSigma   float64 `yaml:"range_sigma" toml:"range_sigma"`
	Lambda       float64 `yaml:"lambda" toml:"lambda"`
	Workers      int     `yaml:"workers" toml:"workers"`
	Benchmark    int     `yaml:"benchmark" toml:"benchmark"`
	Output       string  `yaml:"output" toml:"output"`
	GuideOut     string  `yaml:"guide_out" toml:"guide_out"`
	Metrics      bool    `yaml:"metrics" toml:"metrics"`
	Debug        bool    `yaml:"debug" toml:"debug"`
}

var acronyms = map[string]string{
	algorithms.NameBilateral:       "DBF",
	algorithms.NameScaledBilateral: "DSBF",
	algorithms.NameNonLocalMeans:   "DNLM",
	algorithms.NameGuided:          "DGF",
}

// Default returns the command line defaults
func Default() Config {
	return Config{
		Filter:     algorithms.NameGuided,
		WindowSize: 15,
		PatchSize:  3,
		RangeSigma: 10,
		Lambda:     2,
	}
}

// Load reads a YAML (.yaml, .yml) or TOML (.toml) file over Default()
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config format: %s", path)
	}

	return cfg, nil
}

// Resolve fills derived values in place
func (c *Config) Resolve() {
	if c.SpatialSigma == 0 {
		c.SpatialSigma = float64(c.WindowSize) / 1.5
	}
}

// Params returns the filter parameters, with derived values resolved
func (c Config) Params() algorithms.Params {
	c.Resolve()
	return algorithms.Params{
		WindowSize:   c.WindowSize,
		PatchSize:    c.PatchSize,
		SpatialSigma: c.SpatialSigma,
		RangeSigma:   c.RangeSigma,
	}
}

// Validate checks the filter name and every parameter it uses
func (c Config) Validate() error {
	if !algorithms.IsValidAlgorithm(c.Filter) {
		return fmt.Errorf("%w: unknown filter %q, want one of %s",
			core.ErrInvalidParameter, c.Filter, strings.Join(algorithms.Names(), ", "))
	}
	if err := algorithms.ValidateParameters(c.Filter, c.Params()); err != nil {
		return err
	}
	// the guide is always built, whatever the filter reads
	if err := core.ValidateSigma("spatial sigma", c.Params().SpatialSigma); err != nil {
		return err
	}
	if !(c.Lambda >= 0) {
		return fmt.Errorf("%w: lambda must be >= 0, got %g", core.ErrInvalidParameter, c.Lambda)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0, got %d", core.ErrInvalidParameter, c.Workers)
	}
	if c.Benchmark < 0 {
		return fmt.Errorf("%w: benchmark loops must be >= 0, got %d", core.ErrInvalidParameter, c.Benchmark)
	}
	return nil
}

// Acronym is the output suffix of a filter, e.g. DGF for guided
func Acronym(filter string) string {
	if a, ok := acronyms[filter]; ok {
		return a
	}
	return strings.ToUpper(filter)
}

// OutputName returns Output when set, otherwise <stem>_<ACRONYM>.png (or
// .avi for videos) next to input
func (c Config) OutputName(input string, video bool) string {
	if c.Output != "" {
		return c.Output
	}
	ext := ".png"
	if video {
		ext = ".avi"
	}
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(filepath.Dir(input), stem+"_"+Acronym(c.Filter)+ext)
}
