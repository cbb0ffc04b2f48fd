package core

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidParameter marks a window, patch, sigma or strength value
	// outside its domain.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInputMismatch marks images that are empty, malformed or of
	// different shapes.
	ErrInputMismatch = errors.New("input mismatch")
)

// ValidateWindowSize requires an odd size of at least 3
func ValidateWindowSize(windowSize int) error {
	if windowSize < 3 || windowSize%2 == 0 {
		return fmt.Errorf("%w: window size must be odd and >= 3, got %d", ErrInvalidParameter, windowSize)
	}
	return nil
}

// ValidatePatchSize requires an odd size in [3, windowSize]
func ValidatePatchSize(patchSize, windowSize int) error {
	if patchSize < 3 || patchSize%2 == 0 {
		return fmt.Errorf("%w: patch size must be odd and >= 3, got %d", ErrInvalidParameter, patchSize)
	}
	if patchSize > windowSize {
		return fmt.Errorf("%w: patch size %d exceeds window size %d", ErrInvalidParameter, patchSize, windowSize)
	}
	return nil
}

// ValidateSigma requires a finite, strictly positive value
func ValidateSigma(name string, sigma float64) error {
	if !(sigma > 0) || math.IsInf(sigma, 1) {
		return fmt.Errorf("%w: %s must be > 0, got %g", ErrInvalidParameter, name, sigma)
	}
	return nil
}
