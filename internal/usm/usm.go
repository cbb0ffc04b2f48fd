// Non adaptive unsharp mask producing the guide image for deceived filtering
package usm

import (
	"fmt"

	"github.com/ajroetker/go-highway/hwy/contrib/vec"

	"dewaff/internal/core"
	"dewaff/internal/kernel"
)

// Typical standalone parameters for the Laplacian of Gaussian
const (
	DefaultWindowSize = 17
	DefaultSigma      = 0.005
)

// flatTolerance is the high-pass magnitude, relative to max|img|, below
// which an image counts as having no detail
const flatTolerance = 1e-9

// UnsharpMask sharpens img by adding back lambda times its Laplacian of
// Gaussian response, rescaled to the input's dynamic range:
//
//	out = img + lambda * L * max|img| / max|L|,  L = img (x) -LoG
//
// lambda = 0 returns an exact copy of img.
func UnsharpMask(img *core.Image, windowSize int, lambda, sigma float64) (*core.Image, error) {
	if err := core.ValidateImage(img); err != nil {
		return nil, err
	}
	if err := core.ValidateWindowSize(windowSize); err != nil {
		return nil, err
	}
	if err := core.ValidateSigma("usm sigma", sigma); err != nil {
		return nil, err
	}
	if !(lambda >= 0) {
		return nil, fmt.Errorf("%w: usm lambda must be >= 0, got %g", core.ErrInvalidParameter, lambda)
	}

	if lambda == 0 {
		return img.Clone(), nil
	}

	laplacian := HighPass(img, windowSize, sigma)

	maxL := kernel.AbsMax(laplacian)
	maxI := kernel.AbsMax(img)
	// a zero-sum kernel leaves rounding residue on flat input
	if maxL <= maxI*flatTolerance {
		return img.Clone(), nil
	}

	out := img.Clone()
	vec.BaseMulConstAddTo(out.Pix, lambda*maxI/maxL, laplacian.Pix)
	return out, nil
}

// HighPass correlates img with the negated Laplacian of Gaussian kernel
func HighPass(img *core.Image, windowSize int, sigma float64) *core.Image {
	logKernel := kernel.Cached(kernel.KindLoG, windowSize, sigma)
	negated := make([]float64, len(logKernel))
	for i, v := range logKernel {
		negated[i] = -v
	}
	return kernel.Correlate(img, negated, windowSize)
}
