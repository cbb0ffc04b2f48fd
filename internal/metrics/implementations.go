// Concrete implementations of quality metrics
package metrics

import (
	"fmt"
	"math"

	"github.com/ajroetker/go-highway/hwy/contrib/vec"

	"dewaff/internal/core"
	"dewaff/internal/kernel"
)

// luminance returns the first channel, L* for Lab frames
func luminance(img *core.Image) *core.Image {
	if img.Channels == 1 {
		return img
	}
	return &core.Image{Width: img.Width, Height: img.Height, Channels: 1, Pix: img.Plane(0)}
}

func checkPair(original, processed *core.Image) error {
	if err := core.ValidatePair(original, processed); err != nil {
		return fmt.Errorf("image dimensions mismatch: %w", err)
	}
	return nil
}

func meanSquaredError(original, processed *core.Image) float64 {
	a := luminance(original).Pix
	b := luminance(processed).Pix
	return vec.BaseL2SquaredDistance(a, b) / float64(len(a))
}

// PSNR implements Peak Signal-to-Noise Ratio metric
type PSNR struct {
	peak float64
}

// NewPSNR creates a PSNR metric for values in [0, peak]
func NewPSNR(peak float64) *PSNR {
	return &PSNR{peak: peak}
}

func (p *PSNR) Calculate(original, processed *core.Image) (float64, error) {
	if err := checkPair(original, processed); err != nil {
		return 0, err
	}

	mse := meanSquaredError(original, processed)
	if mse == 0 {
		return math.Inf(1), nil // Perfect match
	}

	return 20 * math.Log10(p.peak/math.Sqrt(mse)), nil
}

func (p *PSNR) GetName() string {
	return "PSNR"
}

func (p *PSNR) GetDescription() string {
	return "Peak Signal-to-Noise Ratio - measures image quality"
}

func (p *PSNR) GetRange() (float64, float64) {
	return 0, 100 // Practical range, can go higher
}

func (p *PSNR) IsHigherBetter() bool {
	return true
}

// SSIM implements Structural Similarity Index metric
type SSIM struct {
	peak float64
}

// NewSSIM creates an SSIM metric for values in [0, peak]
func NewSSIM(peak float64) *SSIM {
	return &SSIM{peak: peak}
}

const (
	ssimWindow = 11
	ssimSigma  = 1.5
)

func (s *SSIM) Calculate(original, processed *core.Image) (float64, error) {
	if err := checkPair(original, processed); err != nil {
		return 0, err
	}

	x := luminance(original)
	y := luminance(processed)

	c1 := math.Pow(0.01*s.peak, 2)
	c2 := math.Pow(0.03*s.peak, 2)

	window := kernel.Cached(kernel.KindGaussian, ssimWindow, ssimSigma)
	blur := func(img *core.Image) []float64 {
		return kernel.Correlate(img, window, ssimWindow).Pix
	}
	product := func(a, b *core.Image) *core.Image {
		out := core.NewImage(a.Width, a.Height, 1)
		for i := range out.Pix {
			out.Pix[i] = a.Pix[i] * b.Pix[i]
		}
		return out
	}

	mu1 := blur(x)
	mu2 := blur(y)
	xx := blur(product(x, x))
	yy := blur(product(y, y))
	xy := blur(product(x, y))

	ssimMap := make([]float64, len(mu1))
	for i := range ssimMap {
		sigma1Sq := xx[i] - mu1[i]*mu1[i]
		sigma2Sq := yy[i] - mu2[i]*mu2[i]
		sigma12 := xy[i] - mu1[i]*mu2[i]

		numerator := (2*mu1[i]*mu2[i] + c1) * (2*sigma12 + c2)
		denominator := (mu1[i]*mu1[i] + mu2[i]*mu2[i] + c1) * (sigma1Sq + sigma2Sq + c2)
		ssimMap[i] = numerator / denominator
	}

	return vec.BaseSum(ssimMap) / float64(len(ssimMap)), nil
}

func (s *SSIM) GetName() string {
	return "SSIM"
}

func (s *SSIM) GetDescription() string {
	return "Structural Similarity Index - measures perceptual quality"
}

func (s *SSIM) GetRange() (float64, float64) {
	return 0, 1
}

func (s *SSIM) IsHigherBetter() bool {
	return true
}

// MSE implements Mean Squared Error metric
type MSE struct{}

// NewMSE creates a new MSE metric
func NewMSE() *MSE {
	return &MSE{}
}

func (m *MSE) Calculate(original, processed *core.Image) (float64, error) {
	if err := checkPair(original, processed); err != nil {
		return 0, err
	}
	return meanSquaredError(original, processed), nil
}

func (m *MSE) GetName() string {
	return "MSE"
}

func (m *MSE) GetDescription() string {
	return "Mean Squared Error between images"
}

func (m *MSE) GetRange() (float64, float64) {
	return 0, 10000 // 100^2 for L*
}

func (m *MSE) IsHigherBetter() bool {
	return false
}

// ContrastRatio compares the standard deviation of the two luminances
type ContrastRatio struct{}

// NewContrastRatio creates a new contrast ratio metric
func NewContrastRatio() *ContrastRatio {
	return &ContrastRatio{}
}

func (c *ContrastRatio) Calculate(original, processed *core.Image) (float64, error) {
	if err := checkPair(original, processed); err != nil {
		return 0, err
	}

	origContrast := math.Sqrt(variance(luminance(original).Pix))
	procContrast := math.Sqrt(variance(luminance(processed).Pix))

	if origContrast == 0 {
		return 1.0, nil
	}

	return procContrast / origContrast, nil
}

func (c *ContrastRatio) GetName() string {
	return "Contrast Ratio"
}

func (c *ContrastRatio) GetDescription() string {
	return "Contrast preservation ratio"
}

func (c *ContrastRatio) GetRange() (float64, float64) {
	return 0, 2
}

func (c *ContrastRatio) IsHigherBetter() bool {
	return true
}

// Sharpness compares the Laplacian variance of the two luminances
type Sharpness struct{}

// NewSharpness creates a new sharpness metric
func NewSharpness() *Sharpness {
	return &Sharpness{}
}

var laplacian3x3 = []float64{
	0, 1, 0,
	1, -4, 1,
	0, 1, 0,
}

func (s *Sharpness) Calculate(original, processed *core.Image) (float64, error) {
	if err := checkPair(original, processed); err != nil {
		return 0, err
	}

	origSharpness := s.calculateSharpness(original)
	procSharpness := s.calculateSharpness(processed)

	if origSharpness == 0 {
		return 1.0, nil
	}

	return procSharpness / origSharpness, nil
}

func (s *Sharpness) calculateSharpness(img *core.Image) float64 {
	return variance(kernel.Correlate(luminance(img), laplacian3x3, 3).Pix)
}

func (s *Sharpness) GetName() string {
	return "Sharpness"
}

func (s *Sharpness) GetDescription() string {
	return "Edge preservation measure"
}

func (s *Sharpness) GetRange() (float64, float64) {
	return 0, 2
}

func (s *Sharpness) IsHigherBetter() bool {
	return true
}

func variance(values []float64) float64 {
	n := float64(len(values))
	mean := vec.BaseSum(values) / n

	sumSquaredDiff := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquaredDiff += diff * diff
	}
	return sumSquaredDiff / n
}
