// Kernel construction for the weighted average filters and the unsharp mask
package kernel

import (
	"math"

	"github.com/ajroetker/go-highway/hwy/contrib/vec"
)

// Gaussian evaluates the unnormalized Gaussian exp(-x / (2*sigma^2)).
// x is already a squared distance.
func Gaussian(x, sigma float64) float64 {
	return math.Exp(-x / (2 * sigma * sigma))
}

// ApplyGaussian replaces every element of values with Gaussian(v, sigma)
func ApplyGaussian(values []float64, sigma float64) {
	scale := -1 / (2 * sigma * sigma)
	for i, v := range values {
		values[i] = math.Exp(v * scale)
	}
}

// MeshGrid returns the column (X) and row (Y) offsets from the window
// center, both windowSize*windowSize row-major, ranging over
// [-windowSize/2, windowSize/2].
func MeshGrid(windowSize int) (X, Y []float64) {
	n := windowSize * windowSize
	X = make([]float64, n)
	Y = make([]float64, n)
	half := windowSize / 2
	for row := 0; row < windowSize; row++ {
		for col := 0; col < windowSize; col++ {
			X[row*windowSize+col] = float64(col - half)
			Y[row*windowSize+col] = float64(row - half)
		}
	}
	return X, Y
}

// SpatialKernel is gaussian(X^2) * gaussian(Y^2) without normalization; its
// center weight is exactly 1.
func SpatialKernel(windowSize int, sigma float64) []float64 {
	X, Y := MeshGrid(windowSize)
	k := make([]float64, len(X))
	for i := range k {
		k[i] = Gaussian(X[i]*X[i], sigma) * Gaussian(Y[i]*Y[i], sigma)
	}
	return k
}

// GaussianKernel is SpatialKernel scaled to sum to 1
func GaussianKernel(windowSize int, sigma float64) []float64 {
	k := SpatialKernel(windowSize, sigma)
	total := vec.BaseSum(k)
	vec.BaseScale(1/total, k)
	return k
}

// LoGKernel builds a Laplacian of Gaussian kernel and shifts it so the
// elements sum to zero. sigma must be > 0.
func LoGKernel(windowSize int, sigma float64) []float64 {
	X, Y := MeshGrid(windowSize)
	variance := sigma * sigma
	scale := 1 / (2 * math.Pi * variance)

	k := make([]float64, len(X))
	for i := range k {
		r2 := X[i]*X[i] + Y[i]*Y[i]
		k[i] = scale * math.Exp(-r2/(2*variance)) * (r2/variance - 2)
	}

	delta := vec.BaseSum(k) / float64(windowSize*windowSize)
	for i := range k {
		k[i] -= delta
	}
	return k
}

// Sum adds up the kernel weights
func Sum(k []float64) float64 {
	return vec.BaseSum(k)
}
