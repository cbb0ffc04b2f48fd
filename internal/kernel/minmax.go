package kernel

import (
	"math"

	"github.com/ajroetker/go-highway/hwy/contrib/vec"

	"dewaff/internal/core"
)

// MinMax returns the global minimum and maximum over every channel
func MinMax(img *core.Image) (minVal, maxVal float64) {
	if len(img.Pix) == 0 {
		return 0, 0
	}
	return vec.BaseMinMax(img.Pix)
}

// AbsMax returns the largest absolute value over every channel
func AbsMax(img *core.Image) float64 {
	minVal, maxVal := MinMax(img)
	return math.Max(math.Abs(minVal), math.Abs(maxVal))
}
