package kernel

import (
	"github.com/ajroetker/go-highway/hwy/contrib/vec"

	"dewaff/internal/core"
)

// Correlate slides a size*size kernel over every channel of img. Borders
// are edge-replicated, so the output has the input's shape.
func Correlate(img *core.Image, k []float64, size int) *core.Image {
	out := core.NewImage(img.Width, img.Height, img.Channels)
	pad := size / 2
	pw := img.Width + 2*pad

	for c := 0; c < img.Channels; c++ {
		padded := core.PadPlane(img.Plane(c), img.Width, img.Height, pad)
		plane := make([]float64, img.Width*img.Height)

		for y := 0; y < img.Height; y++ {
			for x := 0; x < img.Width; x++ {
				var acc float64
				for ky := 0; ky < size; ky++ {
					start := (y+ky)*pw + x
					acc += vec.BaseDot(k[ky*size:(ky+1)*size], padded[start:start+size])
				}
				plane[y*img.Width+x] = acc
			}
		}
		out.SetPlane(c, plane)
	}
	return out
}
