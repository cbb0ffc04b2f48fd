// 16-bit TIFF dumps of intermediate images such as the sharpened guide
package io

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"

	"golang.org/x/image/tiff"

	"dewaff/internal/core"
	"dewaff/internal/kernel"
)

// ToImage stretches every channel of img to the full 16-bit range using
// its own minimum and maximum. 1-channel images become Gray16, 3-channel
// images RGBA64 with channel 0 in R.
func ToImage(img *core.Image) (image.Image, error) {
	if err := core.ValidateImage(img); err != nil {
		return nil, err
	}

	type span struct{ lo, scale float64 }
	spans := make([]span, img.Channels)
	for c := range spans {
		plane := &core.Image{Width: img.Width, Height: img.Height, Channels: 1, Pix: img.Plane(c)}
		lo, hi := kernel.MinMax(plane)
		s := span{lo: lo}
		if hi > lo {
			s.scale = math.MaxUint16 / (hi - lo)
		}
		spans[c] = s
	}
	quantize := func(x, y, c int) uint16 {
		return uint16(math.Round((img.At(x, y, c) - spans[c].lo) * spans[c].scale))
	}

	rect := image.Rect(0, 0, img.Width, img.Height)
	if img.Channels == 1 {
		out := image.NewGray16(rect)
		for y := 0; y < img.Height; y++ {
			for x := 0; x < img.Width; x++ {
				out.SetGray16(x, y, color.Gray16{Y: quantize(x, y, 0)})
			}
		}
		return out, nil
	}

	out := image.NewRGBA64(rect)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			out.SetRGBA64(x, y, color.RGBA64{
				R: quantize(x, y, 0),
				G: quantize(x, y, 1),
				B: quantize(x, y, 2),
				A: math.MaxUint16,
			})
		}
	}
	return out, nil
}

// SaveTIFF writes img to path as a deflate-compressed 16-bit TIFF
func SaveTIFF(path string, img *core.Image) error {
	converted, err := ToImage(img)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := tiff.Encode(f, converted, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}
