// Core image data structure shared by every filter stage
package core

import (
	"fmt"
)

// Image is a dense floating point image with interleaved channels.
// Pixel (x, y) channel c lives at Pix[(y*Width+x)*Channels+c].
type Image struct {
	Width    int
	Height   int
	Channels int
	Pix      []float64
}

// ImageMetadata contains image information
type ImageMetadata struct {
	Width    int
	Height   int
	Channels int
	Format   string
}

// NewImage allocates a zeroed image
func NewImage(width, height, channels int) *Image {
	return &Image{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]float64, width*height*channels),
	}
}

// NewImageFrom wraps pix without copying. len(pix) must match the shape.
func NewImageFrom(width, height, channels int, pix []float64) (*Image, error) {
	if len(pix) != width*height*channels {
		return nil, fmt.Errorf("%w: pixel buffer has %d values, want %d",
			ErrInputMismatch, len(pix), width*height*channels)
	}
	img := &Image{Width: width, Height: height, Channels: channels, Pix: pix}
	if err := ValidateImage(img); err != nil {
		return nil, err
	}
	return img, nil
}

// Fill sets every channel of every pixel to the given values. values must
// have one entry per channel.
func (img *Image) Fill(values ...float64) {
	for i := 0; i < len(img.Pix); i += img.Channels {
		copy(img.Pix[i:i+img.Channels], values)
	}
}

// Clone returns a deep copy
func (img *Image) Clone() *Image {
	out := &Image{Width: img.Width, Height: img.Height, Channels: img.Channels}
	out.Pix = make([]float64, len(img.Pix))
	copy(out.Pix, img.Pix)
	return out
}

// Offset returns the index of channel 0 of pixel (x, y)
func (img *Image) Offset(x, y int) int {
	return (y*img.Width + x) * img.Channels
}

func (img *Image) At(x, y, c int) float64 {
	return img.Pix[img.Offset(x, y)+c]
}

func (img *Image) Set(x, y, c int, v float64) {
	img.Pix[img.Offset(x, y)+c] = v
}

// Plane copies channel c into a new Width*Height slice
func (img *Image) Plane(c int) []float64 {
	plane := make([]float64, img.Width*img.Height)
	for i := range plane {
		plane[i] = img.Pix[i*img.Channels+c]
	}
	return plane
}

// SetPlane writes a Width*Height slice into channel c
func (img *Image) SetPlane(c int, plane []float64) {
	for i, v := range plane {
		img.Pix[i*img.Channels+c] = v
	}
}

// SameShape reports whether both images have equal dimensions and channels
func (img *Image) SameShape(other *Image) bool {
	return img.Width == other.Width && img.Height == other.Height && img.Channels == other.Channels
}

// Metadata describes the image shape
func (img *Image) Metadata() ImageMetadata {
	return ImageMetadata{
		Width:    img.Width,
		Height:   img.Height,
		Channels: img.Channels,
		Format:   "float64",
	}
}

func (img *Image) String() string {
	return fmt.Sprintf("%dx%dx%d", img.Width, img.Height, img.Channels)
}

// ValidateImage validates an image for basic requirements
func ValidateImage(img *Image) error {
	if img == nil || len(img.Pix) == 0 {
		return fmt.Errorf("%w: image is empty", ErrInputMismatch)
	}

	if img.Width <= 0 || img.Height <= 0 {
		return fmt.Errorf("%w: invalid dimensions: %dx%d", ErrInputMismatch, img.Width, img.Height)
	}

	if img.Channels != 1 && img.Channels != 3 {
		return fmt.Errorf("%w: unsupported channel count: %d", ErrInputMismatch, img.Channels)
	}

	if len(img.Pix) != img.Width*img.Height*img.Channels {
		return fmt.Errorf("%w: pixel buffer has %d values for a %s image",
			ErrInputMismatch, len(img.Pix), img)
	}

	// Check for reasonable size limits (prevent memory issues)
	const maxDimension = 16384
	if img.Width > maxDimension || img.Height > maxDimension {
		return fmt.Errorf("%w: image too large: %dx%d (max: %d)",
			ErrInputMismatch, img.Width, img.Height, maxDimension)
	}

	return nil
}

// ValidatePair checks that guide and subject are valid and share one shape
func ValidatePair(guide, subject *Image) error {
	if err := ValidateImage(subject); err != nil {
		return fmt.Errorf("subject: %w", err)
	}
	if err := ValidateImage(guide); err != nil {
		return fmt.Errorf("guide: %w", err)
	}
	if !guide.SameShape(subject) {
		return fmt.Errorf("%w: guide is %s, subject is %s", ErrInputMismatch, guide, subject)
	}
	return nil
}
