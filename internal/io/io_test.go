package io

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
	"golang.org/x/image/tiff"

	"dewaff/internal/core"
)

func bgrFrame(t *testing.T, width, height int) gocv.Mat {
	t.Helper()
	data := make([]byte, width*height*3)
	for i := range data {
		data[i] = byte((i*37 + i/3*11) % 256)
	}
	wrapped, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, data)
	require.NoError(t, err)
	mat := wrapped.Clone()
	wrapped.Close()
	t.Cleanup(func() { mat.Close() })
	return mat
}

func TestLabRoundTrip(t *testing.T) {
	frame := bgrFrame(t, 9, 7)

	lab, err := FrameToLab(frame)
	require.NoError(t, err)
	assert.Equal(t, core.ImageMetadata{Width: 9, Height: 7, Channels: 3, Format: "float64"}, lab.Metadata())
	for y := 0; y < lab.Height; y++ {
		for x := 0; x < lab.Width; x++ {
			l := lab.At(x, y, 0)
			assert.True(t, l >= 0 && l <= 100, "L=%g", l)
		}
	}

	back, err := LabToFrame(lab)
	require.NoError(t, err)
	defer back.Close()
	require.Equal(t, gocv.MatTypeCV8UC3, back.Type())

	want := frame.ToBytes()
	got := back.ToBytes()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, int(want[i]), int(got[i]), 1, "byte %d", i)
	}
}

func TestGrayFrameIsPromoted(t *testing.T) {
	gray := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(128, 0, 0, 0), 4, 5, gocv.MatTypeCV8UC1)
	defer gray.Close()

	lab, err := FrameToLab(gray)
	require.NoError(t, err)
	assert.Equal(t, 3, lab.Channels)
	for y := 0; y < lab.Height; y++ {
		for x := 0; x < lab.Width; x++ {
			assert.InDelta(t, 0, lab.At(x, y, 1), 1e-2)
			assert.InDelta(t, 0, lab.At(x, y, 2), 1e-2)
		}
	}
}

func TestUnsupportedFrame(t *testing.T) {
	f := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV32FC3)
	defer f.Close()

	_, err := FrameToLab(f)
	assert.Error(t, err)

	empty := gocv.NewMat()
	defer empty.Close()
	assert.Error(t, ValidateFrame(empty))
}

func TestSupportedFormats(t *testing.T) {
	assert.True(t, IsSupportedImageFormat("a/b/photo.PNG"))
	assert.True(t, IsSupportedImageFormat("scan.tif"))
	assert.False(t, IsSupportedImageFormat("clip.avi"))
	assert.False(t, IsSupportedImageFormat("noext"))

	_, err := NewImageLoader(logrus.New()).LoadImage("clip.avi")
	require.Error(t, err)
	for _, format := range GetSupportedFormats() {
		assert.Contains(t, err.Error(), format)
	}
}

func TestSaveTIFFStretchesRange(t *testing.T) {
	img := core.NewImage(3, 2, 1)
	copy(img.Pix, []float64{-140, -20, 0, 20, 100, 240})

	path := filepath.Join(t.TempDir(), "guide.tif")
	require.NoError(t, SaveTIFF(path, img))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	decoded, err := tiff.Decode(f)
	require.NoError(t, err)

	g, ok := decoded.(*image.Gray16)
	require.True(t, ok, "got %T", decoded)
	assert.Equal(t, uint16(0), g.Gray16At(0, 0).Y)
	assert.Equal(t, uint16(65535), g.Gray16At(2, 1).Y)
	assert.Equal(t, uint16(24144), g.Gray16At(2, 0).Y)
}

func TestToImageColour(t *testing.T) {
	img := core.NewImage(2, 2, 3)
	img.Fill(50, -5, 5)
	img.Set(1, 1, 0, 100)

	converted, err := ToImage(img)
	require.NoError(t, err)
	rgba, ok := converted.(*image.RGBA64)
	require.True(t, ok)

	c := rgba.RGBA64At(1, 1)
	assert.Equal(t, uint16(65535), c.R)
	// flat channels collapse to zero
	assert.Equal(t, uint16(0), c.G)
	assert.Equal(t, uint16(0), rgba.RGBA64At(0, 0).R)
}
