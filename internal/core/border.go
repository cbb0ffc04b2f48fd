package core

// Every stage of the framework uses edge replication at image borders:
// window padding, correlation, patch extraction and box filtering.

// Clamp limits i to [0, n-1], which is edge replication for an index
func Clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// Pad returns a copy of img grown by pad pixels on every side, the new
// pixels replicating the nearest edge pixel.
func Pad(img *Image, pad int) *Image {
	if pad <= 0 {
		return img.Clone()
	}

	out := NewImage(img.Width+2*pad, img.Height+2*pad, img.Channels)
	ch := img.Channels
	for y := 0; y < out.Height; y++ {
		sy := Clamp(y-pad, img.Height)
		for x := 0; x < out.Width; x++ {
			sx := Clamp(x-pad, img.Width)
			src := img.Offset(sx, sy)
			dst := out.Offset(x, y)
			copy(out.Pix[dst:dst+ch], img.Pix[src:src+ch])
		}
	}
	return out
}

// PadPlane is Pad for a single width*height plane
func PadPlane(plane []float64, width, height, pad int) []float64 {
	pw := width + 2*pad
	ph := height + 2*pad
	out := make([]float64, pw*ph)
	for y := 0; y < ph; y++ {
		row := Clamp(y-pad, height) * width
		for x := 0; x < pw; x++ {
			out[y*pw+x] = plane[row+Clamp(x-pad, width)]
		}
	}
	return out
}

// Crop removes pad pixels from every side
func Crop(img *Image, pad int) *Image {
	out := NewImage(img.Width-2*pad, img.Height-2*pad, img.Channels)
	rowLen := out.Width * img.Channels
	for y := 0; y < out.Height; y++ {
		src := img.Offset(pad, y+pad)
		copy(out.Pix[y*rowLen:(y+1)*rowLen], img.Pix[src:src+rowLen])
	}
	return out
}
