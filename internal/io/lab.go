// Conversion between 8-bit BGR frames and floating point CIELab images
package io

import (
	"encoding/binary"
	"fmt"
	"math"

	"gocv.io/x/gocv"

	"dewaff/internal/core"
)

// FrameToLab converts an 8-bit gray or BGR frame to a 3-channel Lab image
// with L in [0, 100]. Gray frames are promoted to BGR first.
func FrameToLab(frame gocv.Mat) (*core.Image, error) {
	if err := ValidateFrame(frame); err != nil {
		return nil, err
	}

	bgr := frame
	if frame.Channels() == 1 {
		bgr = gocv.NewMat()
		defer bgr.Close()
		gocv.CvtColor(frame, &bgr, gocv.ColorGrayToBGR)
	}

	scaled := gocv.NewMat()
	defer scaled.Close()
	bgr.ConvertToWithParams(&scaled, gocv.MatTypeCV32FC3, 1.0/255.0, 0)

	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(scaled, &lab, gocv.ColorBGRToLab)
	if lab.Empty() {
		return nil, fmt.Errorf("BGR to Lab conversion failed")
	}

	data, err := lab.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read Lab frame: %w", err)
	}

	pix := make([]float64, len(data))
	for i, v := range data {
		pix[i] = float64(v)
	}
	return core.NewImageFrom(lab.Cols(), lab.Rows(), 3, pix)
}

// LabToFrame converts a Lab image back to an 8-bit BGR frame, saturating
// out-of-gamut values. A 1-channel image is treated as L alone and becomes
// an 8-bit gray frame. The caller owns the returned Mat.
func LabToFrame(img *core.Image) (gocv.Mat, error) {
	if err := core.ValidateImage(img); err != nil {
		return gocv.NewMat(), err
	}

	floatType, byteType := gocv.MatTypeCV32FC3, gocv.MatTypeCV8UC3
	if img.Channels == 1 {
		floatType, byteType = gocv.MatTypeCV32FC1, gocv.MatTypeCV8UC1
	}

	buf := make([]byte, 4*len(img.Pix))
	for i, v := range img.Pix {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(float32(v)))
	}

	wrapped, err := gocv.NewMatFromBytes(img.Height, img.Width, floatType, buf)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to wrap Lab image: %w", err)
	}
	// the wrapped Mat borrows buf
	lab := wrapped.Clone()
	wrapped.Close()
	defer lab.Close()

	out := gocv.NewMat()
	if img.Channels == 1 {
		lab.ConvertToWithParams(&out, byteType, 255.0/100.0, 0)
		return out, nil
	}

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(lab, &bgr, gocv.ColorLabToBGR)
	if bgr.Empty() {
		out.Close()
		return gocv.NewMat(), fmt.Errorf("Lab to BGR conversion failed")
	}

	bgr.ConvertToWithParams(&out, byteType, 255, 0)
	return out, nil
}
