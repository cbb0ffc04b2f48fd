// Video decoding and encoding through OpenCV
package io

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// DefaultCodec is the fourcc used for written videos
const DefaultCodec = "MJPG"

// VideoInfo describes an opened video stream
type VideoInfo struct {
	Width  int
	Height int
	FPS    float64
	Frames int
	Codec  string
}

// VideoSource reads frames from a video file
type VideoSource struct {
	capture *gocv.VideoCapture
	info    VideoInfo
}

// OpenVideo opens path for reading
func OpenVideo(path string, logger logrus.FieldLogger) (*VideoSource, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video %s: %w", path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("failed to open video: %s", path)
	}

	info := VideoInfo{
		Width:  int(capture.Get(gocv.VideoCaptureFrameWidth)),
		Height: int(capture.Get(gocv.VideoCaptureFrameHeight)),
		FPS:    capture.Get(gocv.VideoCaptureFPS),
		Frames: int(capture.Get(gocv.VideoCaptureFrameCount)),
		Codec:  fourCC(capture.Get(gocv.VideoCaptureFOURCC)),
	}

	logger.WithFields(logrus.Fields{
		"filepath": path,
		"width":    info.Width,
		"height":   info.Height,
		"fps":      info.FPS,
		"frames":   info.Frames,
		"codec":    info.Codec,
	}).Info("Video opened")

	return &VideoSource{capture: capture, info: info}, nil
}

func (vs *VideoSource) Info() VideoInfo {
	return vs.info
}

// Read decodes the next frame into dst and reports false at end of stream
func (vs *VideoSource) Read(dst *gocv.Mat) bool {
	return vs.capture.Read(dst) && !dst.Empty()
}

func (vs *VideoSource) Close() error {
	return vs.capture.Close()
}

// VideoSink writes 8-bit BGR frames to a video file
type VideoSink struct {
	writer *gocv.VideoWriter
	path   string
	frames int
}

// CreateVideo opens path for writing with the size and rate of info
func CreateVideo(path string, info VideoInfo) (*VideoSink, error) {
	fps := info.FPS
	if fps <= 0 {
		fps = 25
	}

	writer, err := gocv.VideoWriterFile(path, DefaultCodec, fps, info.Width, info.Height, true)
	if err != nil {
		return nil, fmt.Errorf("failed to create video %s: %w", path, err)
	}
	if !writer.IsOpened() {
		writer.Close()
		return nil, fmt.Errorf("failed to create video: %s", path)
	}

	return &VideoSink{writer: writer, path: path}, nil
}

func (vk *VideoSink) Write(frame gocv.Mat) error {
	if err := vk.writer.Write(frame); err != nil {
		return fmt.Errorf("failed to write frame %d to %s: %w", vk.frames, vk.path, err)
	}
	vk.frames++
	return nil
}

// Frames reports how many frames were written
func (vk *VideoSink) Frames() int {
	return vk.frames
}

func (vk *VideoSink) Close() error {
	return vk.writer.Close()
}

// fourCC decodes the packed codec code reported by OpenCV
func fourCC(code float64) string {
	c := uint32(code)
	b := []byte{byte(c), byte(c >> 8), byte(c >> 16), byte(c >> 24)}
	for _, ch := range b {
		if ch < 0x20 || ch > 0x7e {
			return ""
		}
	}
	return string(b)
}
