// Package cvframe reads frames through OpenCV's VideoCapture.
package cvframe

import (
	"context"
	"errors"
	"image"
	"math"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/briancolinger/trail-cam-sorter/internal/failure"
)

var errFailedToReadFrame = errors.New("failed to read frame from video")

// Extractor seeks by frame number, so the frame rate is not needed.
type Extractor struct {
	Log log.FieldLogger
}

// New returns an OpenCV backed extractor.
func New() *Extractor {
	return &Extractor{Log: log.StandardLogger()}
}

// Extract reads frameIndex from source, clamped to the frame count.
func (e *Extractor) Extract(ctx context.Context, source string, frameIndex int, _ float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, failure.New(failure.Decode, "opencv", err)
	}

	// Open the video file.
	capture, err := gocv.VideoCaptureFile(source)
	if err != nil {
		return nil, failure.New(failure.Decode, "opencv", err)
	}
	defer func() {
		if err := capture.Close(); err != nil {
			e.Log.WithError(err).Error("Error closing video capture")
		}
	}()

	numFrames := capture.Get(gocv.VideoCaptureFrameCount)
	pos := math.Max(0, math.Min(float64(frameIndex), numFrames-1))
	capture.Set(gocv.VideoCapturePosFrames, pos)

	frame := gocv.NewMat()
	defer func() {
		if err := frame.Close(); err != nil {
			e.Log.WithFields(log.Fields{"error": err, "frame_num": frameIndex}).Error("Error closing frame")
		}
	}()

	if ok := capture.Read(&frame); !ok || frame.Empty() {
		return nil, failure.New(failure.Decode, "opencv", errFailedToReadFrame)
	}

	img, err := frame.ToImage()
	if err != nil {
		return nil, failure.New(failure.Decode, "opencv", err)
	}
	return img, nil
}
