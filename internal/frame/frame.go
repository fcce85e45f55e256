// Package frame pulls single still images out of trail camera videos.
package frame

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	// Decoders for whatever the frame source hands back.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/briancolinger/trail-cam-sorter/internal/failure"
)

var (
	errNoFrameData  = errors.New("frame source returned no data")
	errEmptyImage   = errors.New("decoded frame is empty")
	errBadFrameRate = errors.New("frame rate must be positive")
)

// Extractor returns the decoded frame at frameIndex of source.
type Extractor interface {
	Extract(ctx context.Context, source string, frameIndex int, frameRate float64) (image.Image, error)
}

// Seek converts a frame index to an HH:MM:SS offset, dropping fractional seconds.
func Seek(frameIndex int, frameRate float64) (string, error) {
	if frameRate <= 0 {
		return "", fmt.Errorf("%w: %v", errBadFrameRate, frameRate)
	}
	if frameIndex < 0 {
		frameIndex = 0
	}
	secs := int(math.Floor(float64(frameIndex) / frameRate))
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60), nil
}

// Decode turns raw bytes from a frame source into an image.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, failure.New(failure.Decode, "decode", errNoFrameData)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, failure.New(failure.Decode, "decode", err)
	}
	if img.Bounds().Empty() {
		return nil, failure.Newf(failure.Decode, "decode", "%w: format %s", errEmptyImage, format)
	}
	return img, nil
}
