// Package composite crops the text regions out of a frame and stacks them
// into a single grayscale image so one OCR call reads every field.
package composite

import (
	"errors"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/briancolinger/trail-cam-sorter/internal/failure"
	"github.com/briancolinger/trail-cam-sorter/internal/region"
)

// Canvas defaults, sized so a 1080p camera-name crop fits exactly.
const (
	DefaultWidth  = 520
	DefaultHeight = 60
)

var (
	errNilFrame      = errors.New("frame is nil")
	errOutOfBounds   = errors.New("region outside frame bounds")
	errWidthMismatch = errors.New("images must have the same width")
	errEmptyJoined   = errors.New("joined image is empty")
	errBadCanvas     = errors.New("canvas size must be positive")
)

// Compositor holds the per-region canvas size.
type Compositor struct {
	Width  int
	Height int
}

// New returns a compositor with the given canvas size, falling back to the
// defaults for non-positive values.
func New(width, height int) *Compositor {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &Compositor{Width: width, Height: height}
}

// Compose crops every region of frame in declaration order, places each on
// its own right-aligned canvas and stacks them top to bottom.
func (c *Compositor) Compose(frame image.Image, specs []region.Spec) (*image.NRGBA, []region.BoundingBox, error) {
	if frame == nil {
		return nil, nil, failure.New(failure.Composition, "compose", errNilFrame)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return nil, nil, failure.Newf(failure.Composition, "compose", "%w: %dx%d", errBadCanvas, c.Width, c.Height)
	}
	if err := region.ValidateAll(specs); err != nil {
		return nil, nil, failure.New(failure.Composition, "compose", err)
	}

	bounds := frame.Bounds()
	boxes, err := region.Boxes(specs, bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, nil, failure.New(failure.Composition, "bounding boxes", err)
	}

	canvases := make([]*image.NRGBA, 0, len(boxes))
	for _, box := range boxes {
		canvas, err := c.canvas(frame, box)
		if err != nil {
			return nil, nil, err
		}
		canvases = append(canvases, canvas)
	}

	joined, err := VConcat(canvases...)
	if err != nil {
		return nil, nil, err
	}

	return imaging.Grayscale(joined), boxes, nil
}

// canvas crops one box and right-aligns it on a black template.
func (c *Compositor) canvas(frame image.Image, box region.BoundingBox) (*image.NRGBA, error) {
	// Boxes are relative to a zero origin; frames may not be.
	rect := box.Rect.Add(frame.Bounds().Min)
	if !rect.In(frame.Bounds()) || rect.Empty() {
		return nil, failure.Newf(failure.Composition, "crop", "%w: %s %v not in %v", errOutOfBounds, box.Label, rect, frame.Bounds())
	}

	cropped := imaging.Grayscale(imaging.Crop(frame, rect))
	if cropped.Bounds().Dx() > c.Width || cropped.Bounds().Dy() > c.Height {
		cropped = imaging.Fit(cropped, c.Width, c.Height, imaging.Lanczos)
	}

	template := imaging.New(c.Width, c.Height, color.Black)
	origin := image.Pt(c.Width-cropped.Bounds().Dx(), 0)
	return imaging.Paste(template, cropped, origin), nil
}

// VConcat stacks images of equal width top to bottom.
func VConcat(images ...*image.NRGBA) (*image.NRGBA, error) {
	if len(images) == 0 {
		return nil, failure.New(failure.Composition, "vconcat", errEmptyJoined)
	}

	width := images[0].Bounds().Dx()
	height := 0
	for i, img := range images {
		if w := img.Bounds().Dx(); w != width {
			return nil, failure.Newf(failure.Composition, "vconcat", "%w: image %d is %d wide, want %d", errWidthMismatch, i, w, width)
		}
		height += img.Bounds().Dy()
	}
	if width == 0 || height == 0 {
		return nil, failure.New(failure.Composition, "vconcat", errEmptyJoined)
	}

	joined := imaging.New(width, height, color.Black)
	y := 0
	for _, img := range images {
		joined = imaging.Paste(joined, img, image.Pt(0, y))
		y += img.Bounds().Dy()
	}
	return joined, nil
}
