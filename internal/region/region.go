// Package region holds the fixed locations of the text that trail cameras
// burn into the bottom banner of every frame, and scales them to pixels.
package region

import (
	"errors"
	"fmt"
	"image"
)

// Labels of the default regions.
const (
	Timestamp  = "Timestamp"
	CameraName = "CameraName"
)

var (
	errNoRegions    = errors.New("no regions defined")
	errOutOfRange   = errors.New("region value out of range [0,1]")
	errMissingLabel = errors.New("region label is empty")
	errDuplicate    = errors.New("duplicate region label")
	errEmptyFrame   = errors.New("frame has no pixels")
)

// Spec is a region expressed as fractions of the frame size.
type Spec struct {
	Label   string  `mapstructure:"label" yaml:"label"`
	CenterX float64 `mapstructure:"center_x" yaml:"center_x"`
	CenterY float64 `mapstructure:"center_y" yaml:"center_y"`
	Width   float64 `mapstructure:"width" yaml:"width"`
	Height  float64 `mapstructure:"height" yaml:"height"`
}

// BoundingBox is a Spec scaled to a concrete frame.
type BoundingBox struct {
	Label string
	Rect  image.Rectangle
}

// defaults is ordered: the timestamp line must come first in the composite.
var defaults = []Spec{
	{Label: Timestamp, CenterX: 0.487240, CenterY: 0.972685, Width: 0.233854, Height: 0.054630},
	{Label: CameraName, CenterX: 0.864844, CenterY: 0.972685, Width: 0.270313, Height: 0.054630},
}

// Defaults returns a copy of the built-in region table.
func Defaults() []Spec {
	out := make([]Spec, len(defaults))
	copy(out, defaults)
	return out
}

// Validate checks every value of s lies in [0,1] and that it is labelled.
func (s Spec) Validate() error {
	if s.Label == "" {
		return errMissingLabel
	}
	fields := []struct {
		name string
		v    float64
	}{
		{"center_x", s.CenterX},
		{"center_y", s.CenterY},
		{"width", s.Width},
		{"height", s.Height},
	}
	for _, f := range fields {
		if f.v < 0 || f.v > 1 {
			return fmt.Errorf("%w: %s %s=%v", errOutOfRange, s.Label, f.name, f.v)
		}
	}
	return nil
}

// ValidateAll checks a whole table.
func ValidateAll(specs []Spec) error {
	if len(specs) == 0 {
		return errNoRegions
	}
	seen := make(map[string]bool, len(specs))
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			return err
		}
		if seen[s.Label] {
			return fmt.Errorf("%w: %s", errDuplicate, s.Label)
		}
		seen[s.Label] = true
	}
	return nil
}

// Box scales s to a frame of width w and height h. Coordinates are
// truncated toward zero and clamped to the frame; a box that collapses is
// widened to a single pixel so that Min < Max always holds.
func (s Spec) Box(w, h int) (BoundingBox, error) {
	if w <= 0 || h <= 0 {
		return BoundingBox{}, fmt.Errorf("%w: %dx%d", errEmptyFrame, w, h)
	}

	width := float64(w)
	height := float64(h)
	left := int((s.CenterX - s.Width/2) * width)
	top := int((s.CenterY - s.Height/2) * height)
	right := int((s.CenterX + s.Width/2) * width)
	bottom := int((s.CenterY + s.Height/2) * height)

	left, right = clampSpan(left, right, w)
	top, bottom = clampSpan(top, bottom, h)

	return BoundingBox{
		Label: s.Label,
		Rect:  image.Rect(left, top, right, bottom),
	}, nil
}

// Boxes scales every spec in order.
func Boxes(specs []Spec, w, h int) ([]BoundingBox, error) {
	boxes := make([]BoundingBox, 0, len(specs))
	for _, s := range specs {
		box, err := s.Box(w, h)
		if err != nil {
			return nil, err
		}
		boxes = append(boxes, box)
	}
	return boxes, nil
}

func clampSpan(lo, hi, limit int) (int, int) {
	lo = clamp(lo, 0, limit-1)
	hi = clamp(hi, 0, limit)
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
