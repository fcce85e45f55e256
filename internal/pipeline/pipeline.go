// Package pipeline reads the metadata of one source video: it extracts a
// candidate frame, composes its text regions, runs OCR and parses the
// result, retrying over a bounded series of frames.
package pipeline

import (
	"context"
	"image"

	log "github.com/sirupsen/logrus"

	"github.com/briancolinger/trail-cam-sorter/internal/debugsink"
	"github.com/briancolinger/trail-cam-sorter/internal/frame"
	"github.com/briancolinger/trail-cam-sorter/internal/metadata"
	"github.com/briancolinger/trail-cam-sorter/internal/region"
)

// Compositor builds the OCR input from a frame.
type Compositor interface {
	Compose(img image.Image, specs []region.Spec) (*image.NRGBA, []region.BoundingBox, error)
}

// Recognizer reads the text of the composite.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// Parser validates OCR text.
type Parser interface {
	Parse(text string) (metadata.TrailCamMetadata, error)
}

// Pipeline runs every stage for a single candidate frame.
type Pipeline struct {
	Extractor  frame.Extractor
	Compositor Compositor
	Recognizer Recognizer
	Parser     Parser
	Regions    []region.Spec
	FrameRate  float64
	Debug      debugsink.Sink
	Log        log.FieldLogger
}

// Run reads frameIndex of source and returns its metadata. The first
// failing stage ends the run and its error is returned as is.
func (p *Pipeline) Run(ctx context.Context, source string, frameIndex int) (metadata.TrailCamMetadata, error) {
	var data metadata.TrailCamMetadata

	img, err := p.Extractor.Extract(ctx, source, frameIndex, p.FrameRate)
	if err != nil {
		return data, err
	}
	p.debugImage(debugsink.Name(source, frameIndex, "frame", "png"), img)

	joined, _, err := p.Compositor.Compose(img, p.Regions)
	if err != nil {
		return data, err
	}
	p.debugImage(debugsink.Name(source, frameIndex, "joined", "png"), joined)

	text, err := p.Recognizer.Recognize(ctx, joined)
	if err != nil {
		return data, err
	}
	p.logger().WithFields(log.Fields{"path": source, "frame_num": frameIndex, "text": text}).Debug("OCR: Text")
	p.debugText(debugsink.Name(source, frameIndex, "ocr", "txt"), text)

	data, err = p.Parser.Parse(text)
	if err != nil {
		return data, err
	}

	p.logger().WithFields(log.Fields{"data": data.String(), "frame_num": frameIndex}).Debug("OCR: Success")

	return data, nil
}

// Debug artifacts never change the outcome of a frame.
func (p *Pipeline) debugImage(name string, img image.Image) {
	if p.Debug == nil {
		return
	}
	if err := p.Debug.WriteImage(name, img); err != nil {
		p.logger().WithFields(log.Fields{"error": err, "name": name}).Warn("Error writing debug image")
	}
}

func (p *Pipeline) debugText(name string, text string) {
	if p.Debug == nil {
		return
	}
	if err := p.Debug.WriteText(name, text); err != nil {
		p.logger().WithFields(log.Fields{"error": err, "name": name}).Warn("Error writing debug text")
	}
}

func (p *Pipeline) logger() log.FieldLogger {
	if p.Log == nil {
		return log.StandardLogger()
	}
	return p.Log
}
