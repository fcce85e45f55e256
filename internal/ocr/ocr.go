// Package ocr hands the composite image to Tesseract and returns the text
// it reads, untouched.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	log "github.com/sirupsen/logrus"

	"github.com/briancolinger/trail-cam-sorter/internal/failure"
)

// Defaults for a Tesseract install.
const (
	DefaultLanguage    = "eng"
	DefaultTessdataDir = "/usr/local/share/tessdata"
	DefaultTimeout     = 30 * time.Second
)

var errOCRReturnedEmptyText = errors.New("OCR returned empty text")

// Recognizer reads the text in img.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// Options configures an engine.
type Options struct {
	Language    string
	TessdataDir string
	Timeout     time.Duration
}

func (o Options) withDefaults() Options {
	if o.Language == "" {
		o.Language = DefaultLanguage
	}
	if o.TessdataDir == "" {
		o.TessdataDir = DefaultTessdataDir
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// engine reads the text from a PNG file on disk.
type engine func(ctx context.Context, path string) (string, error)

// recognizer owns the temp file lifecycle around an engine.
type recognizer struct {
	name    string
	opts    Options
	read    engine
	log     log.FieldLogger
	tempDir string
}

// Recognize writes img to a temporary PNG, runs the engine on it and
// removes the file again whatever the outcome.
func (r *recognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	path, err := writeTemp(r.tempDir, img)
	if err != nil {
		return "", failure.New(failure.Recognition, r.name, err)
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			r.log.WithFields(log.Fields{"error": err, "path": path}).Error("Error removing OCR temp file")
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	text, err := r.read(ctx, path)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", failure.Newf(failure.Recognition, r.name, "timed out after %s: %w", r.opts.Timeout, err)
		}
		return "", failure.New(failure.Recognition, r.name, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", failure.New(failure.Recognition, r.name, errOCRReturnedEmptyText)
	}

	r.log.WithField("ocr_text", text).Debug("OCR text")

	return text, nil
}

func writeTemp(dir string, img image.Image) (string, error) {
	if img == nil || img.Bounds().Empty() {
		return "", errors.New("image is empty")
	}
	f, err := os.CreateTemp(dir, "trail-cam-ocr-*.png")
	if err != nil {
		return "", err
	}
	if err := imaging.Encode(f, img, imaging.PNG); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to write temporary image file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
