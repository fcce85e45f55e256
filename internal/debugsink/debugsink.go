// Package debugsink persists intermediate frames, composites and OCR text
// when the sorter runs in debug mode.
package debugsink

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	log "github.com/sirupsen/logrus"
)

// Directory permissions.
const dirPerm = 0o755

// Sink receives debug artifacts. Implementations must not fail the caller's
// control flow; errors are returned for logging only.
type Sink interface {
	WriteImage(name string, img image.Image) error
	WriteText(name string, text string) error
}

// Name builds an artifact name from the source file, the frame number and a tag,
// e.g. "CAM01.AVI-11-frame.png".
func Name(source string, frameNum int, tag string, ext string) string {
	return fmt.Sprintf("%s-%d-%s.%s", filepath.Base(source), frameNum, tag, ext)
}

// Discard drops every artifact.
type Discard struct{}

func (Discard) WriteImage(string, image.Image) error { return nil }
func (Discard) WriteText(string, string) error       { return nil }

// Dir writes artifacts into a directory, creating it on first use.
type Dir struct {
	Path string
	Log  log.FieldLogger
}

// NewDir returns a sink rooted at path.
func NewDir(path string) *Dir {
	return &Dir{Path: path, Log: log.StandardLogger()}
}

// WriteImage saves img as a PNG.
func (d *Dir) WriteImage(name string, img image.Image) error {
	if err := os.MkdirAll(d.Path, dirPerm); err != nil {
		return err
	}
	filename := filepath.Join(d.Path, name)
	if err := imaging.Save(img, filename); err != nil {
		return fmt.Errorf("failed to write image to file: %w", err)
	}
	d.Log.WithField("filename", filename).Debug("Debug image written")
	return nil
}

// WriteText saves text verbatim.
func (d *Dir) WriteText(name string, text string) error {
	if err := os.MkdirAll(d.Path, dirPerm); err != nil {
		return err
	}
	filename := filepath.Join(d.Path, name)
	if err := os.WriteFile(filename, []byte(text), 0o644); err != nil {
		return err
	}
	d.Log.WithField("filename", filename).Debug("Debug text written")
	return nil
}
