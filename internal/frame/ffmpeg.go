package frame

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os/exec"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/briancolinger/trail-cam-sorter/internal/failure"
)

// DefaultTimeout bounds a single ffmpeg invocation.
const DefaultTimeout = 30 * time.Second

// Runner executes a command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// FFmpeg extracts frames by piping a single MJPEG image out of ffmpeg.
type FFmpeg struct {
	Path    string
	Timeout time.Duration
	Log     log.FieldLogger

	run Runner
}

// NewFFmpeg returns an extractor that shells out to the ffmpeg binary at path.
func NewFFmpeg(path string, timeout time.Duration) *FFmpeg {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &FFmpeg{
		Path:    path,
		Timeout: timeout,
		Log:     log.StandardLogger(),
		run:     execRunner,
	}
}

// Args returns the ffmpeg arguments used to grab one frame at seek.
func (f *FFmpeg) Args(source string, seek string) []string {
	return []string{
		"-loglevel", "-8", // Silence everything but the image.
		"-i", source,
		"-ss", seek,
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-",
	}
}

// Extract implements Extractor.
func (f *FFmpeg) Extract(ctx context.Context, source string, frameIndex int, frameRate float64) (image.Image, error) {
	seek, err := Seek(frameIndex, frameRate)
	if err != nil {
		return nil, failure.New(failure.Decode, "seek", err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	f.Log.WithFields(log.Fields{"path": source, "frame_num": frameIndex, "seek": seek}).Debug("Extracting frame")

	out, err := f.run(ctx, f.Path, f.Args(source, seek)...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, failure.Newf(failure.Decode, "ffmpeg", "timed out after %s: %w", f.Timeout, err)
		}
		return nil, failure.New(failure.Decode, "ffmpeg", err)
	}

	return Decode(out)
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}
