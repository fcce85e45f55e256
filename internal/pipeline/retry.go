package pipeline

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/briancolinger/trail-cam-sorter/internal/failure"
	"github.com/briancolinger/trail-cam-sorter/internal/metadata"
	"github.com/briancolinger/trail-cam-sorter/internal/metrics"
)

// Retry defaults.
const (
	DefaultFrameLimit = 100
	DefaultFrameSkip  = 10
	DefaultFrameRate  = 30
)

// First candidate frame; frame 0 is often a black lead-in.
const firstFrame = 1

var (
	// ErrFramesExhausted is returned when no candidate frame yielded metadata.
	ErrFramesExhausted = errors.New("no candidate frame yielded metadata")

	errBadSchedule = errors.New("invalid frame schedule")
)

// Runner processes a single candidate frame.
type Runner interface {
	Run(ctx context.Context, source string, frameIndex int) (metadata.TrailCamMetadata, error)
}

// Resolution is the outcome of a successful Resolve.
type Resolution struct {
	Metadata metadata.TrailCamMetadata
	Frame    int
	Attempts int
}

// Scheduler walks the candidate frames of a file until one succeeds.
type Scheduler struct {
	Runner  Runner
	Limit   int
	Skip    int
	Metrics *metrics.Metrics
	Log     log.FieldLogger
}

// Frames returns the candidate indices 1, 1+skip, ... up to and including limit.
func Frames(limit, skip int) ([]int, error) {
	if limit < firstFrame || skip <= 0 {
		return nil, fmt.Errorf("%w: limit=%d skip=%d", errBadSchedule, limit, skip)
	}
	frames := make([]int, 0, (limit-firstFrame)/skip+1)
	// Comparing against limit-skip keeps n from overflowing near MaxInt.
	for n := firstFrame; ; n += skip {
		frames = append(frames, n)
		if n > limit-skip {
			break
		}
	}
	return frames, nil
}

// Resolve runs the candidate frames of source in order. A failed frame
// moves on to the next one; only cancellation stops the search early.
func (s *Scheduler) Resolve(ctx context.Context, source string) (Resolution, error) {
	frames, err := Frames(s.Limit, s.Skip)
	if err != nil {
		return Resolution{}, err
	}

	logger := s.Log
	if logger == nil {
		logger = log.StandardLogger()
	}

	for i, frameNum := range frames {
		if err := ctx.Err(); err != nil {
			return Resolution{}, err
		}

		data, err := s.Runner.Run(ctx, source, frameNum)
		s.Metrics.FrameAttempt(err)
		if err == nil {
			s.Metrics.Resolved(i + 1)
			return Resolution{Metadata: data, Frame: frameNum, Attempts: i + 1}, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return Resolution{}, ctxErr
		}
		logger.WithFields(log.Fields{
			"path":      source,
			"frame_num": frameNum,
			"kind":      failure.KindOf(err).String(),
			"error":     err,
		}).Warn("Frame failed, trying next")
	}

	return Resolution{}, fmt.Errorf("%w: %s after %d frames", ErrFramesExhausted, source, len(frames))
}
