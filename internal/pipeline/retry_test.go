package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briancolinger/trail-cam-sorter/internal/failure"
	"github.com/briancolinger/trail-cam-sorter/internal/metadata"
	"github.com/briancolinger/trail-cam-sorter/internal/metrics"
)

type scriptedRunner struct {
	calls   []int
	results map[int]error
	cancel  context.CancelFunc
}

func (s *scriptedRunner) Run(_ context.Context, _ string, frameIndex int) (metadata.TrailCamMetadata, error) {
	s.calls = append(s.calls, frameIndex)
	if s.cancel != nil {
		s.cancel()
	}
	if err, ok := s.results[frameIndex]; ok {
		return metadata.TrailCamMetadata{}, err
	}
	return metadata.TrailCamMetadata{
		Timestamp:  time.Date(2021, 6, 15, 8, 30, 0, 0, time.UTC),
		CameraName: "CAM1",
	}, nil
}

func TestFrames(t *testing.T) {
	frames, err := Frames(DefaultFrameLimit, DefaultFrameSkip)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 11, 21, 31, 41, 51, 61, 71, 81, 91}, frames)

	frames, err = Frames(21, 10)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 11, 21}, frames)

	frames, err = Frames(1, 10)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, frames)

	half := math.MaxInt / 2
	frames, err = Frames(math.MaxInt, half)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1 + half, 1 + 2*half}, frames, "no overflow near MaxInt")

	_, err = Frames(0, 10)
	assert.ErrorIs(t, err, errBadSchedule)
	_, err = Frames(100, 0)
	assert.ErrorIs(t, err, errBadSchedule)
}

func TestResolveStopsAtFirstSuccess(t *testing.T) {
	logger, hook := test.NewNullLogger()
	runner := &scriptedRunner{results: map[int]error{
		1:  failure.New(failure.Decode, "ffmpeg", errors.New("glitch")),
		11: failure.New(failure.Parse, "parse", errors.New("partial caption")),
	}}
	m := metrics.New()
	s := &Scheduler{Runner: runner, Limit: 100, Skip: 10, Metrics: m, Log: logger}

	res, err := s.Resolve(context.Background(), "x.avi")
	require.NoError(t, err)
	assert.Equal(t, 21, res.Frame)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, "CAM1", res.Metadata.CameraName)
	assert.Equal(t, []int{1, 11, 21}, runner.calls)

	require.Len(t, hook.AllEntries(), 2)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "ParseFailure", hook.LastEntry().Data["kind"])
	assert.Equal(t, 11, hook.LastEntry().Data["frame_num"])
}

func TestResolveExhausted(t *testing.T) {
	logger, hook := test.NewNullLogger()
	results := map[int]error{}
	for _, n := range []int{1, 11, 21, 31} {
		results[n] = failure.New(failure.Recognition, "ocr", errors.New("empty"))
	}
	runner := &scriptedRunner{results: results}
	s := &Scheduler{Runner: runner, Limit: 31, Skip: 10, Log: logger}

	_, err := s.Resolve(context.Background(), "x.avi")
	require.ErrorIs(t, err, ErrFramesExhausted)
	assert.Equal(t, []int{1, 11, 21, 31}, runner.calls)
	assert.Len(t, hook.AllEntries(), 4)
}

func TestResolveRetriesUnclassifiedErrors(t *testing.T) {
	logger, _ := test.NewNullLogger()
	runner := &scriptedRunner{results: map[int]error{1: errors.New("unexpected")}}
	s := &Scheduler{Runner: runner, Limit: 11, Skip: 10, Log: logger}

	res, err := s.Resolve(context.Background(), "x.avi")
	require.NoError(t, err)
	assert.Equal(t, 11, res.Frame)
}

func TestResolveCancelled(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ctx, cancel := context.WithCancel(context.Background())
	runner := &scriptedRunner{
		results: map[int]error{1: failure.New(failure.Decode, "ffmpeg", errors.New("killed"))},
		cancel:  cancel,
	}
	s := &Scheduler{Runner: runner, Limit: 100, Skip: 10, Log: logger}

	_, err := s.Resolve(ctx, "x.avi")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int{1}, runner.calls)
}

func TestResolveBadSchedule(t *testing.T) {
	s := &Scheduler{Runner: &scriptedRunner{}, Limit: 100, Skip: 0}
	_, err := s.Resolve(context.Background(), "x.avi")
	assert.ErrorIs(t, err, errBadSchedule)
}
