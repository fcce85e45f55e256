package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briancolinger/trail-cam-sorter/internal/failure"
)

func TestCounters(t *testing.T) {
	m := New()
	m.FrameAttempt(failure.New(failure.Decode, "ffmpeg", errors.New("x")))
	m.FrameAttempt(failure.New(failure.Parse, "parse", errors.New("x")))
	m.FrameAttempt(nil)
	m.File(OutcomeMoved)
	m.File(OutcomeSkipped)
	m.File(OutcomeSkipped)
	m.Resolved(3)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.frameAttempts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.frameFailures.WithLabelValues("DecodeFailure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.frameFailures.WithLabelValues("ParseFailure")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.files.WithLabelValues(OutcomeSkipped)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.attempts))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.FrameAttempt(nil)
	m.Resolved(1)
	m.File(OutcomeMoved)
	m.RunDuration(time.Second)
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteTextfile("/nonexistent/metrics.prom"))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.File(OutcomeMoved)
	m.RunDuration(1500 * time.Millisecond)

	path := filepath.Join(t.TempDir(), "trailcam.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `trailcam_files_total{outcome="moved"} 1`)
	assert.Contains(t, string(data), "trailcam_run_duration_seconds 1.5")
}
