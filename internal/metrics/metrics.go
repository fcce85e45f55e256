// Package metrics counts frame attempts and file outcomes for a sorter run
// and can dump them for the node exporter textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/briancolinger/trail-cam-sorter/internal/failure"
)

const namespace = "trailcam"

// File outcomes.
const (
	OutcomeMoved     = "moved"
	OutcomeDryRun    = "dry_run"
	OutcomeUnchanged = "unchanged"
	OutcomeSkipped   = "skipped"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	registry      *prometheus.Registry
	frameAttempts prometheus.Counter
	frameFailures *prometheus.CounterVec
	files         *prometheus.CounterVec
	attempts      prometheus.Histogram
	duration      prometheus.Gauge
}

// New registers the sorter metrics on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		frameAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_attempts_total",
			Help:      "Candidate frames run through the pipeline.",
		}),
		frameFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_failures_total",
			Help:      "Candidate frames that failed, by failure kind.",
		}, []string{"kind"}),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Source files processed, by outcome.",
		}, []string{"outcome"}),
		attempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frames_per_file",
			Help:      "Candidate frames tried before a file resolved.",
			Buckets:   []float64{1, 2, 3, 5, 8, 10},
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
	}
	m.registry.MustRegister(m.frameAttempts, m.frameFailures, m.files, m.attempts, m.duration)
	return m
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// FrameAttempt records one candidate frame and its outcome.
func (m *Metrics) FrameAttempt(err error) {
	if m == nil {
		return
	}
	m.frameAttempts.Inc()
	if err != nil {
		m.frameFailures.WithLabelValues(failure.KindOf(err).String()).Inc()
	}
}

// Resolved records how many frames a file needed.
func (m *Metrics) Resolved(attempts int) {
	if m == nil {
		return
	}
	m.attempts.Observe(float64(attempts))
}

// File records the outcome for one source file.
func (m *Metrics) File(outcome string) {
	if m == nil {
		return
	}
	m.files.WithLabelValues(outcome).Inc()
}

// RunDuration records the wall time of the run.
func (m *Metrics) RunDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.duration.Set(d.Seconds())
}

// WriteTextfile writes the metrics in text exposition format; an empty
// path is ignored.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
