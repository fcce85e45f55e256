// Package sorter walks an input directory of trail camera videos, reads
// the metadata burned into each one and files it under the output directory.
package sorter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/briancolinger/trail-cam-sorter/internal/destination"
	"github.com/briancolinger/trail-cam-sorter/internal/failure"
	"github.com/briancolinger/trail-cam-sorter/internal/metrics"
	"github.com/briancolinger/trail-cam-sorter/internal/pipeline"
)

var (
	errMissingInputDir  = errors.New("please specify input directory")
	errMissingOutputDir = errors.New("please specify output directory")
)

// Params holds the run options.
type Params struct {
	InputDir  string // The input directory containing video files.
	OutputDir string // The output directory for sorted video files.
	DryRun    bool   // If true, the files will not be moved.
	Limit     int    // Limits the number of files processed; 0 means no limit.
}

// Validate checks the required directories are set.
func (p Params) Validate() error {
	if p.InputDir == "" {
		return errMissingInputDir
	}
	if p.OutputDir == "" {
		return errMissingOutputDir
	}
	return nil
}

// Resolver reads the metadata of one source file.
type Resolver interface {
	Resolve(ctx context.Context, source string) (pipeline.Resolution, error)
}

// Summary counts what a run did.
type Summary struct {
	Processed int
	Moved     int
	Unchanged int
	Skipped   int
}

// Sorter sorts trail camera footage.
type Sorter struct {
	params    Params
	resolver  Resolver
	planner   *destination.Planner
	metrics   *metrics.Metrics
	status    *Status
	log       *log.Entry
	ignoreMap map[string]bool
	move      func(src, dest string) error
	now       func() time.Time
}

// Option customises a Sorter.
type Option func(*Sorter)

// WithMetrics records run metrics.
func WithMetrics(m *metrics.Metrics) Option { return func(s *Sorter) { s.metrics = m } }

// WithStatus prints a progress block per file.
func WithStatus(st *Status) Option { return func(s *Sorter) { s.status = st } }

// WithLogger replaces the standard logger. A run_id already set on l is kept.
func WithLogger(l log.FieldLogger) Option {
	return func(s *Sorter) {
		entry := l.WithFields(log.Fields{})
		if _, ok := entry.Data["run_id"]; !ok {
			entry = entry.WithField("run_id", s.log.Data["run_id"])
		}
		s.log = entry
	}
}

// New initializes a sorter for params.
func New(params Params, resolver Resolver, opts ...Option) *Sorter {
	s := &Sorter{
		params:    params,
		resolver:  resolver,
		planner:   destination.NewPlanner(),
		log:       log.WithField("run_id", uuid.NewString()),
		ignoreMap: getIgnoreMap(),
		move:      destination.Move,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run processes every file under the input directory. Files whose frames
// all fail are skipped; a failed move aborts the run.
func (s *Sorter) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	start := s.now()
	defer func() {
		s.metrics.RunDuration(s.now().Sub(start))
	}()

	if err := s.params.Validate(); err != nil {
		return sum, err
	}

	s.deleteJunkFiles()

	files, err := s.collectFiles()
	if err != nil {
		return sum, fmt.Errorf("walking %s: %w", s.params.InputDir, err)
	}
	total := len(files)
	if s.params.Limit > 0 && s.params.Limit < total {
		total = s.params.Limit
	}

	for _, path := range files {
		if s.params.Limit > 0 && sum.Processed >= s.params.Limit {
			s.log.WithField("limit", s.params.Limit).Info("Limit reached")
			break
		}
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		sum.Processed++
		if err := s.processFile(ctx, path, sum.Processed, total, &sum); err != nil {
			return sum, err
		}
	}

	if err := s.removeEmptyDirs(s.params.InputDir); err != nil {
		s.log.WithFields(log.Fields{"error": err}).Error("Error removing empty directories")
	}

	s.log.WithFields(log.Fields{
		"processed":  sum.Processed,
		"moved":      sum.Moved,
		"unchanged":  sum.Unchanged,
		"skipped":    sum.Skipped,
		"time_taken": s.now().Sub(start),
	}).Info("Processed files")

	return sum, nil
}

// processFile resolves the metadata of one file and moves it. Only a failed
// move, or cancellation, is returned as an error.
func (s *Sorter) processFile(ctx context.Context, path string, n, total int, sum *Summary) error {
	res, err := s.resolver.Resolve(ctx, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.log.WithFields(log.Fields{"path": path, "error": err}).Error("Error processing file, leaving it in place")
		s.metrics.File(metrics.OutcomeSkipped)
		s.status.Skipped(n, total, path, s.now())
		sum.Skipped++
		return nil
	}

	dest, err := s.planner.Plan(s.params.OutputDir, res.Metadata, filepath.Ext(path), path)
	if err != nil {
		return err
	}

	switch {
	case destination.Same(path, dest):
		s.log.WithFields(log.Fields{"path": path}).Info("File already in place")
		s.metrics.File(metrics.OutcomeUnchanged)
		sum.Unchanged++
	case s.params.DryRun:
		s.log.WithFields(log.Fields{"type": "DRY RUN", "src": path, "dest": dest}).Info("Skip renaming file")
		s.metrics.File(metrics.OutcomeDryRun)
	default:
		s.log.WithFields(log.Fields{"type": "RENAME", "src": path, "dest": dest}).Info("Renaming file")
		if err := s.move(path, dest); err != nil {
			if failure.KindOf(err) != failure.Rename {
				err = failure.New(failure.Rename, "move", err)
			}
			return err
		}
		s.metrics.File(metrics.OutcomeMoved)
		sum.Moved++
		s.pruneAround(path)
	}

	s.status.Sorted(n, total, path, dest, res.Metadata, s.now())
	return nil
}

// pruneAround removes empty directories under the grandparent of a moved
// file, never leaving the input tree.
func (s *Sorter) pruneAround(path string) {
	dir := filepath.Dir(filepath.Dir(path))
	if !within(s.params.InputDir, dir) {
		dir = s.params.InputDir
	}
	if err := s.removeEmptyDirs(dir); err != nil {
		s.log.WithFields(log.Fields{"path": dir, "error": err}).Error("Error removing empty directories")
	}
}
