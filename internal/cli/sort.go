package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/briancolinger/trail-cam-sorter/internal/metrics"
	"github.com/briancolinger/trail-cam-sorter/internal/sorter"
)

var sortFlagKeys = flagKeys{
	"input":        "input_dir",
	"output":       "output_dir",
	"dry-run":      "dry_run",
	"limit":        "limit",
	"corrections":  "corrections_file",
	"tessdata":     "tools.tessdata_dir",
	"ffmpeg":       "tools.ffmpeg_path",
	"frame-engine": "frame.engine",
	"ocr-engine":   "ocr.engine",
	"metrics-file": "metrics_file",
}

func (a *app) newSortCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sort",
		Short: "Move every video under the input directory into the sorted output tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSort(cmd)
		},
	}

	f := cmd.Flags()
	f.String("input", "", "the input directory containing video files")
	f.String("output", "", "the output directory for sorted video files")
	f.Bool("dry-run", true, "if true, the files will not be moved")
	f.Int("limit", 0, "limits the number of files processed (0 for no limit)")
	f.String("corrections", "", "YAML or JSON file mapping misread camera names to their corrections")
	f.String("tessdata", "", "the tessdata directory")
	f.String("ffmpeg", "", "path to the ffmpeg binary (default is looked up on PATH)")
	f.String("frame-engine", "", "frame engine (ffmpeg, opencv)")
	f.String("ocr-engine", "", "OCR engine (gosseract, tesseract-cli)")
	f.String("metrics-file", "", "write run metrics in Prometheus text format to this file")

	return cmd
}

func (a *app) runSort(cmd *cobra.Command) error {
	start := time.Now()

	cfg, err := a.loadConfig(cmd, sortFlagKeys)
	if err != nil {
		return err
	}
	if err := cfg.RequireDirs(); err != nil {
		return err
	}
	if err := cfg.ResolveTools(); err != nil {
		return err
	}

	if !cfg.DryRun {
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if cfg.Debug {
		if err := os.MkdirAll(filepath.Join(cfg.OutputDir, DebugDirName), 0o755); err != nil {
			return fmt.Errorf("creating debug directory: %w", err)
		}
	}

	logger := log.WithField("run_id", uuid.NewString())
	m := metrics.New()

	scheduler, _, err := newScheduler(cfg, m, logger)
	if err != nil {
		return err
	}

	s := sorter.New(sorter.Params{
		InputDir:  cfg.InputDir,
		OutputDir: cfg.OutputDir,
		DryRun:    cfg.DryRun,
		Limit:     cfg.Limit,
	}, scheduler,
		sorter.WithLogger(logger),
		sorter.WithMetrics(m),
		sorter.WithStatus(sorter.NewStatus(cmd.OutOrStdout(), start)),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, runErr := s.Run(ctx)

	if cfg.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.WithFields(log.Fields{"path": cfg.MetricsFile, "error": err}).Error("Error writing metrics")
		}
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			logger.Warn("Interrupted")
		}
		return runErr
	}

	logger.WithFields(log.Fields{"time_taken": time.Since(start)}).Info("Done.")
	return nil
}
