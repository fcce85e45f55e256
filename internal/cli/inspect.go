package cli

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/briancolinger/trail-cam-sorter/internal/destination"
	"github.com/briancolinger/trail-cam-sorter/internal/metadata"
)

var inspectFlagKeys = flagKeys{
	"output":       "output_dir",
	"corrections":  "corrections_file",
	"tessdata":     "tools.tessdata_dir",
	"ffmpeg":       "tools.ffmpeg_path",
	"frame-engine": "frame.engine",
	"ocr-engine":   "ocr.engine",
}

func (a *app) newInspectCommand() *cobra.Command {
	var frameNum int

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Read the metadata of one file and print where it would be sorted to",
		Long: `Runs the frame, composite, OCR and parse stages on a single file and
prints the metadata and the planned destination. The file is never moved.
With --frame only that frame is tried; otherwise the retry schedule is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInspect(cmd, args[0], frameNum)
		},
	}

	f := cmd.Flags()
	f.IntVar(&frameNum, "frame", 0, "try only this frame index")
	f.String("output", "", "the output directory used for the planned path")
	f.String("corrections", "", "YAML or JSON file mapping misread camera names to their corrections")
	f.String("tessdata", "", "the tessdata directory")
	f.String("ffmpeg", "", "path to the ffmpeg binary (default is looked up on PATH)")
	f.String("frame-engine", "", "frame engine (ffmpeg, opencv)")
	f.String("ocr-engine", "", "OCR engine (gosseract, tesseract-cli)")

	return cmd
}

func (a *app) runInspect(cmd *cobra.Command, source string, frameNum int) error {
	cfg, err := a.loadConfig(cmd, inspectFlagKeys)
	if err != nil {
		return err
	}
	if err := cfg.ResolveTools(); err != nil {
		return err
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}

	logger := log.WithField("run_id", uuid.NewString())
	scheduler, single, err := newScheduler(cfg, nil, logger)
	if err != nil {
		return err
	}

	var (
		md      metadata.TrailCamMetadata
		tried   = frameNum
		ctx     = cmd.Context()
		out     = cmd.OutOrStdout()
		planner = destination.NewPlanner()
	)
	if frameNum > 0 {
		md, err = single.Run(ctx, source, frameNum)
	} else {
		res, rerr := scheduler.Resolve(ctx, source)
		md, tried, err = res.Metadata, res.Frame, rerr
	}
	if err != nil {
		return err
	}

	dest, err := planner.Plan(cfg.OutputDir, md, filepath.Ext(source), source)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "File:        %s\n", source)
	fmt.Fprintf(out, "Frame:       %d\n", tried)
	fmt.Fprintf(out, "Camera Name: %s\n", md.CameraName)
	fmt.Fprintf(out, "Timestamp:   %s\n", md.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Destination: %s\n", dest)
	return nil
}
