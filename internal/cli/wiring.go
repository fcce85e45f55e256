package cli

import (
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/briancolinger/trail-cam-sorter/internal/composite"
	"github.com/briancolinger/trail-cam-sorter/internal/config"
	"github.com/briancolinger/trail-cam-sorter/internal/debugsink"
	"github.com/briancolinger/trail-cam-sorter/internal/frame"
	"github.com/briancolinger/trail-cam-sorter/internal/frame/cvframe"
	"github.com/briancolinger/trail-cam-sorter/internal/metadata"
	"github.com/briancolinger/trail-cam-sorter/internal/metrics"
	"github.com/briancolinger/trail-cam-sorter/internal/ocr"
	"github.com/briancolinger/trail-cam-sorter/internal/pipeline"
)

// DebugDirName is created below the output directory in debug mode.
const DebugDirName = "debug"

// newExtractor selects the frame engine.
func newExtractor(cfg *config.Config, logger log.FieldLogger) frame.Extractor {
	if cfg.Frame.Engine == config.EngineOpenCV {
		cv := cvframe.New()
		cv.Log = logger
		return cv
	}
	ff := frame.NewFFmpeg(cfg.Tools.FFmpegPath, cfg.Frame.Timeout)
	ff.Log = logger
	return ff
}

// newRecognizer selects the OCR engine.
func newRecognizer(cfg *config.Config) ocr.Recognizer {
	opts := ocr.Options{
		Language:    cfg.OCR.Language,
		TessdataDir: cfg.Tools.TessdataDir,
		Timeout:     cfg.OCR.Timeout,
	}
	if cfg.OCR.Engine == config.EngineTesseractCLI {
		return ocr.NewCLI(cfg.Tools.TesseractPath, opts)
	}
	return ocr.NewGosseract(opts)
}

func newDebugSink(cfg *config.Config, logger log.FieldLogger) debugsink.Sink {
	if !cfg.Debug {
		return debugsink.Discard{}
	}
	sink := debugsink.NewDir(filepath.Join(cfg.OutputDir, DebugDirName))
	sink.Log = logger
	return sink
}

// newScheduler wires the single-frame pipeline and its retry schedule.
func newScheduler(cfg *config.Config, m *metrics.Metrics, logger log.FieldLogger) (*pipeline.Scheduler, *pipeline.Pipeline, error) {
	corrections, err := metadata.LoadCorrections(cfg.CorrectionsFile)
	if err != nil {
		return nil, nil, err
	}
	parser := metadata.NewParser(corrections)
	parser.MaxAgeYears = cfg.Parser.MaxAgeYears

	p := &pipeline.Pipeline{
		Extractor:  newExtractor(cfg, logger),
		Compositor: composite.New(cfg.Composite.Width, cfg.Composite.Height),
		Recognizer: newRecognizer(cfg),
		Parser:     parser,
		Regions:    cfg.Regions,
		FrameRate:  cfg.Frame.Rate,
		Debug:      newDebugSink(cfg, logger),
		Log:        logger,
	}
	s := &pipeline.Scheduler{
		Runner:  p,
		Limit:   cfg.Frame.Limit,
		Skip:    cfg.Frame.Skip,
		Metrics: m,
		Log:     logger,
	}
	return s, p, nil
}
