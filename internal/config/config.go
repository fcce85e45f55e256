// Package config loads the sorter settings from defaults, a YAML file,
// TRAILCAM_ environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/briancolinger/trail-cam-sorter/internal/region"
)

// Frame engines.
const (
	EngineFFmpeg = "ffmpeg"
	EngineOpenCV = "opencv"
)

// MaxFrameLimit bounds frame.limit; higher frames are past any trail camera clip.
const MaxFrameLimit = 1_000_000

// OCR engines.
const (
	EngineGosseract    = "gosseract"
	EngineTesseractCLI = "tesseract-cli"
)

var (
	errMissingInputDir  = errors.New("please specify input directory")
	errMissingOutputDir = errors.New("please specify output directory")
)

// Config is the complete configuration of a run.
type Config struct {
	InputDir        string `mapstructure:"input_dir" yaml:"input_dir"`
	OutputDir       string `mapstructure:"output_dir" yaml:"output_dir"`
	DryRun          bool   `mapstructure:"dry_run" yaml:"dry_run"`
	Debug           bool   `mapstructure:"debug" yaml:"debug"`
	Limit           int    `mapstructure:"limit" yaml:"limit"`
	LogLevel        string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat       string `mapstructure:"log_format" yaml:"log_format"`
	CorrectionsFile string `mapstructure:"corrections_file" yaml:"corrections_file"`
	MetricsFile     string `mapstructure:"metrics_file" yaml:"metrics_file"`

	Tools     ToolsConfig     `mapstructure:"tools" yaml:"tools"`
	Frame     FrameConfig     `mapstructure:"frame" yaml:"frame"`
	OCR       OCRConfig       `mapstructure:"ocr" yaml:"ocr"`
	Composite CompositeConfig `mapstructure:"composite" yaml:"composite"`
	Parser    ParserConfig    `mapstructure:"parser" yaml:"parser"`
	Regions   []region.Spec   `mapstructure:"regions" yaml:"regions"`
}

// ToolsConfig locates the external binaries. Empty paths are looked up on PATH.
type ToolsConfig struct {
	FFmpegPath    string `mapstructure:"ffmpeg_path" yaml:"ffmpeg_path"`
	TesseractPath string `mapstructure:"tesseract_path" yaml:"tesseract_path"`
	TessdataDir   string `mapstructure:"tessdata_dir" yaml:"tessdata_dir"`
}

// FrameConfig controls frame extraction and the retry schedule.
type FrameConfig struct {
	Engine  string        `mapstructure:"engine" yaml:"engine"`
	Limit   int           `mapstructure:"limit" yaml:"limit"`
	Skip    int           `mapstructure:"skip" yaml:"skip"`
	Rate    float64       `mapstructure:"rate" yaml:"rate"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// OCRConfig controls text recognition.
type OCRConfig struct {
	Engine   string        `mapstructure:"engine" yaml:"engine"`
	Language string        `mapstructure:"language" yaml:"language"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// CompositeConfig is the size of each region canvas.
type CompositeConfig struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// ParserConfig bounds the accepted timestamps.
type ParserConfig struct {
	MaxAgeYears int `mapstructure:"max_age_years" yaml:"max_age_years"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		DryRun:    true,
		LogLevel:  "info",
		LogFormat: "text",
		Tools: ToolsConfig{
			TessdataDir: "/usr/local/share/tessdata",
		},
		Frame: FrameConfig{
			Engine:  EngineFFmpeg,
			Limit:   100,
			Skip:    10,
			Rate:    30,
			Timeout: 30 * time.Second,
		},
		OCR: OCRConfig{
			Engine:   EngineGosseract,
			Language: "eng",
			Timeout:  30 * time.Second,
		},
		Composite: CompositeConfig{Width: 520, Height: 60},
		Parser:    ParserConfig{MaxAgeYears: 41},
		Regions:   region.Defaults(),
	}
}

// Validate checks the value ranges. The input and output directories are
// checked separately by RequireDirs since only sorting needs them.
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log_format %q: must be text or json", c.LogFormat)
	}
	if c.Limit < 0 {
		return fmt.Errorf("limit must be non-negative, got %d", c.Limit)
	}

	switch c.Frame.Engine {
	case EngineFFmpeg, EngineOpenCV:
	default:
		return fmt.Errorf("invalid frame.engine %q: must be %s or %s", c.Frame.Engine, EngineFFmpeg, EngineOpenCV)
	}
	if c.Frame.Limit < 1 || c.Frame.Limit > MaxFrameLimit {
		return fmt.Errorf("frame.limit must be between 1 and %d, got %d", MaxFrameLimit, c.Frame.Limit)
	}
	if c.Frame.Skip < 1 {
		return fmt.Errorf("frame.skip must be at least 1, got %d", c.Frame.Skip)
	}
	if c.Frame.Rate <= 0 {
		return fmt.Errorf("frame.rate must be positive, got %v", c.Frame.Rate)
	}
	if c.Frame.Timeout <= 0 {
		return fmt.Errorf("frame.timeout must be positive, got %v", c.Frame.Timeout)
	}

	switch c.OCR.Engine {
	case EngineGosseract, EngineTesseractCLI:
	default:
		return fmt.Errorf("invalid ocr.engine %q: must be %s or %s", c.OCR.Engine, EngineGosseract, EngineTesseractCLI)
	}
	if c.OCR.Language == "" {
		return errors.New("ocr.language cannot be empty")
	}
	if c.OCR.Timeout <= 0 {
		return fmt.Errorf("ocr.timeout must be positive, got %v", c.OCR.Timeout)
	}

	if c.Composite.Width <= 0 || c.Composite.Height <= 0 {
		return fmt.Errorf("composite size must be positive, got %dx%d", c.Composite.Width, c.Composite.Height)
	}
	if c.Parser.MaxAgeYears <= 0 {
		return fmt.Errorf("parser.max_age_years must be positive, got %d", c.Parser.MaxAgeYears)
	}
	if err := region.ValidateAll(c.Regions); err != nil {
		return fmt.Errorf("invalid regions: %w", err)
	}
	return nil
}

// RequireDirs checks the directories needed to sort.
func (c *Config) RequireDirs() error {
	if c.InputDir == "" {
		return errMissingInputDir
	}
	if c.OutputDir == "" {
		return errMissingOutputDir
	}
	if info, err := os.Stat(c.InputDir); err != nil {
		return fmt.Errorf("input directory: %w", err)
	} else if !info.IsDir() {
		return fmt.Errorf("input directory %s is not a directory", c.InputDir)
	}
	return nil
}

// ResolveTools fills in empty tool paths from PATH and checks the tessdata
// directory. Only the tools of the selected engines are required.
func (c *Config) ResolveTools() error {
	return c.resolveTools(exec.LookPath)
}

func (c *Config) resolveTools(lookPath func(string) (string, error)) error {
	if c.Frame.Engine == EngineFFmpeg && c.Tools.FFmpegPath == "" {
		path, err := lookPath("ffmpeg")
		if err != nil {
			return fmt.Errorf("ffmpeg not found, set tools.ffmpeg_path: %w", err)
		}
		c.Tools.FFmpegPath = path
	}
	if c.OCR.Engine == EngineTesseractCLI && c.Tools.TesseractPath == "" {
		path, err := lookPath("tesseract")
		if err != nil {
			return fmt.Errorf("tesseract not found, set tools.tesseract_path: %w", err)
		}
		c.Tools.TesseractPath = path
	}
	if c.Tools.TessdataDir != "" {
		info, err := os.Stat(c.Tools.TessdataDir)
		if err != nil {
			return fmt.Errorf("tessdata directory: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("tessdata directory %s is not a directory", c.Tools.TessdataDir)
		}
	}
	return nil
}
