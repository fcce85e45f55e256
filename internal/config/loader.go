package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "trail-cam-sorter"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "TRAILCAM"

	// DotEnvFile is loaded into the environment before the config is read.
	DotEnvFile = ".env"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader with its own viper instance.
func NewLoader() *Loader {
	return &Loader{v: viper.New()}
}

// BindFlag binds a command-line flag to a configuration key. Nil flags
// are ignored so callers can bind optional flags unconditionally.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return nil
	}
	return l.v.BindPFlag(key, flag)
}

// Load reads the configuration. An empty configFile searches the default
// paths; a missing file there is not an error.
func (l *Loader) Load(configFile string) (*Config, error) {
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading %s: %w", DotEnvFile, err)
	}

	l.setupEnvironmentVariables()
	l.setDefaults()

	if configFile != "" {
		if _, err := os.Stat(configFile); err != nil {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		for _, path := range SearchPaths() {
			l.v.AddConfigPath(path)
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// ConfigFileUsed returns the path of the config file read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults registers every key so AutomaticEnv can see it.
func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("input_dir", d.InputDir)
	l.v.SetDefault("output_dir", d.OutputDir)
	l.v.SetDefault("dry_run", d.DryRun)
	l.v.SetDefault("debug", d.Debug)
	l.v.SetDefault("limit", d.Limit)
	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("log_format", d.LogFormat)
	l.v.SetDefault("corrections_file", d.CorrectionsFile)
	l.v.SetDefault("metrics_file", d.MetricsFile)

	l.v.SetDefault("tools.ffmpeg_path", d.Tools.FFmpegPath)
	l.v.SetDefault("tools.tesseract_path", d.Tools.TesseractPath)
	l.v.SetDefault("tools.tessdata_dir", d.Tools.TessdataDir)

	l.v.SetDefault("frame.engine", d.Frame.Engine)
	l.v.SetDefault("frame.limit", d.Frame.Limit)
	l.v.SetDefault("frame.skip", d.Frame.Skip)
	l.v.SetDefault("frame.rate", d.Frame.Rate)
	l.v.SetDefault("frame.timeout", d.Frame.Timeout)

	l.v.SetDefault("ocr.engine", d.OCR.Engine)
	l.v.SetDefault("ocr.language", d.OCR.Language)
	l.v.SetDefault("ocr.timeout", d.OCR.Timeout)

	l.v.SetDefault("composite.width", d.Composite.Width)
	l.v.SetDefault("composite.height", d.Composite.Height)

	l.v.SetDefault("parser.max_age_years", d.Parser.MaxAgeYears)

	l.v.SetDefault("regions", d.Regions)
}

// SearchPaths returns the directories searched for trail-cam-sorter.yaml.
func SearchPaths() []string {
	paths := []string{"."}
	if dir, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		paths = append(paths, filepath.Join(dir, "trail-cam-sorter"))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "trail-cam-sorter"))
	}
	return append(paths, "/etc/trail-cam-sorter")
}

// WriteDefault writes the default configuration as YAML. It refuses to
// overwrite an existing file.
func WriteDefault(filename string) error {
	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	f, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
