// Package cli implements the trail-cam-sorter command line.
package cli

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/briancolinger/trail-cam-sorter/internal/config"
)

// app carries the state shared by the subcommands of one root command.
type app struct {
	loader  *config.Loader
	cfgFile string
}

// NewRootCommand builds the command tree.
func NewRootCommand(version string) *cobra.Command {
	a := &app{loader: config.NewLoader()}

	root := &cobra.Command{
		Use:   "trail-cam-sorter",
		Short: "Sort trail camera footage by the camera name and timestamp burned into each frame",
		Long: `Reads the timestamp and camera name that trail cameras burn into the
bottom banner of every video frame, and moves each file to

  <output>/<CAMERA>/<YYYY-MM-DD>/<CAMERA>-<YYYY-MM-DD-HH-MM-SS>.<ext>

Dry-run is on by default; pass --dry-run=false to move files.

Examples:
  trail-cam-sorter sort --input /media/card --output ~/TrailCam
  trail-cam-sorter inspect /media/card/DCIM/IMG_0001.AVI --debug`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("trail-cam-sorter version {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is trail-cam-sorter.yaml in ., $XDG_CONFIG_HOME/trail-cam-sorter, /etc/trail-cam-sorter)")
	pf.Bool("debug", false, "enables debug logging and writes debug images to <output>/debug")
	pf.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	pf.String("log-format", "text", "log format (text, json)")

	root.AddCommand(
		a.newSortCommand(),
		a.newInspectCommand(),
		newConfigCommand(),
	)
	return root
}

// Execute runs the root command and reports any error on stderr.
func Execute(version string) int {
	if err := NewRootCommand(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// flagKeys maps flag names to configuration keys.
type flagKeys map[string]string

var rootFlagKeys = flagKeys{
	"debug":      "debug",
	"log-level":  "log_level",
	"log-format": "log_format",
}

// bind binds the flags of the running command only, so subcommands that
// share a key do not steal each other's bindings.
func (a *app) bind(flags *pflag.FlagSet, keys flagKeys) error {
	for name, key := range keys {
		if err := a.loader.BindFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("binding --%s: %w", name, err)
		}
	}
	return nil
}

// loadConfig binds the command's flags, reads the configuration and sets
// up logging from it.
func (a *app) loadConfig(cmd *cobra.Command, keys flagKeys) (*config.Config, error) {
	if err := a.bind(cmd.Flags(), rootFlagKeys); err != nil {
		return nil, err
	}
	if err := a.bind(cmd.Flags(), keys); err != nil {
		return nil, err
	}

	cfg, err := a.loader.Load(a.cfgFile)
	if err != nil {
		return nil, err
	}
	if err := setupLogging(cfg, cmd.OutOrStdout()); err != nil {
		return nil, err
	}
	if used := a.loader.ConfigFileUsed(); used != "" {
		log.WithField("path", used).Debug("Using config file")
	}
	return cfg, nil
}

// setupLogging configures the standard logrus logger. Debug mode wins over
// the configured level.
func setupLogging(cfg *config.Config, out io.Writer) error {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if cfg.Debug && level < log.DebugLevel {
		level = log.DebugLevel
	}

	log.SetOutput(out)
	log.SetLevel(level)
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
