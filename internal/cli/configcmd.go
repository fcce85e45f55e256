package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/briancolinger/trail-cam-sorter/internal/config"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init [FILE]",
		Short: "Write the default configuration to FILE (default trail-cam-sorter.yaml)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := config.ConfigFileName + ".yaml"
			if len(args) == 1 {
				filename = args[0]
			}
			if err := config.WriteDefault(filename); err != nil {
				return fmt.Errorf("writing %s: %w", filename, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", filename)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "paths",
		Short: "List the directories searched for the configuration file",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, p := range config.SearchPaths() {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
		},
	})

	return cmd
}
