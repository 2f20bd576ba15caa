package commands

import (
	"github.com/spf13/cobra"

	"github.com/flateze/flateze/internal/buildinfo"
	"github.com/flateze/flateze/internal/config"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "flateze",
		Short:   "Turn utility bill emails into shared flat bills",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.FileName, "path to flateze.yaml")

	rootCmd.AddCommand(
		newInitCommand(),
		newParseCommand(&configPath),
		newIngestCommand(&configPath),
		newServeCommand(&configPath),
		newMigrateCommand(&configPath),
		newRulesCommand(&configPath),
	)

	return rootCmd
}
