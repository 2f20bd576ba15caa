package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flateze/flateze/internal/billstore"
)

func newMigrateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations for the postgres bill store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Store.DatabaseURL == "" {
				return errNoDatabase
			}
			if err := billstore.Migrate(cmd.Context(), cfg.Store.DatabaseURL); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		},
	}
}
