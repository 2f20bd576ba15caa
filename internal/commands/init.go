package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/flateze/flateze/internal/config"
	"github.com/flateze/flateze/internal/rules"
)

const defaultRulesFile = "rules/company-rules.csv"

func newInitCommand() *cobra.Command {
	var flats []string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new flateze project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			if err := runInit(absDir, flats); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized flateze project at %s\n", absDir)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&flats, "flat", nil, "flat id to add with a local mail directory (repeatable)")

	return cmd
}

func runInit(dir string, flats []string) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}

	cfg := config.Default()
	cfg.RulesFile = defaultRulesFile
	for _, id := range flats {
		cfg.Flats = append(cfg.Flats, config.FlatConfig{
			ID:      id,
			Mailbox: config.MailboxConfig{Dir: filepath.Join("mail", id)},
		})
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flats: %w", err)
	}

	dirs := []string{cfg.Store.Dir, "logs", "rules"}
	for _, f := range cfg.Flats {
		dirs = append(dirs, f.Mailbox.Dir)
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	if err := rules.Default().Save(filepath.Join(dir, cfg.RulesFile)); err != nil {
		return fmt.Errorf("writing company rules: %w", err)
	}

	gitignore := "data/\nlogs/\nmail/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}
	return nil
}
