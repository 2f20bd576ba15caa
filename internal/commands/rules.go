package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/flateze/flateze/internal/rules"
)

func newRulesCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the company rules in match order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := projectRules(*configPath)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tPATTERN\tCOMPANY\tTYPE")
			for i, r := range rs.All() {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, strings.TrimPrefix(r.Pattern.String(), "(?i)"), r.Company, r.Type)
			}
			return tw.Flush()
		},
	}
}

// projectRules returns the rules file named by the config, or the built-in
// rules when there is no config or it names no file.
func projectRules(configPath string) (*rules.Set, error) {
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		return rules.Default(), nil
	}
	cfg, root, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.RulesFile == "" {
		return rules.Default(), nil
	}
	return rules.Load(resolve(root, cfg.RulesFile))
}
