package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/confhub/internal/config"
	"github.com/zjrosen/confhub/internal/format"
)

var tableUnpin bool

var tablePinCmd = &cobra.Command{
	Use:   "table:pin <table> [path]",
	Short: "Load a table from a specific file instead of the table directory",
	Long: `Record a per-table path override in the config file. The file's own
extension (.json or .binpb) decides how it is decoded, independent of the
configured format.

Examples:
  # Load HeroConf from a hotfix file
  confhub table:pin HeroConf ./hotfix/HeroConf.json

  # Remove the override
  confhub table:pin HeroConf --unpin`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := tableNames(args[:1]); err != nil {
			return err
		}
		table := args[0]

		path := ""
		switch {
		case tableUnpin && len(args) == 2:
			return fmt.Errorf("--unpin takes no path")
		case !tableUnpin && len(args) != 2:
			return fmt.Errorf("path is required (or use --unpin)")
		case !tableUnpin:
			path = args[1]
			if format.ResolveFormat(path) == format.Unknown {
				return fmt.Errorf("cannot tell the format of %q: want .json or .binpb", path)
			}
		}

		target := configPath()
		if err := config.SaveTablePath(target, table, path); err != nil {
			return err
		}
		if path == "" {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: override removed (%s)\n", table, target)
			return err
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", table, path, target)
		return err
	},
}

func init() {
	tablePinCmd.Flags().BoolVar(&tableUnpin, "unpin", false, "remove the table's path override")
	rootCmd.AddCommand(tablePinCmd)
}
