package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zjrosen/confhub/internal/presentation"
	"github.com/zjrosen/confhub/internal/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema [table...]",
	Short: "Print the JSON Schema of table files",
	Long: `Print a JSON Schema for the JSON file layout of each registered table,
keyed by table name. Pass table names to limit the output.

Examples:
  # Every table
  confhub schema

  # One table, ready for an editor's schema setting
  confhub schema HeroConf | jq '.HeroConf' > HeroConf.schema.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := tableNames(args)
		if err != nil {
			return err
		}
		schemas, err := schema.All(registry, names...)
		if err != nil {
			return err
		}
		return presentation.NewFormatter(cmd.OutOrStdout()).FormatValue(schemas)
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
