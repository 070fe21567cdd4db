package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/zjrosen/confhub/internal/load"
	"github.com/zjrosen/confhub/internal/presentation"
)

var (
	regOutput    string
	regWithPaths bool
)

var registryListCmd = &cobra.Command{
	Use:   "registry:list",
	Short: "List all registered tables",
	Long: `List every table registered in this binary with the Go type its file
decodes into.

With --paths, also show the file each table would be loaded from given
the configured directory, format and per-table overrides. Tables removed
by only/exclude are marked as filtered.

Examples:
  # List all tables
  confhub registry:list

  # Include resolved file paths
  confhub registry:list --paths

  # Parse specific fields with jq
  confhub registry:list -o json | jq '.[].name'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if regOutput != outputTable && regOutput != outputJSON {
			return fmt.Errorf("unknown output format %q (want table or json)", regOutput)
		}

		var pathOf func(string) string
		if regWithPaths {
			f, err := cfg.ParsedFormat()
			if err != nil {
				return err
			}
			options := load.ParseOptions(cfg.LoadOptions(registry.Names())...)
			filter := cfg.Filter()
			pathOf = func(name string) string {
				if filter != nil && !filter(name) {
					return "(filtered)"
				}
				return load.Path(name, cfg.Dir, f, options.ParseMessagerOptionsByName(name))
			}
		}

		dtos := presentation.FromRegistry(registry, pathOf)
		if regOutput == outputJSON {
			return presentation.NewFormatter(cmd.OutOrStdout()).FormatRegistrations(dtos)
		}
		return presentation.NewRenderer(cmd.OutOrStdout(), colorless(cmd.OutOrStdout()), presentation.DefaultWidth).
			RenderRegistrations(dtos)
	},
}

func init() {
	registryListCmd.Flags().StringVarP(&regOutput, "output", "o", outputTable, "output format: table or json")
	registryListCmd.Flags().BoolVarP(&regWithPaths, "paths", "p", false, "show the resolved file path of each table")
	rootCmd.AddCommand(registryListCmd)
}

// tableNames validates user-supplied table names against the registry.
func tableNames(names []string) ([]string, error) {
	known := registry.Names()
	for _, n := range names {
		if !slices.Contains(known, n) {
			return nil, fmt.Errorf("unknown table %q (see 'confhub registry:list')", n)
		}
	}
	return names, nil
}
