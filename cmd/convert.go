package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/confhub/internal/format"
	"github.com/zjrosen/confhub/internal/hub"
)

var (
	convertOut           string
	convertTo            string
	convertAllowFailures bool
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Load tables and write them back out in another format",
	Long: `Load every registered table from the configured directory and format,
then write each one to --out as <TableName>.json or <TableName>.binpb.

Tables that failed to load are not written. Without --allow-failures a
failed table aborts the conversion before anything is written.

Examples:
  # JSON to binary
  confhub convert --dir ./conf --out ./build --to binary

  # Normalize JSON formatting in place
  confhub convert --dir ./conf --out ./conf --to json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if convertOut == "" {
			return errors.New("--out is required")
		}
		to, err := format.Parse(convertTo)
		if err != nil {
			return err
		}
		if !to.Loadable() {
			return fmt.Errorf("cannot convert to %s", to)
		}

		l, err := newLoader(cfg, nil)
		if err != nil {
			return err
		}
		defer func() { _ = l.Close() }()

		loadErr := l.load(cmd.Context(), cfg.Dir, cfg.Timeout)
		var filter hub.Filter
		if loadErr != nil {
			var le *hub.LoadErrors
			if !errors.As(loadErr, &le) || !convertAllowFailures {
				return fmt.Errorf("load failed: %w", loadErr)
			}
			filter = func(name string) bool { return le.Get(name) == nil }
		}

		paths, err := l.hub.Store(convertOut, to, filter)
		for _, p := range paths {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return err
	},
}

func init() {
	convertCmd.Flags().StringVar(&convertOut, "out", "", "output directory")
	convertCmd.Flags().StringVar(&convertTo, "to", "binary", "output format: json or binary")
	convertCmd.Flags().BoolVar(&convertAllowFailures, "allow-failures", false, "write the tables that loaded even if others failed")
	rootCmd.AddCommand(convertCmd)
}
