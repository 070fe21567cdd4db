package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/zjrosen/confhub/internal/presentation"
)

const (
	outputTable    = "table"
	outputJSON     = "json"
	outputMarkdown = "markdown"
)

func addOutputFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "output", "o", outputTable, "output format: table, json or markdown")
}

func validateOutput(output string) error {
	switch output {
	case outputTable, outputJSON, outputMarkdown:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want table, json or markdown)", output)
	}
}

// colorless reports whether w should receive plain text.
func colorless(w io.Writer) bool {
	if noColor {
		return true
	}
	f, ok := w.(*os.File)
	return !ok || !isatty.IsTerminal(f.Fd())
}

func writeReport(w io.Writer, output string, rep presentation.ReportDTO) error {
	switch output {
	case outputJSON:
		return presentation.NewFormatter(w).FormatReport(rep)
	case outputMarkdown:
		out, err := presentation.RenderMarkdown(presentation.ReportMarkdown(rep), presentation.DefaultWidth, "", colorless(w))
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	default:
		return presentation.NewRenderer(w, colorless(w), presentation.DefaultWidth).RenderReport(rep)
	}
}
