package presentation

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// noMarginStyle removes document margins so output lines up with tables.
const noMarginStyle = `{
	"document": {
		"margin": 0,
		"block_prefix": "",
		"block_suffix": ""
	}
}`

// ReportMarkdown renders a report as a Markdown document.
func ReportMarkdown(rep ReportDTO) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Load %s\n\n", rep.SessionID)
	fmt.Fprintf(&b, "- **Dir:** `%s`\n", rep.Dir)
	fmt.Fprintf(&b, "- **Format:** %s\n", rep.Format)
	fmt.Fprintf(&b, "- **State:** %s\n", rep.State)
	fmt.Fprintf(&b, "- **Tables:** %d ok, %d failed\n", rep.Total-rep.Failed, rep.Failed)
	fmt.Fprintf(&b, "- **Duration:** %s\n\n", formatMs(rep.DurationMs))

	b.WriteString("| Table | Status | Duration | Path |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, t := range rep.Tables {
		fmt.Fprintf(&b, "| %s | %s | %s | `%s` |\n", t.Name, status(t.OK, t.Kind), formatMs(t.DurationMs), t.Path)
	}

	if rep.Failed > 0 {
		b.WriteString("\n## Errors\n\n")
		for _, t := range rep.Tables {
			if t.OK {
				continue
			}
			fmt.Fprintf(&b, "### %s\n\n```\n%s\n```\n\n", t.Name, t.Error)
		}
	}
	return b.String()
}

// RenderMarkdown styles markdown for the terminal. style is a glamour
// standard style ("dark", "light", "notty"); noColor forces "notty".
func RenderMarkdown(markdown string, width int, style string, noColor bool) (string, error) {
	if noColor {
		style = "notty"
	}
	if style == "" {
		style = "dark"
	}
	if width <= 0 {
		width = DefaultWidth
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithStylesFromJSONBytes([]byte(noMarginStyle)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(markdown)
}
