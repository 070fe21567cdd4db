package presentation

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"
)

// DefaultWidth is used when the caller does not know the terminal width.
const DefaultWidth = 100

const (
	minErrorCell = 16
	timeLayout   = "2006-01-02 15:04:05"
)

// Renderer draws human-readable tables.
type Renderer struct {
	out   io.Writer
	width int

	header  lipgloss.Style
	cell    lipgloss.Style
	ok      lipgloss.Style
	failed  lipgloss.Style
	subtle  lipgloss.Style
	border  lipgloss.Style
	heading lipgloss.Style
}

// NewRenderer creates a renderer writing to out. noColor forces the ASCII
// profile; width <= 0 means DefaultWidth.
func NewRenderer(out io.Writer, noColor bool, width int) *Renderer {
	if width <= 0 {
		width = DefaultWidth
	}
	lg := lipgloss.NewRenderer(out)
	if noColor {
		lg.SetColorProfile(termenv.Ascii)
	}
	return &Renderer{
		out:     out,
		width:   width,
		header:  lg.NewStyle().Bold(true).Padding(0, 1),
		cell:    lg.NewStyle().Padding(0, 1),
		ok:      lg.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#73F59F")),
		failed:  lg.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#FF8787")),
		subtle:  lg.NewStyle().Foreground(lipgloss.Color("#696969")),
		border:  lg.NewStyle().Foreground(lipgloss.Color("#696969")),
		heading: lg.NewStyle().Bold(true),
	}
}

// Width returns the wrap width.
func (r *Renderer) Width() int { return r.width }

func (r *Renderer) newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.border).
		Headers(headers...)
}

// statusStyle colors a status column by the row's outcome.
func (r *Renderer) statusStyle(ok bool) lipgloss.Style {
	if ok {
		return r.ok
	}
	return r.failed
}

// RenderReport draws the batch summary, one row per table, then the full
// text of every failure wrapped to the renderer width.
func (r *Renderer) RenderReport(rep ReportDTO) error {
	summary := fmt.Sprintf("%s  %s  format=%s  state=%s  %d/%d ok  %.2fms",
		r.heading.Render("Load "+shortID(rep.SessionID)),
		rep.Dir, rep.Format, rep.State,
		rep.Total-rep.Failed, rep.Total, rep.DurationMs)
	if _, err := fmt.Fprintln(r.out, summary); err != nil {
		return err
	}

	errCell := max(r.width/3, minErrorCell)
	rows := make([][]string, 0, len(rep.Tables))
	oks := make([]bool, 0, len(rep.Tables))
	for _, t := range rep.Tables {
		rows = append(rows, []string{
			t.Name,
			status(t.OK, t.Kind),
			formatMs(t.DurationMs),
			t.Path,
			ansi.Truncate(firstLine(t.Error), errCell, "…"),
		})
		oks = append(oks, t.OK)
	}

	tbl := r.newTable("TABLE", "STATUS", "DURATION", "PATH", "ERROR").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.header
			}
			if col == 1 && row >= 0 && row < len(oks) {
				return r.statusStyle(oks[row])
			}
			return r.cell
		})
	if _, err := fmt.Fprintln(r.out, tbl.Render()); err != nil {
		return err
	}

	if rep.Failed == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(r.out, r.heading.Render("Errors")); err != nil {
		return err
	}
	for _, t := range rep.Tables {
		if t.OK {
			continue
		}
		wrapped := wordwrap.String(t.Error, r.width-4)
		line := "  " + r.failed.UnsetPadding().Render(t.Name) + "\n" + indent(wrapped, "    ")
		if _, err := fmt.Fprintln(r.out, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderRegistrations draws the registry listing.
func (r *Renderer) RenderRegistrations(regs []RegistrationDTO) error {
	rows := make([][]string, 0, len(regs))
	for _, reg := range regs {
		rows = append(rows, []string{reg.Name, reg.Payload, reg.Path})
	}
	tbl := r.newTable("TABLE", "PAYLOAD", "PATH").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.header
			}
			return r.cell
		})
	_, err := fmt.Fprintln(r.out, tbl.Render())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(r.out, r.subtle.Render(strconv.Itoa(len(regs))+" tables registered"))
	return err
}

// RenderSessions draws journal history, newest first.
func (r *Renderer) RenderSessions(sessions []SessionDTO) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(r.out, r.subtle.Render("No load sessions recorded"))
		return err
	}
	rows := make([][]string, 0, len(sessions))
	oks := make([]bool, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			shortID(s.ID),
			s.StartedAt.Local().Format(timeLayout),
			s.State,
			fmt.Sprintf("%d/%d", s.Total-s.Failed, s.Total),
			formatMs(s.DurationMs),
			s.Format,
			s.Dir,
		})
		oks = append(oks, s.Failed == 0)
	}
	tbl := r.newTable("SESSION", "STARTED", "STATE", "OK", "DURATION", "FORMAT", "DIR").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.header
			}
			if col == 2 && row >= 0 && row < len(oks) {
				return r.statusStyle(oks[row])
			}
			return r.cell
		})
	_, err := fmt.Fprintln(r.out, tbl.Render())
	return err
}

func status(ok bool, kind string) string {
	if ok {
		return "ok"
	}
	if kind == "" {
		return "failed"
	}
	return kind
}

func formatMs(ms float64) string {
	return strconv.FormatFloat(ms, 'f', 2, 64) + "ms"
}

// shortID keeps the first uuid group.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
