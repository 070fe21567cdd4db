package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/confhub/internal/journal"
	"github.com/zjrosen/confhub/internal/presentation"
)

var (
	historyLimit  int
	historyOutput string
	historyPrune  int
)

var historyCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "Show recorded load sessions",
	Long: `Show load sessions recorded in the journal (journal.enabled must be set
for loads to be recorded).

Without arguments, list the most recent sessions. With a session ID, show
that session's per-table outcome.

Examples:
  # Last 20 sessions
  confhub history

  # One session as Markdown
  confhub history 3f2a9c1e-... -o markdown

  # Keep only the newest 100 sessions
  confhub history --prune 100`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateOutput(historyOutput); err != nil {
			return err
		}
		if cfg.Journal.Path == "" {
			return errors.New("journal.path is not set")
		}

		db, err := journal.NewDB(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		j := db.Journal()
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if cmd.Flags().Changed("prune") {
			n, err := j.Prune(ctx, historyPrune)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "removed %d sessions\n", n)
			return err
		}

		if len(args) == 1 {
			s, err := j.Session(ctx, args[0])
			if err != nil {
				return err
			}
			rows, err := j.Tables(ctx, s.ID)
			if err != nil {
				return err
			}
			return writeReport(out, historyOutput, presentation.FromJournal(s, rows))
		}

		sessions, err := j.Recent(ctx, historyLimit)
		if err != nil {
			return err
		}
		dtos := presentation.FromSessions(sessions)
		if historyOutput == outputJSON {
			return presentation.NewFormatter(out).FormatSessions(dtos)
		}
		return presentation.NewRenderer(out, colorless(out), presentation.DefaultWidth).RenderSessions(dtos)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of sessions to list (0 = all)")
	historyCmd.Flags().IntVar(&historyPrune, "prune", 0, "delete all but the newest N sessions")
	addOutputFlag(historyCmd, &historyOutput)
	rootCmd.AddCommand(historyCmd)
}
