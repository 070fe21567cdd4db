package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/zjrosen/confhub/internal/hub"
	"github.com/zjrosen/confhub/internal/log"
	"github.com/zjrosen/confhub/internal/presentation"
	"github.com/zjrosen/confhub/internal/pubsub"
	"github.com/zjrosen/confhub/internal/watcher"
)

var watchOutput string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Load tables and reload them whenever their files change",
	Long: `Load every registered table, then watch the table directory, patch
directories and pinned table files, and reload the whole hub when one of
them is written, created, renamed or removed.

Bursts of file events are debounced (watch.debounce) and reloads are
rate limited to one per watch.min_interval. Each reload replaces the
loaded tables in one step and prints a fresh report.

Press Ctrl+C to stop.`,
	RunE: runWatch,
}

func init() {
	addOutputFlag(watchCmd, &watchOutput)
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := validateOutput(watchOutput); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	broker := pubsub.NewBroker[hub.LoadEvent]()
	l, err := newLoader(cfg, broker)
	if err != nil {
		return err
	}
	defer func() { _ = l.Close() }()

	out := cmd.OutOrStdout()
	printReport := func() {
		if report, ok := l.hub.Report(); ok {
			if err := writeReport(out, watchOutput, presentation.FromReport(report)); err != nil {
				log.ErrorErr(log.CatWatcher, "Failed to print report", err)
			}
		}
	}

	// Failures are reported, not fatal: the hub still serves the batch.
	_ = l.load(ctx, cfg.Dir, cfg.Timeout)
	printReport()

	wcfg := watcher.DefaultConfig(cfg.Dir)
	wcfg.Dirs = watchDirs(cfg.WatchDirs())
	wcfg.Tables = registry.Names()
	wcfg.Files = cfg.PinnedFiles()
	if cfg.Watch.Debounce > 0 {
		wcfg.Debounce = cfg.Watch.Debounce
	}
	w, err := watcher.New(wcfg)
	if err != nil {
		return err
	}
	changes, err := w.Start()
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	limit := rate.Inf
	if cfg.Watch.MinInterval > 0 {
		limit = rate.Every(cfg.Watch.MinInterval)
	}
	limiter := rate.NewLimiter(limit, 1)

	log.Info(log.CatWatcher, "Watching for table changes", "dirs", wcfg.Dirs)

	g, gctx := errgroup.WithContext(ctx)
	// The reload loop owns the lifetime of the helpers below.
	gctx, cancel := context.WithCancel(gctx)
	defer cancel()

	events := broker.Subscribe(gctx, pubsub.TableFailed)

	g.Go(func() error {
		for ev := range events {
			log.Warn(log.CatWatcher, "Table failed", "session", ev.Payload.SessionID,
				"table", ev.Payload.Table, "path", ev.Payload.Path, "error", ev.Payload.Err)
		}
		return nil
	})

	if cfg.MutableCheck.Enabled {
		g.Go(func() error {
			err := l.hub.RunMutableCheck(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		defer cancel()
		for {
			select {
			case <-gctx.Done():
				return nil
			case change, ok := <-changes:
				if !ok {
					return nil
				}
				if err := limiter.Wait(gctx); err != nil {
					return nil
				}
				log.Info(log.CatWatcher, "Reloading tables", "files", change.Files)
				_ = l.reload(gctx, cfg.Timeout)
				printReport()
			}
		}
	})

	return g.Wait()
}

// watchDirs keeps the table directory and every other directory that
// exists. Missing patch or override directories are skipped with a warning.
func watchDirs(dirs []string) []string {
	kept := dirs[:1]
	for _, d := range dirs[1:] {
		if info, err := os.Stat(d); err != nil || !info.IsDir() {
			log.Warn(log.CatWatcher, "Not watching missing directory", "dir", d)
			continue
		}
		kept = append(kept, d)
	}
	return kept
}
