package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/zjrosen/confhub/internal/cachemanager"
	"github.com/zjrosen/confhub/internal/config"
	"github.com/zjrosen/confhub/internal/format"
	"github.com/zjrosen/confhub/internal/hub"
	"github.com/zjrosen/confhub/internal/journal"
	"github.com/zjrosen/confhub/internal/load"
	"github.com/zjrosen/confhub/internal/log"
	"github.com/zjrosen/confhub/internal/pubsub"
)

// loader bundles a hub with the optional services the config enables.
type loader struct {
	hub     *hub.Hub
	format  format.Format
	options []load.Option
	reader  *cachemanager.FileReader
	db      *journal.DB
	broker  *pubsub.Broker[hub.LoadEvent]
}

// newLoader builds a hub over the global registry from c.
func newLoader(c config.Config, broker *pubsub.Broker[hub.LoadEvent]) (*loader, error) {
	f, err := c.ParsedFormat()
	if err != nil {
		return nil, err
	}

	l := &loader{format: f, broker: broker}
	l.options = c.LoadOptions(registry.Names())

	if c.Cache.Enabled {
		cache := cachemanager.NewInMemoryCacheManager[string, []byte]("table-files", c.Cache.TTL, 2*c.Cache.TTL)
		l.reader = cachemanager.NewFileReader(cache, c.Cache.TTL)
		l.options = append(l.options, load.WithReadFunc(l.reader.Read))
	}

	hubOpts := []hub.Option{
		hub.WithFilter(c.Filter()),
		hub.WithConcurrency(c.Concurrency),
	}
	if tracerProvider != nil && tracerProvider.Enabled() {
		hubOpts = append(hubOpts, hub.WithTracer(tracerProvider.Tracer()))
	}
	if broker != nil {
		hubOpts = append(hubOpts, hub.WithBroker(broker))
	}
	if c.MutableCheck.Enabled {
		hubOpts = append(hubOpts, hub.WithMutableCheck(c.MutableCheck.Interval, nil))
	}
	l.hub = hub.New(registry, hubOpts...)

	if c.Journal.Enabled {
		db, err := journal.NewDB(c.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("opening journal: %w", err)
		}
		l.db = db
	}
	return l, nil
}

// load runs one batch from dir under the configured timeout and records it
// in the journal when enabled. The returned error is the hub's aggregate.
func (l *loader) load(ctx context.Context, dir string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	err := l.hub.Load(ctx, dir, l.format, l.options...)
	l.record(ctx)
	return err
}

// reload repeats the last batch, dropping cached file bytes first.
func (l *loader) reload(ctx context.Context, timeout time.Duration) error {
	if l.reader != nil {
		if err := l.reader.Flush(); err != nil {
			log.Warn(log.CatCache, "Cache flush failed", "error", err)
		}
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	err := l.hub.Reload(ctx)
	l.record(ctx)
	return err
}

func (l *loader) record(ctx context.Context) {
	if l.db == nil {
		return
	}
	report, ok := l.hub.Report()
	if !ok {
		return
	}
	// The batch context may already be past its deadline.
	if err := l.db.Journal().Record(context.WithoutCancel(ctx), report); err != nil {
		log.ErrorErr(log.CatJournal, "Failed to record load session", err, "session", report.SessionID)
	}
}

func (l *loader) Close() error {
	if l.broker != nil {
		l.broker.Close()
	}
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}
