// Package watcher reports changes to table files, debounced so that a
// burst of writes produces a single notification.
package watcher

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zjrosen/confhub/internal/format"
	"github.com/zjrosen/confhub/internal/log"
)

// Change lists the table files touched during one debounce window.
type Change struct {
	Files []string // sorted, absolute or as watched
}

// Config holds watcher configuration options.
type Config struct {
	// Dirs are watched non-recursively.
	Dirs []string
	// Tables, if non-empty, limits notifications to files whose stem is a
	// listed table name.
	Tables []string
	// Files are always reported, whatever their stem. Their directories
	// must also be in Dirs.
	Files []string
	// Debounce is the quiet period after the last event.
	Debounce time.Duration
}

// DefaultConfig watches dir with a 200ms debounce.
func DefaultConfig(dir string) Config {
	return Config{
		Dirs:     []string{dir},
		Debounce: 200 * time.Millisecond,
	}
}

// Watcher monitors table directories.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	cfg       Config
	tables    map[string]bool
	files     map[string]bool
	onChange  chan Change
	done      chan struct{}
	stopOnce  sync.Once
}

// New creates a watcher. Nothing is watched until Start.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	tables := make(map[string]bool, len(cfg.Tables))
	for _, name := range cfg.Tables {
		tables[name] = true
	}
	files := make(map[string]bool, len(cfg.Files))
	for _, f := range cfg.Files {
		files[filepath.Clean(f)] = true
	}
	return &Watcher{
		fsWatcher: fsw,
		cfg:       cfg,
		tables:    tables,
		files:     files,
		onChange:  make(chan Change, 1),
		done:      make(chan struct{}),
	}, nil
}

// Start begins watching. The returned channel receives one Change per
// debounce window and is closed by Stop.
func (w *Watcher) Start() (<-chan Change, error) {
	for _, dir := range w.cfg.Dirs {
		if err := w.fsWatcher.Add(dir); err != nil {
			return nil, fmt.Errorf("watching directory %s: %w", dir, err)
		}
		log.Debug(log.CatWatcher, "watching", "dir", dir)
	}
	go w.loop()
	return w.onChange, nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fsWatcher.Close()
	})
	return err
}

func (w *Watcher) loop() {
	defer close(w.onChange)

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending = map[string]struct{}{}
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !w.isRelevantEvent(event) {
				continue
			}
			pending[event.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.cfg.Debounce)
			} else {
				timer.Reset(w.cfg.Debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			if len(pending) == 0 {
				continue
			}
			change := Change{Files: slices.Sorted(maps.Keys(pending))}
			clear(pending)
			select {
			case w.onChange <- change:
			case <-w.done:
				return
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Warn(log.CatWatcher, "watch error", "error", err)

		case <-w.done:
			return
		}
	}
}

// isRelevantEvent reports whether event touches a loadable table file.
func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	if format.ResolveFormat(base) == format.Unknown {
		return false
	}
	if w.files[filepath.Clean(event.Name)] {
		return true
	}
	if len(w.tables) == 0 {
		return true
	}
	return w.tables[base[:len(base)-len(filepath.Ext(base))]]
}
