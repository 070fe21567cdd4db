// Package log provides category-tagged leveled logging for confhub.
// Output goes through slog with a tint handler. Nothing is written until
// Init or InitWriter runs, so library callers stay silent by default.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Level represents log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) slog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel parses a level name as written in config files.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Category groups related log messages.
type Category string

const (
	CatHub      Category = "hub"      // Hub load batches and hooks
	CatLoad     Category = "load"     // Per-table resolve/read/decode
	CatRegistry Category = "registry" // Table registration
	CatConfig   Category = "config"   // Configuration loading/saving
	CatWatcher  Category = "watcher"  // File watcher events
	CatCache    Category = "cache"    // Read cache hits and evictions
	CatTrace    Category = "trace"    // Tracing provider lifecycle
	CatJournal  Category = "journal"  // Load history persistence
)

// Logger provides structured logging.
type Logger struct {
	mu      sync.Mutex
	file    *os.File
	logger  *slog.Logger
	level   *slog.LevelVar
	enabled bool
}

var (
	defaultMu     sync.RWMutex
	defaultLogger *Logger
)

// Init initializes the global logger. An empty path logs to stderr, with
// color when stderr is a terminal. Returns a cleanup function that closes
// the log file.
func Init(path string) (func(), error) {
	if path == "" {
		InitWriter(colorable.NewColorable(os.Stderr), !isatty.IsTerminal(os.Stderr.Fd()))
		return func() {}, nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // G304: path is the operator's log file
	if err != nil {
		return nil, err
	}
	l := newLogger(f, true)
	l.file = f
	setDefault(l)
	return func() { _ = f.Close() }, nil
}

// InitWriter routes logging to w. Used by tests and by Init.
func InitWriter(w io.Writer, noColor bool) {
	setDefault(newLogger(w, noColor))
}

func setDefault(l *Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

func newLogger(w io.Writer, noColor bool) *Logger {
	level := &slog.LevelVar{}
	level.Set(slog.LevelDebug)
	handler := tint.NewHandler(w, &tint.Options{
		Level:       level,
		TimeFormat:  "15:04:05.000",
		NoColor:     noColor,
		ReplaceAttr: dropZero,
	})
	return &Logger{
		logger:  slog.New(handler),
		level:   level,
		enabled: true,
	}
}

// dropZero removes attributes that carry no information.
func dropZero(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey {
		return a
	}
	skip := false
	switch v := a.Value.Any().(type) {
	case string:
		skip = v == ""
	case time.Duration:
		skip = v == 0
	case time.Time:
		skip = v.IsZero()
	case nil:
		skip = true
	}
	if skip {
		return slog.Attr{}
	}
	return a
}

// SetEnabled toggles logging on/off.
func SetEnabled(enabled bool) {
	if l := current(); l != nil {
		l.mu.Lock()
		l.enabled = enabled
		l.mu.Unlock()
	}
}

// SetMinLevel sets the minimum log level.
func SetMinLevel(level Level) {
	if l := current(); l != nil {
		l.level.Set(level.slog())
	}
}

// Debug logs at debug level.
func Debug(cat Category, msg string, fields ...any) {
	log(LevelDebug, cat, msg, fields...)
}

// Info logs at info level.
func Info(cat Category, msg string, fields ...any) {
	log(LevelInfo, cat, msg, fields...)
}

// Warn logs at warning level.
func Warn(cat Category, msg string, fields ...any) {
	log(LevelWarn, cat, msg, fields...)
}

// Error logs at error level.
func Error(cat Category, msg string, fields ...any) {
	log(LevelError, cat, msg, fields...)
}

// ErrorErr logs an error with the error value.
func ErrorErr(cat Category, msg string, err error, fields ...any) {
	if err != nil {
		fields = append(fields, "error", err.Error())
	} else {
		fields = append(fields, "error", "<nil>")
	}
	log(LevelError, cat, msg, fields...)
}

func current() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

func log(level Level, cat Category, msg string, fields ...any) {
	l := current()
	if l == nil {
		return
	}
	l.mu.Lock()
	enabled := l.enabled
	l.mu.Unlock()
	if !enabled {
		return
	}

	// Odd field counts render as !BADKEY in slog; name the orphan instead.
	if len(fields)%2 != 0 {
		fields = append(fields, "<missing>")
	}
	args := make([]any, 0, len(fields)+2)
	args = append(args, "cat", string(cat))
	args = append(args, fields...)
	l.logger.Log(context.Background(), level.slog(), msg, args...)
}
