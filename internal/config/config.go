// Package config provides configuration types and defaults for confhub.
package config

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/zjrosen/confhub/internal/format"
	"github.com/zjrosen/confhub/internal/hub"
	"github.com/zjrosen/confhub/internal/load"
	"github.com/zjrosen/confhub/internal/log"
	"github.com/zjrosen/confhub/internal/tracing"
)

// Config holds all configuration options for confhub.
type Config struct {
	Dir                 string                 `mapstructure:"dir"`
	Format              string                 `mapstructure:"format"`      // "json" (default) or "binary"
	Concurrency         int                    `mapstructure:"concurrency"` // 0 = GOMAXPROCS, 1 = sequential
	Timeout             time.Duration          `mapstructure:"timeout"`     // 0 = no deadline
	IgnoreUnknownFields bool                   `mapstructure:"ignore_unknown_fields"`
	Only                []string               `mapstructure:"only"`    // load only these tables
	Exclude             []string               `mapstructure:"exclude"` // never load these tables
	Tables              map[string]TableConfig `mapstructure:"tables"`
	PatchDirs           []string               `mapstructure:"patch_dirs"` // searched in order for <Table><ext> patches
	Mode                string                 `mapstructure:"mode"`       // all (default), only_main, only_patch
	Log                 LogConfig              `mapstructure:"log"`
	Cache               CacheConfig            `mapstructure:"cache"`
	Watch               WatchConfig            `mapstructure:"watch"`
	MutableCheck        MutableCheckConfig     `mapstructure:"mutable_check"`
	Journal             JournalConfig          `mapstructure:"journal"`
	Tracing             TracingConfig          `mapstructure:"tracing"`
}

// TableConfig overrides load options for one table.
type TableConfig struct {
	Path                string   `mapstructure:"path"`
	IgnoreUnknownFields *bool    `mapstructure:"ignore_unknown_fields"`
	PatchPaths          []string `mapstructure:"patch_paths"` // used instead of patch_dirs
	Patch               string   `mapstructure:"patch"`       // merge (default) or replace
}

// LogConfig controls the log sink.
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info (default), warn, error
	File  string `mapstructure:"file"`  // empty = stderr
}

// CacheConfig controls the read-through cache in front of table files.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// WatchConfig tunes hot reload.
type WatchConfig struct {
	Debounce    time.Duration `mapstructure:"debounce"`     // quiet period after the last change
	MinInterval time.Duration `mapstructure:"min_interval"` // minimum time between reloads
}

// MutableCheckConfig controls detection of in-place edits to loaded data.
type MutableCheckConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// JournalConfig controls load history persistence.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// TracingConfig holds distributed tracing settings.
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	Exporter     string  `mapstructure:"exporter"` // none, file, stdout, otlp
	FilePath     string  `mapstructure:"file_path"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

// ToTracing converts to the tracing package's config.
func (t TracingConfig) ToTracing() tracing.Config {
	cfg := tracing.DefaultConfig()
	cfg.Enabled = t.Enabled
	if t.Exporter != "" {
		cfg.Exporter = t.Exporter
	}
	cfg.FilePath = t.FilePath
	if cfg.FilePath == "" {
		cfg.FilePath = DefaultTracesFilePath()
	}
	if t.OTLPEndpoint != "" {
		cfg.OTLPEndpoint = t.OTLPEndpoint
	}
	if t.SampleRate > 0 {
		cfg.SampleRate = t.SampleRate
	}
	return cfg
}

// DefaultTracesFilePath returns ~/.config/confhub/traces/traces.jsonl, or
// empty if the home directory is unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "confhub", "traces", "traces.jsonl")
}

// DefaultJournalPath returns ~/.config/confhub/journal.db, or empty if the
// home directory is unavailable.
func DefaultJournalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "confhub", "journal.db")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Dir:    ".",
		Format: "json",
		Log:    LogConfig{Level: "info"},
		Cache: CacheConfig{
			Enabled: false,
			TTL:     5 * time.Minute,
		},
		Watch: WatchConfig{
			Debounce:    200 * time.Millisecond,
			MinInterval: time.Second,
		},
		MutableCheck: MutableCheckConfig{
			Enabled:  false,
			Interval: time.Minute,
		},
		Journal: JournalConfig{
			Enabled: false,
			Path:    DefaultJournalPath(),
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
	}
}

// ParsedFormat returns the configured table format.
func (c Config) ParsedFormat() (format.Format, error) {
	if c.Format == "" {
		return format.JSON, nil
	}
	f, err := format.Parse(c.Format)
	if err != nil {
		return format.Unknown, err
	}
	if !f.Loadable() {
		return format.Unknown, fmt.Errorf("format %q cannot be loaded", c.Format)
	}
	return f, nil
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if _, err := c.ParsedFormat(); err != nil {
		return fmt.Errorf("format: %w", err)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must be >= 0, got %d", c.Concurrency)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %s", c.Timeout)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Cache.Enabled && c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must be >= 0, got %s", c.Cache.TTL)
	}
	for _, name := range c.Only {
		if slices.Contains(c.Exclude, name) {
			return fmt.Errorf("table %q is both in only and exclude", name)
		}
	}
	if _, err := load.ParseMode(c.Mode); err != nil {
		return fmt.Errorf("mode: %w", err)
	}
	for name, t := range c.Tables {
		if t.Path != "" && format.ResolveFormat(t.Path) == format.Unknown {
			return fmt.Errorf("tables.%s.path: unrecognized extension %q", name, filepath.Ext(t.Path))
		}
		for _, p := range t.PatchPaths {
			if format.ResolveFormat(p) == format.Unknown {
				return fmt.Errorf("tables.%s.patch_paths: unrecognized extension %q", name, filepath.Ext(p))
			}
		}
		if _, err := load.ParsePatch(t.Patch); err != nil {
			return fmt.Errorf("tables.%s.patch: %w", name, err)
		}
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal.path is required when journal is enabled")
	}
	return ValidateTracing(c.Tracing)
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tracing TracingConfig) error {
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}
	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}
	if tracing.Enabled && tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
		return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
	}
	return nil
}

// WatchDirs returns the directories holding table and patch files: the
// table directory, patch directories, and the parent of every per-table
// path and patch path, without duplicates.
func (c Config) WatchDirs() []string {
	dirs := []string{c.Dir}
	dirs = append(dirs, c.PatchDirs...)
	for _, name := range slices.Sorted(maps.Keys(c.Tables)) {
		t := c.Tables[name]
		if t.Path != "" {
			dirs = append(dirs, filepath.Dir(t.Path))
		}
		for _, p := range t.PatchPaths {
			dirs = append(dirs, filepath.Dir(p))
		}
	}
	seen := make(map[string]bool, len(dirs))
	out := dirs[:0]
	for _, d := range dirs {
		key := filepath.Clean(d)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}

// PinnedFiles returns every per-table path and patch path.
func (c Config) PinnedFiles() []string {
	var files []string
	for _, name := range slices.Sorted(maps.Keys(c.Tables)) {
		t := c.Tables[name]
		if t.Path != "" {
			files = append(files, t.Path)
		}
		files = append(files, t.PatchPaths...)
	}
	return files
}

// Filter returns the table filter implied by only/exclude, or nil to
// accept every table.
func (c Config) Filter() hub.Filter {
	if len(c.Only) == 0 && len(c.Exclude) == 0 {
		return nil
	}
	only := slices.Clone(c.Only)
	exclude := slices.Clone(c.Exclude)
	return func(name string) bool {
		if len(only) > 0 && !slices.Contains(only, name) {
			return false
		}
		return !slices.Contains(exclude, name)
	}
}

// LoadOptions converts the global and per-table settings to load options.
// Config keys are case-insensitive, so table overrides are matched against
// names without regard to case. Call Validate first; invalid mode and patch
// strings fall back to their defaults here.
func (c Config) LoadOptions(names []string) []load.Option {
	mode, _ := load.ParseMode(c.Mode)
	opts := []load.Option{load.IgnoreUnknownFields(c.IgnoreUnknownFields), load.WithMode(mode)}
	if len(c.PatchDirs) > 0 {
		opts = append(opts, load.PatchDirs(c.PatchDirs...))
	}
	for key, t := range c.Tables {
		name := key
		for _, n := range names {
			if strings.EqualFold(n, key) {
				name = n
				break
			}
		}
		patch, _ := load.ParsePatch(t.Patch)
		opts = append(opts, load.WithMessagerOptions(name, &load.MessagerOptions{
			BaseOptions: load.BaseOptions{IgnoreUnknownFields: t.IgnoreUnknownFields},
			Path:        t.Path,
			PatchPaths:  t.PatchPaths,
			Patch:       patch,
		}))
	}
	return opts
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# confhub configuration

# Directory holding one file per table: <TableName>.json or <TableName>.binpb
dir: .

# Table file format: json (default) or binary
format: json

# Tables loaded in parallel (0 = number of CPUs, 1 = one at a time)
concurrency: 0

# Deadline for one load batch (0 = none)
# timeout: 30s

# Skip unrecognized JSON fields instead of failing the table
ignore_unknown_fields: false

# Restrict which tables are loaded
# only: [HeroConf, ItemConf]
# exclude: [TaskConf]

# Directories searched, in order, for <TableName><ext> patch files
# patch_dirs: [./patches]

# Which files to load when patches exist: all (default), only_main, only_patch
# mode: all

# Per-table overrides. A path's own extension decides its format.
# tables:
#   HeroConf:
#     path: ./overrides/HeroConf.json
#     ignore_unknown_fields: true
#     patch_paths: [./hotfix/HeroConf.json]   # instead of patch_dirs
#     patch: merge                            # merge (default) or replace

log:
  level: info   # debug, info, warn, error
  # file: /tmp/confhub.log

# Cache table bytes between reloads (keyed by path, size and mtime)
cache:
  enabled: false
  ttl: 5m

# Hot reload settings for 'confhub watch'
watch:
  debounce: 200ms
  min_interval: 1s

# Report tables whose loaded data is modified in place
mutable_check:
  enabled: false
  interval: 1m

# Record every load batch in a SQLite journal ('confhub history')
journal:
  enabled: false
  # path: ~/.config/confhub/journal.db

# Distributed tracing
# tracing:
#   enabled: false
#   exporter: file                 # none, file, stdout, otlp
#   file_path: ~/.config/confhub/traces/traces.jsonl
#   otlp_endpoint: localhost:4317
#   sample_rate: 1.0
`
}

// WriteDefaultConfig creates a config file at the given path with default
// settings and comments. Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
