// Package load resolves, reads and decodes a single table file.
package load

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/zjrosen/confhub/internal/format"
)

// ReadFunc reads the content of a table file.
type ReadFunc func(path string) ([]byte, error)

// LoadFunc fills payload from the file at path in the given format.
// It replaces the default read-then-decode behavior.
type LoadFunc func(payload any, path string, fmt format.Format, opts *MessagerOptions) error

// Mode selects which of a table's files are loaded when patches exist.
type Mode int

const (
	ModeAll       Mode = iota // main file, then patches
	ModeOnlyMain              // ignore patches
	ModeOnlyPatch             // patches only; no patch file means an empty payload
)

func (m Mode) String() string {
	switch m {
	case ModeAll:
		return "all"
	case ModeOnlyMain:
		return "only_main"
	case ModeOnlyPatch:
		return "only_patch"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a config string to a Mode. Empty means ModeAll.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "all":
		return ModeAll, nil
	case "only_main":
		return ModeOnlyMain, nil
	case "only_patch":
		return ModeOnlyPatch, nil
	default:
		return ModeAll, fmt.Errorf("unknown load mode %q", s)
	}
}

// Patch selects how patch files combine with a table's payload.
type Patch int

const (
	// PatchMerge merges every existing patch file, in order, over the main
	// payload. Set fields override, lists are appended and maps are merged
	// by key.
	PatchMerge Patch = iota
	// PatchReplace loads the last existing patch file instead of the main file.
	PatchReplace
)

func (p Patch) String() string {
	switch p {
	case PatchMerge:
		return "merge"
	case PatchReplace:
		return "replace"
	default:
		return fmt.Sprintf("Patch(%d)", int(p))
	}
}

// ParsePatch converts a config string to a Patch. Empty means PatchMerge.
func ParsePatch(s string) (Patch, error) {
	switch strings.ToLower(s) {
	case "", "merge":
		return PatchMerge, nil
	case "replace":
		return PatchReplace, nil
	default:
		return PatchMerge, fmt.Errorf("unknown patch type %q", s)
	}
}

// BaseOptions holds the knobs shared by the global and per-table layers.
// Nil fields mean "not set" so that layers can fall back to each other.
type BaseOptions struct {
	// IgnoreUnknownFields skips unrecognized JSON fields instead of failing.
	//
	// Default: false.
	IgnoreUnknownFields *bool
	// ReadFunc reads a table file's bytes.
	//
	// Default: ReadFile.
	ReadFunc ReadFunc
	// LoadFunc loads a table's payload from a path.
	//
	// Default: LoadMessageByPath.
	LoadFunc LoadFunc
	// PatchDirs are searched, in order, for <Name><ext> patch files.
	//
	// Default: none.
	PatchDirs []string
	// Mode selects main and patch files.
	//
	// Default: ModeAll.
	Mode *Mode
}

// GetPatchDirs returns the effective patch directories.
func (o *BaseOptions) GetPatchDirs() []string {
	if o == nil {
		return nil
	}
	return o.PatchDirs
}

// GetMode returns the effective load mode.
func (o *BaseOptions) GetMode() Mode {
	if o == nil || o.Mode == nil {
		return ModeAll
	}
	return *o.Mode
}

// GetIgnoreUnknownFields returns the effective value.
func (o *BaseOptions) GetIgnoreUnknownFields() bool {
	return o != nil && o.IgnoreUnknownFields != nil && *o.IgnoreUnknownFields
}

// GetReadFunc returns the effective reader.
func (o *BaseOptions) GetReadFunc() ReadFunc {
	if o == nil || o.ReadFunc == nil {
		return ReadFile
	}
	return o.ReadFunc
}

// GetLoadFunc returns the effective load function.
func (o *BaseOptions) GetLoadFunc() LoadFunc {
	if o == nil || o.LoadFunc == nil {
		return LoadMessageByPath
	}
	return o.LoadFunc
}

// MessagerOptions is the fully resolved option set for one table.
type MessagerOptions struct {
	BaseOptions
	// Path, if set, is loaded instead of <dir>/<Name><ext>. Its own
	// extension decides the format.
	Path string
	// PatchPaths, if set, are used instead of searching PatchDirs. Each
	// file's own extension decides its format; missing files are skipped.
	PatchPaths []string
	// Patch selects how patch files are applied.
	Patch Patch
}

// Options holds global options and per-table overrides keyed by table name.
type Options struct {
	BaseOptions
	MessagerOptions map[string]*MessagerOptions
}

// ParseMessagerOptionsByName merges the per-table override for name over
// the global options. Each field takes the table value if set, else the
// global value; built-in defaults apply through the getters. The result is
// a new value; neither layer is modified.
func (o *Options) ParseMessagerOptionsByName(name string) *MessagerOptions {
	merged := &MessagerOptions{}
	if o == nil {
		return merged
	}
	merged.BaseOptions = o.BaseOptions
	mo, ok := o.MessagerOptions[name]
	if !ok || mo == nil {
		return merged
	}
	if mo.IgnoreUnknownFields != nil {
		merged.IgnoreUnknownFields = mo.IgnoreUnknownFields
	}
	if mo.ReadFunc != nil {
		merged.ReadFunc = mo.ReadFunc
	}
	if mo.LoadFunc != nil {
		merged.LoadFunc = mo.LoadFunc
	}
	if len(mo.PatchDirs) > 0 {
		merged.PatchDirs = mo.PatchDirs
	}
	if mo.Mode != nil {
		merged.Mode = mo.Mode
	}
	merged.Path = mo.Path
	merged.PatchPaths = mo.PatchPaths
	merged.Patch = mo.Patch
	return merged
}

// Option is the functional option type.
type Option func(*Options)

// ParseOptions applies setters over empty Options.
func ParseOptions(setters ...Option) *Options {
	opts := &Options{}
	for _, setter := range setters {
		setter(opts)
	}
	return opts
}

// IgnoreUnknownFields sets the global ignore-unknown-fields knob.
func IgnoreUnknownFields(ignore bool) Option {
	return func(opts *Options) {
		opts.IgnoreUnknownFields = &ignore
	}
}

// WithReadFunc sets the global byte reader.
func WithReadFunc(fn ReadFunc) Option {
	return func(opts *Options) {
		opts.ReadFunc = fn
	}
}

// WithLoadFunc sets the global load function.
func WithLoadFunc(fn LoadFunc) Option {
	return func(opts *Options) {
		opts.LoadFunc = fn
	}
}

// PatchDirs sets the global patch directories.
func PatchDirs(dirs ...string) Option {
	return func(opts *Options) {
		opts.PatchDirs = slices.Clone(dirs)
	}
}

// WithMode sets the global load mode.
func WithMode(mode Mode) Option {
	return func(opts *Options) {
		opts.Mode = &mode
	}
}

// WithMessagerOptions sets the override for one table, replacing any
// previous override for that name. A nil mo removes the override.
func WithMessagerOptions(name string, mo *MessagerOptions) Option {
	return func(opts *Options) {
		next := make(map[string]*MessagerOptions, len(opts.MessagerOptions)+1)
		maps.Copy(next, opts.MessagerOptions)
		if mo == nil {
			delete(next, name)
		} else {
			cp := *mo
			next[name] = &cp
		}
		opts.MessagerOptions = next
	}
}

// WithPath points one table at an explicit file, keeping its other overrides.
func WithPath(name, path string) Option {
	return func(opts *Options) {
		mo := MessagerOptions{}
		if existing := opts.MessagerOptions[name]; existing != nil {
			mo = *existing
		}
		mo.Path = path
		WithMessagerOptions(name, &mo)(opts)
	}
}

// Bool returns a pointer to b, for building BaseOptions literals.
func Bool(b bool) *bool { return &b }
