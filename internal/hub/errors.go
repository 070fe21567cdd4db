package hub

import (
	"errors"
	"fmt"
	"maps"
	"runtime/debug"
	"slices"
	"strings"

	"github.com/zjrosen/confhub/internal/log"
)

// ErrNotLoaded is returned by operations that need a completed Load.
var ErrNotLoaded = errors.New("hub has not loaded")

// Stage names the post-load hook that failed.
type Stage string

const (
	StageAfterLoad    Stage = "after_load"
	StageAfterLoadAll Stage = "after_load_all"
)

// HookError records a failed post-load hook. Data already decoded is kept.
type HookError struct {
	Name  string
	Stage Stage
	Err   error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s: %s hook: %v", e.Name, e.Stage, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

// LoadErrors aggregates the per-table failures of one Load call.
type LoadErrors struct {
	Total  int              // tables attempted
	Tables map[string]error // failures by table name
}

func (e *LoadErrors) Error() string {
	names := e.Names()
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, e.Tables[name].Error())
	}
	return fmt.Sprintf("%d of %d tables failed: %s", len(names), e.Total, strings.Join(parts, "; "))
}

// Unwrap exposes each table error in name order to errors.Is and errors.As.
func (e *LoadErrors) Unwrap() []error {
	names := e.Names()
	errs := make([]error, 0, len(names))
	for _, name := range names {
		errs = append(errs, e.Tables[name])
	}
	return errs
}

// Names returns the failed table names in sorted order.
func (e *LoadErrors) Names() []string {
	return slices.Sorted(maps.Keys(e.Tables))
}

// Get returns the failure recorded for name, or nil.
func (e *LoadErrors) Get(name string) error {
	if e == nil {
		return nil
	}
	return e.Tables[name]
}

// PanicError is a panic recovered from a table's Load or hook. It is
// reported as that table's failure.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// guard runs fn, turning a panic into a *PanicError.
func guard(name string, stage string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			log.Error(log.CatHub, "table panic recovered",
				"table", name,
				"stage", stage,
				"panic", r,
				"stack", string(stack))
			err = &PanicError{Value: r, Stack: stack}
		}
	}()
	return fn()
}
