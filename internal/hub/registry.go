// Package hub loads a directory of registered tables as one unit and
// serves them by name or by type.
package hub

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/zjrosen/confhub/internal/log"
)

// ErrInvalidRegistration is returned for an empty name or nil constructor.
var ErrInvalidRegistration = errors.New("invalid table registration")

// Constructor returns a fresh table with default data.
type Constructor func() Messager

// Registry maps table names to constructors. It holds factories only,
// never loaded data. Populate it once at startup before building hubs.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// Register adds ctor under name. Registering a name again replaces the
// earlier constructor: the last registration wins.
func (r *Registry) Register(name string, ctor Constructor) error {
	if name == "" || ctor == nil {
		return fmt.Errorf("%w: name=%q", ErrInvalidRegistration, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ctors[name]; exists {
		log.Debug(log.CatRegistry, "replacing table constructor", "table", name)
	}
	r.ctors[name] = ctor
	return nil
}

// Constructors returns a snapshot of the registered constructors.
func (r *Registry) Constructors() map[string]Constructor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.ctors)
}

// Lookup returns the constructor for name.
func (r *Registry) Lookup(name string) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctor, ok := r.ctors[name]
	return ctor, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.ctors))
}

// Len returns the number of registered tables.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ctors)
}

// Descriptor ties a concrete table type to its registry name.
type Descriptor[T Messager] struct {
	Name string
	New  func() T
}

// Register adds d to r.
func Register[T Messager](r *Registry, d Descriptor[T]) error {
	if d.New == nil {
		return fmt.Errorf("%w: name=%q", ErrInvalidRegistration, d.Name)
	}
	return r.Register(d.Name, func() Messager { return d.New() })
}
