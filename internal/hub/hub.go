package hub

import (
	"context"
	"errors"
	"maps"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/zjrosen/confhub/internal/format"
	"github.com/zjrosen/confhub/internal/load"
	"github.com/zjrosen/confhub/internal/log"
	"github.com/zjrosen/confhub/internal/pubsub"
	"github.com/zjrosen/confhub/internal/tracing"
)

const tracerName = "github.com/zjrosen/confhub/internal/hub"

// Filter reports whether a table takes part in the hub.
type Filter func(name string) bool

// Option configures a Hub.
type Option func(*Hub)

// WithFilter restricts the hub to tables accepted by f. Rejected tables
// are never constructed.
func WithFilter(f Filter) Option {
	return func(h *Hub) {
		h.filter = f
	}
}

// WithLoadOptions sets default load options. Options passed to Load are
// applied after these.
func WithLoadOptions(opts ...load.Option) Option {
	return func(h *Hub) {
		h.defaults = append(h.defaults, opts...)
	}
}

// WithConcurrency bounds how many tables load at once. 1 loads
// sequentially; n <= 0 uses GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(h *Hub) {
		h.concurrency = n
	}
}

// WithTracer sets the tracer used for load spans.
func WithTracer(t trace.Tracer) Option {
	return func(h *Hub) {
		h.tracer = t
	}
}

// WithBroker publishes load events to b.
func WithBroker(b *pubsub.Broker[LoadEvent]) Option {
	return func(h *Hub) {
		h.broker = b
	}
}

// snapshot is everything one Load call produces. It is immutable once
// published.
type snapshot struct {
	messagers map[string]Messager
	errs      *LoadErrors
	report    Report
	originals map[string][]byte // canonical JSON after load, for mutation checks
}

type loadArgs struct {
	dir  string
	fmt  format.Format
	opts []load.Option
}

// Hub owns one live instance per registered table.
type Hub struct {
	reg         *Registry
	filter      Filter
	defaults    []load.Option
	concurrency int
	tracer      trace.Tracer
	broker      *pubsub.Broker[LoadEvent]
	mutable     *mutableCheck

	loadMu sync.Mutex // serializes Load
	last   *loadArgs  // guarded by loadMu

	state   atomic.Int32
	current atomic.Pointer[snapshot]
}

// New creates a hub over reg. It loads nothing until Load is called.
func New(reg *Registry, opts ...Option) *Hub {
	h := &Hub{reg: reg}
	for _, opt := range opts {
		opt(h)
	}
	if h.concurrency <= 0 {
		h.concurrency = runtime.GOMAXPROCS(0)
	}
	if h.tracer == nil {
		h.tracer = otel.Tracer(tracerName)
	}
	return h
}

// Load builds fresh tables for every accepted registry entry, loads each
// from dir, runs the post-load hooks and then replaces the hub's tables.
//
// A failing table does not stop the others. It keeps default data and is
// still served by the getters. The returned error is a *LoadErrors when
// any table failed, nil otherwise.
func (h *Hub) Load(ctx context.Context, dir string, f format.Format, opts ...load.Option) error {
	h.loadMu.Lock()
	defer h.loadMu.Unlock()

	h.last = &loadArgs{dir: dir, fmt: f, opts: slices.Clone(opts)}
	return h.load(ctx, dir, f, opts)
}

// Reload repeats the most recent Load call.
func (h *Hub) Reload(ctx context.Context) error {
	h.loadMu.Lock()
	defer h.loadMu.Unlock()

	if h.last == nil {
		return ErrNotLoaded
	}
	return h.load(ctx, h.last.dir, h.last.fmt, h.last.opts)
}

func (h *Hub) load(ctx context.Context, dir string, f format.Format, opts []load.Option) error {
	sessionID := uuid.NewString()
	ctx, span := h.tracer.Start(ctx, tracing.SpanLoad, trace.WithAttributes(
		attribute.String(tracing.AttrSessionID, sessionID),
		attribute.String(tracing.AttrDir, dir),
		attribute.String(tracing.AttrFormat, f.String()),
	))
	defer span.End()

	h.state.Store(int32(StateLoading))
	start := time.Now()
	options := load.ParseOptions(append(slices.Clone(h.defaults), opts...)...)

	names, instances := h.instantiate()
	results := make([]TableReport, len(names))

	var g errgroup.Group
	g.SetLimit(h.concurrency)
	for i, name := range names {
		g.Go(func() error {
			results[i] = h.loadTable(ctx, sessionID, name, instances[i], dir, f, options)
			return nil
		})
	}
	_ = g.Wait()

	// Every table has finished its own load; siblings may now be read.
	messagers := make(map[string]Messager, len(names))
	for i, name := range names {
		messagers[name] = instances[i]
	}
	h.runAfterLoadAll(ctx, names, messagers, results)

	report := Report{
		SessionID: sessionID,
		Dir:       dir,
		Format:    f,
		StartedAt: start,
		Duration:  time.Since(start),
		Tables:    results,
	}
	snap := &snapshot{messagers: messagers, report: report}
	if failed := report.Failed(); failed > 0 {
		snap.errs = &LoadErrors{Total: len(names), Tables: make(map[string]error, failed)}
		for _, tr := range results {
			if tr.Err != nil {
				snap.errs.Tables[tr.Name] = tr.Err
			}
		}
		snap.report.State = StateFailed
	} else {
		snap.report.State = StateReady
	}
	if h.mutable != nil {
		snap.originals = canonicalize(messagers)
	}

	h.current.Store(snap)
	h.state.Store(int32(snap.report.State))
	h.publishBatch(&snap.report)

	span.SetAttributes(
		attribute.Int(tracing.AttrTables, len(names)),
		attribute.Int(tracing.AttrFailed, report.Failed()),
	)
	if snap.errs != nil {
		span.SetStatus(codes.Error, "one or more tables failed")
		log.Warn(log.CatHub, "load finished with failures", "session", sessionID, "dir", dir,
			"tables", len(names), "failed", report.Failed(), "duration", snap.report.Duration)
		return snap.errs
	}
	log.Info(log.CatHub, "load finished", "session", sessionID, "dir", dir,
		"tables", len(names), "duration", snap.report.Duration)
	return nil
}

// instantiate constructs the accepted tables in name order.
func (h *Hub) instantiate() ([]string, []Messager) {
	ctors := h.reg.Constructors()
	names := make([]string, 0, len(ctors))
	for _, name := range slices.Sorted(maps.Keys(ctors)) {
		if h.filter == nil || h.filter(name) {
			names = append(names, name)
		}
	}
	instances := make([]Messager, len(names))
	for i, name := range names {
		m := ctors[name]()
		if m.Name() != name {
			log.Warn(log.CatRegistry, "table name differs from registry key", "key", name, "name", m.Name())
		}
		instances[i] = m
	}
	return names, instances
}

func (h *Hub) loadTable(ctx context.Context, sessionID, name string, m Messager, dir string, f format.Format, options *load.Options) TableReport {
	_, span := h.tracer.Start(ctx, tracing.SpanLoadTable, trace.WithAttributes(attribute.String(tracing.AttrTable, name)))
	defer span.End()

	var err error
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = &load.Error{Kind: load.KindIllegalParam, Name: name, Err: ctxErr}
	} else {
		err = runTable(name, m, dir, f, options.ParseMessagerOptionsByName(name))
	}

	stats := m.Stats()
	tr := TableReport{Name: name, Path: stats.Path, Duration: stats.Duration, Err: err}
	span.SetAttributes(attribute.String(tracing.AttrPath, stats.Path))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	h.publishTable(sessionID, tr)
	return tr
}

// runTable loads one table and runs its own hook. A panic in either is
// returned as the table's error.
func runTable(name string, m Messager, dir string, f format.Format, opts *load.MessagerOptions) error {
	if err := guard(name, "load", func() error { return m.Load(dir, f, opts) }); err != nil {
		var pe *PanicError
		if errors.As(err, &pe) {
			return &load.Error{Kind: load.KindParse, Name: name, Path: load.Path(name, dir, f, opts), Err: pe}
		}
		return err
	}
	al, ok := m.(AfterLoader)
	if !ok {
		return nil
	}
	if err := guard(name, string(StageAfterLoad), al.ProcessAfterLoad); err != nil {
		return &HookError{Name: name, Stage: StageAfterLoad, Err: err}
	}
	return nil
}

// runAfterLoadAll invokes every table's cross-table hook in name order
// against a view of the new tables. Tables that failed their own load
// still run so they can observe siblings.
func (h *Hub) runAfterLoadAll(ctx context.Context, names []string, messagers map[string]Messager, results []TableReport) {
	view := &Hub{reg: h.reg, filter: h.filter, tracer: h.tracer}
	view.current.Store(&snapshot{messagers: messagers})
	view.state.Store(int32(StateLoading))

	for i, name := range names {
		hook, ok := messagers[name].(AfterLoadAller)
		if !ok {
			continue
		}
		_, span := h.tracer.Start(ctx, tracing.SpanAfterLoadAll, trace.WithAttributes(attribute.String(tracing.AttrTable, name)))
		err := guard(name, string(StageAfterLoadAll), func() error { return hook.ProcessAfterLoadAll(view) })
		if err != nil {
			hookErr := &HookError{Name: name, Stage: StageAfterLoadAll, Err: err}
			span.RecordError(hookErr)
			span.SetStatus(codes.Error, hookErr.Error())
			log.Warn(log.CatHub, "cross-table hook failed", "table", name, "error", err)
			results[i].Err = errors.Join(results[i].Err, hookErr)
		}
		span.End()
	}
}

// GetMessager returns the table called name. It reports false if the name
// is unregistered, filtered out, or the hub has not loaded.
func (h *Hub) GetMessager(name string) (Messager, bool) {
	snap := h.current.Load()
	if snap == nil {
		return nil, false
	}
	m, ok := snap.messagers[name]
	return m, ok
}

// GetAs returns the table called name as T. It reports false, rather than
// panicking, if the stored table is not a T.
func GetAs[T Messager](h *Hub, name string) (T, bool) {
	m, ok := h.GetMessager(name)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := m.(T)
	return t, ok
}

// Get returns the table described by d.
func Get[T Messager](h *Hub, d Descriptor[T]) (T, bool) {
	return GetAs[T](h, d.Name)
}

// Messagers returns the loaded tables keyed by name.
func (h *Hub) Messagers() map[string]Messager {
	snap := h.current.Load()
	if snap == nil {
		return nil
	}
	return maps.Clone(snap.messagers)
}

// Names returns the loaded table names in sorted order.
func (h *Hub) Names() []string {
	snap := h.current.Load()
	if snap == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(snap.messagers))
}

// State returns the lifecycle state.
func (h *Hub) State() State { return State(h.state.Load()) }

// Errors returns the failures of the last Load, or nil.
func (h *Hub) Errors() error {
	snap := h.current.Load()
	if snap == nil || snap.errs == nil {
		return nil
	}
	return snap.errs
}

// LastLoadedTime returns when the tables were last replaced, or zero.
func (h *Hub) LastLoadedTime() time.Time {
	snap := h.current.Load()
	if snap == nil {
		return time.Time{}
	}
	return snap.report.StartedAt.Add(snap.report.Duration)
}

// Report describes the last Load. ok is false before the first Load.
func (h *Hub) Report() (r Report, ok bool) {
	snap := h.current.Load()
	if snap == nil {
		return Report{}, false
	}
	return snap.report, true
}

// Store writes every loaded table accepted by filter to dir in format f
// and returns the written paths. A nil filter accepts all tables.
func (h *Hub) Store(dir string, f format.Format, filter Filter) ([]string, error) {
	snap := h.current.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	var (
		paths []string
		errs  []error
	)
	for _, name := range slices.Sorted(maps.Keys(snap.messagers)) {
		if filter != nil && !filter(name) {
			continue
		}
		path, err := load.StoreMessage(snap.messagers[name].Message(), name, dir, f)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		paths = append(paths, path)
	}
	return paths, errors.Join(errs...)
}
