package hub

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"pgregory.net/rapid"

	"github.com/zjrosen/confhub/internal/format"
	"github.com/zjrosen/confhub/internal/load"
	"github.com/zjrosen/confhub/internal/pubsub"
)

type fakeData struct {
	Values []string `json:"values"`
}

// fakeTable is a minimal Messager whose hooks are injectable.
type fakeTable struct {
	Base
	name      string
	data      *fakeData
	delay     time.Duration
	onLoad    func()
	afterLoad func() error
	afterAll  func(h *Hub) error
}

func (x *fakeTable) Name() string { return x.name }

func (x *fakeTable) Load(dir string, f format.Format, opts *load.MessagerOptions) error {
	time.Sleep(x.delay)
	if x.onLoad != nil {
		x.onLoad()
	}
	return Decode(&x.Base, &x.data, x.name, dir, f, opts)
}

func (x *fakeTable) Message() any { return x.data }

func (x *fakeTable) ProcessAfterLoad() error {
	if x.afterLoad == nil {
		return nil
	}
	return x.afterLoad()
}

func (x *fakeTable) ProcessAfterLoadAll(h *Hub) error {
	if x.afterAll == nil {
		return nil
	}
	return x.afterAll(h)
}

func registerFake(t *testing.T, reg *Registry, name string, configure func(*fakeTable)) {
	t.Helper()
	require.NoError(t, reg.Register(name, func() Messager {
		x := &fakeTable{name: name, data: &fakeData{}}
		if configure != nil {
			configure(x)
		}
		return x
	}))
}

func writeTable(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".json"), []byte(content), 0o644))
}

func fakeValues(t *testing.T, h *Hub, name string) []string {
	t.Helper()
	x, ok := GetAs[*fakeTable](h, name)
	require.True(t, ok, name)
	return x.data.Values
}

// TestHub_BeforeLoad verifies getters are empty before the first Load.
func TestHub_BeforeLoad(t *testing.T) {
	reg := NewRegistry()
	registerFake(t, reg, "A", nil)
	h := New(reg)

	_, ok := h.GetMessager("A")
	require.False(t, ok)
	require.Equal(t, StateIdle, h.State())
	require.True(t, h.LastLoadedTime().IsZero())
	require.Nil(t, h.Errors())
	_, ok = h.Report()
	require.False(t, ok)
	require.ErrorIs(t, h.Reload(context.Background()), ErrNotLoaded)
	_, err := h.Store(t.TempDir(), format.JSON, nil)
	require.ErrorIs(t, err, ErrNotLoaded)
}

// TestHub_IsolatesFailures verifies one missing file does not stop its siblings.
func TestHub_IsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry()
	registerFake(t, reg, "A", nil)
	registerFake(t, reg, "B", nil)
	registerFake(t, reg, "C", nil)
	writeTable(t, dir, "A", `{"values":["a"]}`)
	writeTable(t, dir, "C", `{"values":["c"]}`)

	h := New(reg)
	err := h.Load(context.Background(), dir, format.JSON)

	var loadErrs *LoadErrors
	require.ErrorAs(t, err, &loadErrs)
	require.Equal(t, []string{"B"}, loadErrs.Names())
	require.Equal(t, 3, loadErrs.Total)
	require.ErrorIs(t, loadErrs.Get("B"), load.ErrNotFound)
	require.Equal(t, StateFailed, h.State())

	require.Equal(t, []string{"a"}, fakeValues(t, h, "A"))
	require.Empty(t, fakeValues(t, h, "B"))
	require.Equal(t, []string{"c"}, fakeValues(t, h, "C"))
	require.Equal(t, err, h.Errors())
}

// TestHub_PanicsAreIsolated verifies a panic in a table's Load or hooks fails only that table.
func TestHub_PanicsAreIsolated(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry()
	registerFake(t, reg, "LoadPanics", func(x *fakeTable) {
		x.onLoad = func() { panic("decoder exploded") }
	})
	registerFake(t, reg, "HookPanics", func(x *fakeTable) {
		x.afterLoad = func() error {
			var row *fakeData
			_ = row.Values
			return nil
		}
	})
	registerFake(t, reg, "AllPanics", func(x *fakeTable) {
		x.afterAll = func(*Hub) error { panic(errors.New("cross-table")) }
	})
	registerFake(t, reg, "Healthy", nil)
	for _, name := range []string{"LoadPanics", "HookPanics", "AllPanics", "Healthy"} {
		writeTable(t, dir, name, `{"values":["v"]}`)
	}

	h := New(reg, WithConcurrency(4))
	err := h.Load(context.Background(), dir, format.JSON)

	var loadErrs *LoadErrors
	require.ErrorAs(t, err, &loadErrs)
	require.Equal(t, []string{"AllPanics", "HookPanics", "LoadPanics"}, loadErrs.Names())

	var pe *PanicError
	loadErr := loadErrs.Get("LoadPanics")
	require.ErrorIs(t, loadErr, load.ErrParse)
	require.ErrorAs(t, loadErr, &pe)
	require.Equal(t, "decoder exploded", pe.Value)
	require.NotEmpty(t, pe.Stack)
	kind, ok := load.KindOf(loadErr)
	require.True(t, ok)
	require.Equal(t, load.KindParse, kind)

	var hookErr *HookError
	require.ErrorAs(t, loadErrs.Get("HookPanics"), &hookErr)
	require.Equal(t, StageAfterLoad, hookErr.Stage)
	require.ErrorAs(t, hookErr, &pe)

	require.ErrorAs(t, loadErrs.Get("AllPanics"), &hookErr)
	require.Equal(t, StageAfterLoadAll, hookErr.Stage)
	require.ErrorAs(t, hookErr, &pe)

	require.Equal(t, []string{"v"}, fakeValues(t, h, "Healthy"))
	require.Equal(t, []string{"v"}, fakeValues(t, h, "AllPanics"), "decoded data survives a hook panic")
	require.Empty(t, fakeValues(t, h, "LoadPanics"))

	report, ok := h.Report()
	require.True(t, ok)
	require.Equal(t, 3, report.Failed())
}

// TestHub_FilterNeverConstructs verifies filtered tables are never built.
func TestHub_FilterNeverConstructs(t *testing.T) {
	var built atomic.Int32
	reg := NewRegistry()
	registerFake(t, reg, "A", nil)
	require.NoError(t, reg.Register("Skip", func() Messager {
		built.Add(1)
		return &fakeTable{name: "Skip", data: &fakeData{}}
	}))

	dir := t.TempDir()
	writeTable(t, dir, "A", `{"values":[]}`)
	writeTable(t, dir, "Skip", `{"values":[]}`)

	h := New(reg, WithFilter(func(name string) bool { return name != "Skip" }))
	require.NoError(t, h.Load(context.Background(), dir, format.JSON))

	_, ok := h.GetMessager("Skip")
	require.False(t, ok)
	require.Zero(t, built.Load())
	require.Equal(t, []string{"A"}, h.Names())
}

// TestHub_BarrierSeesFinalSiblingState verifies cross-table hooks run after every parallel load.
func TestHub_BarrierSeesFinalSiblingState(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry()
	names := []string{"S1", "S2", "S3", "S4"}
	for i, name := range names {
		delay := time.Duration(len(names)-i) * 10 * time.Millisecond
		registerFake(t, reg, name, func(x *fakeTable) { x.delay = delay })
		writeTable(t, dir, name, `{"values":["`+name+`"]}`)
	}

	var observed [][]string
	registerFake(t, reg, "Reader", func(x *fakeTable) {
		x.afterAll = func(h *Hub) error {
			for _, name := range names {
				observed = append(observed, fakeValues(t, h, name))
			}
			return nil
		}
	})
	writeTable(t, dir, "Reader", `{"values":[]}`)

	h := New(reg, WithConcurrency(8))
	require.NoError(t, h.Load(context.Background(), dir, format.JSON))

	require.Len(t, observed, len(names))
	for i, name := range names {
		require.Equal(t, []string{name}, observed[i])
	}
}

// TestHub_AfterLoadAllRunsForFailedTables verifies a table that failed to load still observes siblings.
func TestHub_AfterLoadAllRunsForFailedTables(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry()
	registerFake(t, reg, "Good", nil)
	writeTable(t, dir, "Good", `{"values":["ok"]}`)

	var sawGood []string
	registerFake(t, reg, "Broken", func(x *fakeTable) {
		x.afterAll = func(h *Hub) error {
			sawGood = fakeValues(t, h, "Good")
			return nil
		}
	})

	h := New(reg)
	require.Error(t, h.Load(context.Background(), dir, format.JSON))
	require.Equal(t, []string{"ok"}, sawGood)
}

// TestHub_HookFailuresAreRecorded verifies hook errors are reported without rolling back data.
func TestHub_HookFailuresAreRecorded(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry()
	boom := errors.New("boom")
	registerFake(t, reg, "A", func(x *fakeTable) { x.afterLoad = func() error { return boom } })
	registerFake(t, reg, "B", func(x *fakeTable) { x.afterAll = func(*Hub) error { return boom } })
	writeTable(t, dir, "A", `{"values":["a"]}`)
	writeTable(t, dir, "B", `{"values":["b"]}`)

	h := New(reg)
	err := h.Load(context.Background(), dir, format.JSON)
	require.ErrorIs(t, err, boom)

	var loadErrs *LoadErrors
	require.ErrorAs(t, err, &loadErrs)

	var hookErr *HookError
	require.ErrorAs(t, loadErrs.Get("A"), &hookErr)
	require.Equal(t, StageAfterLoad, hookErr.Stage)
	require.ErrorAs(t, loadErrs.Get("B"), &hookErr)
	require.Equal(t, StageAfterLoadAll, hookErr.Stage)

	require.Equal(t, []string{"a"}, fakeValues(t, h, "A"))
	require.Equal(t, []string{"b"}, fakeValues(t, h, "B"))
}

// TestHub_AfterLoadSkippedOnFailure verifies the single-table hook only runs after a successful decode.
func TestHub_AfterLoadSkippedOnFailure(t *testing.T) {
	var calls atomic.Int32
	reg := NewRegistry()
	registerFake(t, reg, "A", func(x *fakeTable) {
		x.afterLoad = func() error { calls.Add(1); return nil }
	})

	h := New(reg)
	require.Error(t, h.Load(context.Background(), t.TempDir(), format.JSON))
	require.Zero(t, calls.Load())
}

// TestHub_LoadOptionsLayering verifies hub defaults apply and Load options win.
func TestHub_LoadOptionsLayering(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry()
	registerFake(t, reg, "A", nil)
	writeTable(t, dir, "A", `{"values":["a"],"extra":1}`)

	h := New(reg, WithLoadOptions(load.IgnoreUnknownFields(true)))
	require.NoError(t, h.Load(context.Background(), dir, format.JSON))

	err := h.Load(context.Background(), dir, format.JSON, load.IgnoreUnknownFields(false))
	require.ErrorIs(t, err, load.ErrParse)
}

// TestHub_PathOverride verifies a per-table path is honored and reported.
func TestHub_PathOverride(t *testing.T) {
	dir := t.TempDir()
	elsewhere := filepath.Join(t.TempDir(), "a-v2.json")
	require.NoError(t, os.WriteFile(elsewhere, []byte(`{"values":["v2"]}`), 0o644))

	reg := NewRegistry()
	registerFake(t, reg, "A", nil)

	h := New(reg)
	require.NoError(t, h.Load(context.Background(), dir, format.JSON, load.WithPath("A", elsewhere)))
	require.Equal(t, []string{"v2"}, fakeValues(t, h, "A"))

	report, ok := h.Report()
	require.True(t, ok)
	require.Equal(t, elsewhere, report.Tables[0].Path)
}

// TestHub_ReportAndStats verifies durations are recorded for failures and successes alike.
func TestHub_ReportAndStats(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry()
	registerFake(t, reg, "A", func(x *fakeTable) { x.delay = 5 * time.Millisecond })
	registerFake(t, reg, "B", func(x *fakeTable) { x.delay = 5 * time.Millisecond })
	writeTable(t, dir, "A", `{"values":[]}`)

	h := New(reg)
	before := time.Now()
	require.Error(t, h.Load(context.Background(), dir, format.JSON))

	report, ok := h.Report()
	require.True(t, ok)
	require.NotEmpty(t, report.SessionID)
	require.Equal(t, dir, report.Dir)
	require.Equal(t, format.JSON, report.Format)
	require.Equal(t, StateFailed, report.State)
	require.Equal(t, 1, report.Failed())
	require.Len(t, report.Tables, 2)

	require.True(t, report.Tables[0].OK())
	require.Empty(t, report.Tables[0].Kind())
	require.Equal(t, "not_found", report.Tables[1].Kind())
	for _, tr := range report.Tables {
		require.Positive(t, tr.Duration, tr.Name)
	}
	require.False(t, h.LastLoadedTime().Before(before))

	a, _ := h.GetMessager("A")
	require.False(t, a.Stats().LoadedAt.IsZero())
	b, _ := h.GetMessager("B")
	require.True(t, b.Stats().LoadedAt.IsZero())
}

// TestHub_Reload verifies Reload repeats the last Load with fresh instances.
func TestHub_Reload(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry()
	registerFake(t, reg, "A", nil)
	writeTable(t, dir, "A", `{"values":["one"]}`)

	h := New(reg)
	require.NoError(t, h.Load(context.Background(), dir, format.JSON))
	first, _ := h.GetMessager("A")

	writeTable(t, dir, "A", `{"values":["two"]}`)
	require.NoError(t, h.Reload(context.Background()))

	second, _ := h.GetMessager("A")
	require.NotSame(t, first, second)
	require.Equal(t, []string{"two"}, fakeValues(t, h, "A"))
}

// TestHub_CancelledContext verifies tables not started before cancellation report the context error.
func TestHub_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry()
	registerFake(t, reg, "A", nil)
	writeTable(t, dir, "A", `{"values":[]}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := New(reg)
	err := h.Load(ctx, dir, format.JSON)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, fakeValues(t, h, "A"))

	var loadErrs *LoadErrors
	require.ErrorAs(t, err, &loadErrs)
	kind, ok := load.KindOf(loadErrs.Get("A"))
	require.True(t, ok, "skipped tables carry a load kind")
	require.Equal(t, load.KindIllegalParam, kind)

	report, ok := h.Report()
	require.True(t, ok)
	require.Equal(t, load.KindIllegalParam.String(), report.Tables[0].Kind())
}

// TestHub_Events verifies table and batch events are published.
func TestHub_Events(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry()
	registerFake(t, reg, "A", nil)
	registerFake(t, reg, "B", nil)
	writeTable(t, dir, "A", `{"values":[]}`)

	broker := pubsub.NewBroker[LoadEvent]()
	defer broker.Close()
	ch := broker.Subscribe(context.Background())

	h := New(reg, WithBroker(broker), WithConcurrency(1))
	require.Error(t, h.Load(context.Background(), dir, format.JSON))

	got := map[pubsub.EventType][]LoadEvent{}
	for range 3 {
		select {
		case ev := <-ch:
			got[ev.Type] = append(got[ev.Type], ev.Payload)
		case <-time.After(time.Second):
			require.FailNow(t, "timeout waiting for events")
		}
	}

	require.Len(t, got[pubsub.TableLoaded], 1)
	require.Equal(t, "A", got[pubsub.TableLoaded][0].Table)
	require.Len(t, got[pubsub.TableFailed], 1)
	require.ErrorIs(t, got[pubsub.TableFailed][0].Err, load.ErrNotFound)
	require.Len(t, got[pubsub.BatchFailed], 1)
	batch := got[pubsub.BatchFailed][0]
	require.Equal(t, 1, batch.Failed)
	require.Equal(t, 2, batch.Total)
	require.Equal(t, got[pubsub.TableLoaded][0].SessionID, batch.SessionID)
}

// TestHub_Spans verifies the batch span parents one span per table.
func TestHub_Spans(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry()
	registerFake(t, reg, "A", nil)
	registerFake(t, reg, "B", nil)
	writeTable(t, dir, "A", `{"values":[]}`)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	h := New(reg, WithTracer(tp.Tracer("test")))
	require.Error(t, h.Load(context.Background(), dir, format.JSON))

	spans := recorder.Ended()
	var root sdktrace.ReadOnlySpan
	tables := 0
	failed := 0
	for _, s := range spans {
		switch s.Name() {
		case "hub.Load":
			root = s
		case "hub.LoadTable":
			tables++
			if len(s.Events()) > 0 {
				failed++
			}
		}
	}
	require.NotNil(t, root)
	require.Equal(t, 2, tables)
	require.Equal(t, 1, failed)
	for _, s := range spans {
		if s.Name() == "hub.LoadTable" {
			require.Equal(t, root.SpanContext().SpanID(), s.Parent().SpanID())
		}
	}
}

// TestHub_IsolationProperty checks that exactly the tables without files fail, for random subsets.
func TestHub_IsolationProperty(t *testing.T) {
	all := []string{"T0", "T1", "T2", "T3", "T4", "T5"}
	reg := NewRegistry()
	for _, name := range all {
		registerFake(t, reg, name, nil)
	}

	rapid.Check(t, func(rt *rapid.T) {
		present := rapid.SliceOfDistinct(rapid.SampledFrom(all), func(s string) string { return s }).Draw(rt, "present")
		concurrency := rapid.IntRange(1, 4).Draw(rt, "concurrency")

		dir, err := os.MkdirTemp(t.TempDir(), "iso")
		if err != nil {
			rt.Fatal(err)
		}
		has := map[string]bool{}
		for _, name := range present {
			has[name] = true
			if err := os.WriteFile(filepath.Join(dir, name+".json"), []byte(`{"values":["`+name+`"]}`), 0o644); err != nil {
				rt.Fatal(err)
			}
		}

		h := New(reg, WithConcurrency(concurrency))
		err = h.Load(context.Background(), dir, format.JSON)

		var loadErrs *LoadErrors
		if len(present) == len(all) {
			if err != nil {
				rt.Fatalf("unexpected error: %v", err)
			}
		} else if !errors.As(err, &loadErrs) || len(loadErrs.Tables) != len(all)-len(present) {
			rt.Fatalf("want %d failures, got %v", len(all)-len(present), err)
		}
		for _, name := range all {
			x, _ := GetAs[*fakeTable](h, name)
			if has[name] != (len(x.data.Values) == 1) {
				rt.Fatalf("%s: present=%v values=%v", name, has[name], x.data.Values)
			}
		}
	})
}
