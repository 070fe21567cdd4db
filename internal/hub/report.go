package hub

import (
	"time"

	"github.com/zjrosen/confhub/internal/format"
	"github.com/zjrosen/confhub/internal/load"
)

// State is the hub's load lifecycle.
type State int32

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// TableReport is one table's outcome within a batch.
type TableReport struct {
	Name     string
	Path     string
	Duration time.Duration
	Err      error
}

// OK reports whether the table loaded and its hooks succeeded.
func (t TableReport) OK() bool { return t.Err == nil }

// Kind returns the load error kind, or "" for success and for hook
// failures. Tables skipped by cancellation report illegal_param.
func (t TableReport) Kind() string {
	if kind, ok := load.KindOf(t.Err); ok {
		return kind.String()
	}
	return ""
}

// Report summarizes one Load call.
type Report struct {
	SessionID string
	Dir       string
	Format    format.Format
	StartedAt time.Time
	Duration  time.Duration
	State     State
	Tables    []TableReport // sorted by name
}

// Failed counts tables with errors.
func (r Report) Failed() int {
	n := 0
	for _, t := range r.Tables {
		if !t.OK() {
			n++
		}
	}
	return n
}
