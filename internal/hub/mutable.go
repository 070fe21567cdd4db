package hub

import (
	"bytes"
	"context"
	"errors"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/zjrosen/confhub/internal/codec"
	"github.com/zjrosen/confhub/internal/format"
	"github.com/zjrosen/confhub/internal/log"
)

// ErrMutableCheckDisabled is returned by RunMutableCheck on a hub built
// without WithMutableCheck.
var ErrMutableCheckDisabled = errors.New("mutable check not enabled")

// MutateFunc is called for a table whose data changed after load.
// original and current are the table's canonical JSON.
type MutateFunc func(name string, original, current []byte)

type mutableCheck struct {
	interval time.Duration
	onMutate MutateFunc
}

// WithMutableCheck snapshots every table after load so later in-place
// changes to loaded data can be detected. onMutate defaults to logging a
// line diff. interval is used by RunMutableCheck.
func WithMutableCheck(interval time.Duration, onMutate MutateFunc) Option {
	return func(h *Hub) {
		if onMutate == nil {
			onMutate = logMutation
		}
		h.mutable = &mutableCheck{interval: interval, onMutate: onMutate}
	}
}

// CheckMutations compares each table with its post-load snapshot and
// returns the names that changed, calling the mutate handler for each.
func (h *Hub) CheckMutations() []string {
	snap := h.current.Load()
	if h.mutable == nil || snap == nil {
		return nil
	}
	var changed []string
	current := canonicalize(snap.messagers)
	for _, name := range slices.Sorted(maps.Keys(snap.originals)) {
		if bytes.Equal(snap.originals[name], current[name]) {
			continue
		}
		changed = append(changed, name)
		h.mutable.onMutate(name, snap.originals[name], current[name])
	}
	return changed
}

// RunMutableCheck calls CheckMutations every interval until ctx is done.
func (h *Hub) RunMutableCheck(ctx context.Context) error {
	if h.mutable == nil {
		return ErrMutableCheckDisabled
	}
	interval := h.mutable.interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			h.CheckMutations()
		}
	}
}

func canonicalize(messagers map[string]Messager) map[string][]byte {
	c, err := codec.For(format.JSON)
	if err != nil {
		return nil
	}
	out := make(map[string][]byte, len(messagers))
	for name, m := range messagers {
		data, err := c.Marshal(m.Message())
		if err != nil {
			log.Warn(log.CatHub, "cannot snapshot table", "table", name, "error", err)
			continue
		}
		out[name] = data
	}
	return out
}

// LineDiff renders a line-level diff of a and b with -/+ prefixes.
func LineDiff(a, b string) string {
	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffEqual:
			continue
		}
		for line := range strings.Lines(d.Text) {
			sb.WriteString(prefix)
			sb.WriteString(strings.TrimSuffix(line, "\n"))
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func logMutation(name string, original, current []byte) {
	log.Warn(log.CatHub, "table mutated after load", "table", name, "diff", LineDiff(string(original), string(current)))
}
