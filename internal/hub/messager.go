package hub

import (
	"time"

	"github.com/zjrosen/confhub/internal/format"
	"github.com/zjrosen/confhub/internal/load"
	"github.com/zjrosen/confhub/internal/log"
)

// Messager is one named, independently loadable table.
type Messager interface {
	// Name is the registry key and the default file stem.
	Name() string
	// Load reads and decodes the table. On failure the payload keeps its
	// previous value and the returned error is a *load.Error.
	Load(dir string, fmt format.Format, opts *load.MessagerOptions) error
	// Stats describes the most recent Load attempt.
	Stats() Stats
	// Message returns the current payload, never nil.
	Message() any
}

// AfterLoader is implemented by tables that validate or post-process
// their own data. It runs right after a successful Load.
type AfterLoader interface {
	ProcessAfterLoad() error
}

// AfterLoadAller is implemented by tables that build indices over sibling
// tables. It runs once every table in the batch has finished loading.
type AfterLoadAller interface {
	ProcessAfterLoadAll(h *Hub) error
}

// Stats is the record of a table's last load attempt.
type Stats struct {
	Path     string        // resolved file path, empty if never resolved
	Duration time.Duration // wall time of resolve+read+decode
	LoadedAt time.Time     // zero until a load succeeds
}

// Base carries the bookkeeping shared by table implementations. Embed it
// and call Decode from Load.
type Base struct {
	stats Stats
}

// Stats implements Messager.
func (b *Base) Stats() Stats { return b.stats }

// Decode loads the file for name into a fresh *P and stores it in *dst
// only on success, so a failed load leaves *dst untouched. The duration is
// recorded either way.
func Decode[P any](b *Base, dst **P, name, dir string, fmt format.Format, opts *load.MessagerOptions) error {
	start := time.Now()
	b.stats.Path = load.Path(name, dir, fmt, opts)

	next := new(P)
	err := load.LoadMessage(next, name, dir, fmt, opts)
	b.stats.Duration = time.Since(start)
	if err != nil {
		kind, _ := load.KindOf(err)
		log.Warn(log.CatLoad, "table load failed", "table", name, "kind", kind.String(), "path", b.stats.Path, "error", err)
		return err
	}

	*dst = next
	b.stats.LoadedAt = time.Now()
	log.Debug(log.CatLoad, "table loaded", "table", name, "path", b.stats.Path, "duration", b.stats.Duration)
	return nil
}
