package hub

import (
	"time"

	"github.com/zjrosen/confhub/internal/pubsub"
)

// LoadEvent is published on the hub's broker during Load.
// Table events set Table; batch events set Failed and Total.
type LoadEvent struct {
	SessionID string
	Table     string
	Path      string
	Duration  time.Duration
	Err       error
	Failed    int
	Total     int
}

func (h *Hub) publishTable(sessionID string, tr TableReport) {
	if h.broker == nil {
		return
	}
	eventType := pubsub.TableLoaded
	if tr.Err != nil {
		eventType = pubsub.TableFailed
	}
	h.broker.Publish(eventType, LoadEvent{
		SessionID: sessionID,
		Table:     tr.Name,
		Path:      tr.Path,
		Duration:  tr.Duration,
		Err:       tr.Err,
	})
}

func (h *Hub) publishBatch(r *Report) {
	if h.broker == nil {
		return
	}
	eventType := pubsub.BatchLoaded
	failed := r.Failed()
	if failed > 0 {
		eventType = pubsub.BatchFailed
	}
	h.broker.Publish(eventType, LoadEvent{
		SessionID: r.SessionID,
		Duration:  r.Duration,
		Failed:    failed,
		Total:     len(r.Tables),
	})
}
