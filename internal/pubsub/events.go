// Package pubsub fans out hub load events to any number of subscribers.
package pubsub

import (
	"context"
	"time"
)

// EventType names what happened.
type EventType string

const (
	TableLoaded EventType = "table_loaded" // one table decoded successfully
	TableFailed EventType = "table_failed" // one table failed to load or validate
	BatchLoaded EventType = "batch_loaded" // a Load call finished with no failures
	BatchFailed EventType = "batch_failed" // a Load call finished with at least one failure
)

// Event is a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context, types ...EventType) <-chan Event[T]
}

// Publisher publishes events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
