// Package pubsub provides a type-safe pub/sub broker for store change notifications.
package pubsub

import (
	"context"
	"time"
)

// EventType represents the kind of change being announced.
type EventType string

// Standard event types.
const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
	EventFailed  EventType = "failed"
)

// Event represents a typed event with metadata.
type Event[T any] struct { //nolint:govet // fieldalignment: preserving logical field order
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Publisher is the interface stores publish through.
type Publisher[T any] interface {
	Publish(EventType, T)
}

// Subscriber is the interface for subscribing to events.
type Subscriber[T any] interface {
	Subscribe(context.Context) <-chan Event[T]
}
