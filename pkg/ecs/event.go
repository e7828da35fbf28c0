package ecs

import (
	"context"

	"github.com/google/uuid"
)

// EventKind classifies a store notification.
type EventKind int

const (
	// Created is recorded by [Mapper.Attach].
	Created EventKind = iota
	// Updated is recorded by [Mapper.Update].
	Updated
	// Deleted is recorded by [Mapper.Detach].
	Deleted
)

var eventKindNames = [...]string{
	Created: "created",
	Updated: "updated",
	Deleted: "deleted",
}

func (k EventKind) String() string {
	if int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return "unknown"
}

// Event is a single change to a component store.
type Event struct {
	Kind      EventKind
	Component string // mapper kind, e.g. "Node"
	Entity    Entity
}

// Batch groups the events of one committed scope, in the order they were
// recorded.
type Batch struct {
	ScopeID uuid.UUID
	Events  []Event
}

// Listener receives committed batches. Notify runs synchronously on the
// goroutine that closed the outermost scope, after its locks are released.
type Listener interface {
	Notify(ctx context.Context, b Batch)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ctx context.Context, b Batch)

// Notify calls f(ctx, b).
func (f ListenerFunc) Notify(ctx context.Context, b Batch) { f(ctx, b) }
