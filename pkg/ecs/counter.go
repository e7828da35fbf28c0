package ecs

import (
	"context"
	"sync"
)

// Counts tallies events of one component kind.
type Counts struct {
	Created int
	Updated int
	Deleted int
}

// EventCounter is a [Listener] that counts committed events per component
// kind.
type EventCounter struct {
	mu      sync.Mutex
	counts  map[string]Counts
	batches int
}

// NewEventCounter creates an empty counter.
func NewEventCounter() *EventCounter {
	return &EventCounter{counts: make(map[string]Counts)}
}

// Notify implements [Listener].
func (c *EventCounter) Notify(_ context.Context, b Batch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches++
	for _, ev := range b.Events {
		n := c.counts[ev.Component]
		switch ev.Kind {
		case Created:
			n.Created++
		case Updated:
			n.Updated++
		case Deleted:
			n.Deleted++
		}
		c.counts[ev.Component] = n
	}
}

// Counts returns the tally for one component kind.
func (c *EventCounter) Counts(kind string) Counts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[kind]
}

// Batches returns the number of committed batches seen.
func (c *EventCounter) Batches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batches
}

// Total returns the number of events of any kind seen.
func (c *EventCounter) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.counts {
		total += n.Created + n.Updated + n.Deleted
	}
	return total
}

// Reset clears all tallies.
func (c *EventCounter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = make(map[string]Counts)
	c.batches = 0
}
