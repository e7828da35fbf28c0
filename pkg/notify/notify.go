// Package notify forwards committed event batches to external sinks.
//
// Every sink implements [ecs.Listener] and is registered with
// [ecs.Controller.Subscribe]:
//
//	ctrl.Subscribe(notify.NewLogSink(logger))
//	ctrl.Subscribe(notify.NewRedisStream(client, "ecsgraph:events", logger))
//
// Listeners run on the goroutine that commits the scope. Remote sinks detach
// from the committing context's cancellation and bound each delivery with
// [DeliveryTimeout], so a cancelled request still publishes what it
// committed. Delivery failures are logged, never returned: a commit cannot
// be undone by a sink.
package notify

import (
	"time"

	"github.com/matzehuels/ecsgraph/pkg/ecs"
)

// DeliveryTimeout bounds a single remote delivery including retries.
const DeliveryTimeout = 10 * time.Second

// Record is the wire form of one event, shared by the remote sinks.
type Record struct {
	Kind      string `json:"kind" bson:"kind"`
	Component string `json:"component" bson:"component"`
	Entity    uint64 `json:"entity" bson:"entity"`
}

// Records converts the events of b to their wire form, preserving order.
func Records(b ecs.Batch) []Record {
	out := make([]Record, len(b.Events))
	for i, ev := range b.Events {
		out[i] = Record{
			Kind:      ev.Kind.String(),
			Component: ev.Component,
			Entity:    uint64(ev.Entity),
		}
	}
	return out
}

// Summary tallies a batch per component kind, e.g. {"Node": {1, 2, 0}}.
func Summary(b ecs.Batch) map[string]ecs.Counts {
	out := make(map[string]ecs.Counts)
	for _, ev := range b.Events {
		c := out[ev.Component]
		switch ev.Kind {
		case ecs.Created:
			c.Created++
		case ecs.Updated:
			c.Updated++
		case ecs.Deleted:
			c.Deleted++
		}
		out[ev.Component] = c
	}
	return out
}
