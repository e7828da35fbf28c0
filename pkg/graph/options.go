package graph

import "github.com/matzehuels/ecsgraph/pkg/ecs"

// Option configures a create operation on [System].
type Option func(*createOptions)

type createOptions struct {
	name      string
	entity    ecs.Entity
	hasEntity bool
}

// WithName sets the display name of a node or edge. Graphs have no name and
// ignore it.
func WithName(name string) Option {
	return func(o *createOptions) { o.name = name }
}

// WithEntity attaches the new component to e instead of a freshly allocated
// entity. The create fails with DUPLICATE_ATTACH if e already carries a
// component of the same kind.
func WithEntity(e ecs.Entity) Option {
	return func(o *createOptions) {
		o.entity = e
		o.hasEntity = true
	}
}

func applyOptions(opts []Option) createOptions {
	var o createOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
