package ecs

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

// Controller is the identity source and scope manager shared by every
// [Mapper] of one world. It is safe for concurrent use.
type Controller struct {
	next   atomic.Uint64
	logger *log.Logger

	mu        sync.RWMutex
	listeners []subscription
	nextSub   int
}

type subscription struct {
	id int
	l  Listener
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for scope diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewController creates a controller whose first entity is 0.
func NewController(opts ...Option) *Controller {
	c := &Controller{logger: log.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Logger returns the controller's logger.
func (c *Controller) Logger() *log.Logger { return c.logger }

// CreateEntity allocates a fresh entity.
func (c *Controller) CreateEntity() Entity {
	return Entity(c.next.Add(1) - 1)
}

// Subscribe registers l for committed batches and returns a function that
// removes it again. Listeners are notified in subscription order.
func (c *Controller) Subscribe(l Listener) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.listeners = append(c.listeners, subscription{id: id, l: l})

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, s := range c.listeners {
				if s.id == id {
					c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (c *Controller) deliver(ctx context.Context, b Batch) {
	c.mu.RLock()
	subs := make([]subscription, len(c.listeners))
	copy(subs, c.listeners)
	c.mu.RUnlock()

	for _, s := range subs {
		s.l.Notify(ctx, b)
	}
}
