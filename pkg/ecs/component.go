package ecs

import (
	"sync"
	"sync/atomic"
)

// Component is implemented by every type that embeds [Base].
// The unexported method keeps foreign types out of the store.
type Component interface {
	component() *Base
}

// Base carries the bookkeeping every stored component needs: the entity it
// is bound to, the shared data mutex and the scope-owned intent lock.
//
// Embed Base by value in the component struct and always handle the
// component by pointer.
type Base struct {
	mu       sync.RWMutex // guards the embedding component's state
	intent   intentLock
	entity   atomic.Uint64
	attached atomic.Bool
}

func (b *Base) component() *Base { return b }

// Entity returns the entity the component is (or was last) attached to.
func (b *Base) Entity() Entity { return Entity(b.entity.Load()) }

// Attached reports whether the component is currently bound to an entity.
func (b *Base) Attached() bool { return b.attached.Load() }

// RLock takes the component's shared data lock. Readers that need a
// consistent view across several fields hold it for the duration.
func (b *Base) RLock() { b.mu.RLock() }

// RUnlock releases the shared data lock taken by RLock.
func (b *Base) RUnlock() { b.mu.RUnlock() }
