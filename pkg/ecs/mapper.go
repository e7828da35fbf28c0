package ecs

import (
	"context"
	"sync"
	"time"

	errs "github.com/matzehuels/ecsgraph/pkg/errors"
	"github.com/matzehuels/ecsgraph/pkg/observability"
)

// Mapper stores at most one component of kind T per entity.
// All methods are safe for concurrent use.
type Mapper[T Component] struct {
	ctrl *Controller
	kind string

	mu    sync.RWMutex
	items map[Entity]T
}

// NewMapper creates an empty store for components of kind T. The kind
// string names the component in events and errors.
func NewMapper[T Component](ctrl *Controller, kind string) *Mapper[T] {
	return &Mapper[T]{
		ctrl:  ctrl,
		kind:  kind,
		items: make(map[Entity]T),
	}
}

// Kind returns the component kind handled by the mapper.
func (m *Mapper[T]) Kind() string { return m.kind }

// Attach binds c to e and records a Created event.
// It fails with DUPLICATE_ATTACH if e already carries a component of this
// kind or if c is already bound to an entity.
func (m *Mapper[T]) Attach(ctx context.Context, e Entity, c T) error {
	ctx, sc := m.ctrl.Begin(ctx)
	defer sc.Close()

	b := c.component()

	m.mu.Lock()
	if _, ok := m.items[e]; ok {
		m.mu.Unlock()
		return errs.New(errs.ErrCodeDuplicateAttach, "entity %d already carries a %s", e, m.kind)
	}
	if b.Attached() {
		m.mu.Unlock()
		return errs.New(errs.ErrCodeDuplicateAttach, "%s is already attached to entity %d", m.kind, b.Entity())
	}
	b.entity.Store(uint64(e))
	b.attached.Store(true)
	m.items[e] = c
	m.mu.Unlock()

	m.ctrl.txnFrom(ctx).record(Event{Kind: Created, Component: m.kind, Entity: e})
	return nil
}

// Detach unbinds c from its entity and records a Deleted event.
// It fails with NOT_ATTACHED if c is not currently bound in this mapper.
func (m *Mapper[T]) Detach(ctx context.Context, c T) error {
	ctx, sc := m.ctrl.Begin(ctx)
	defer sc.Close()

	b := c.component()
	e := b.Entity()

	m.mu.Lock()
	if !m.holds(b) {
		m.mu.Unlock()
		return errs.New(errs.ErrCodeNotAttached, "%s of entity %d is not attached", m.kind, e)
	}
	delete(m.items, e)
	b.attached.Store(false)
	m.mu.Unlock()

	m.ctrl.txnFrom(ctx).record(Event{Kind: Deleted, Component: m.kind, Entity: e})
	return nil
}

// Get resolves the component attached to e.
// It fails with NOT_FOUND if e carries no component of this kind.
func (m *Mapper[T]) Get(e Entity) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.items[e]
	if !ok {
		var zero T
		return zero, errs.New(errs.ErrCodeNotFound, "entity %d has no %s", e, m.kind)
	}
	return c, nil
}

// Has reports whether e carries a component of this kind.
func (m *Mapper[T]) Has(e Entity) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.items[e]
	return ok
}

// Len returns the number of attached components.
func (m *Mapper[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Update applies fn to c under the component's exclusive data lock and
// records an Updated event. fn must only touch c's own state.
// It fails with NOT_ATTACHED if c is not bound in this mapper.
func (m *Mapper[T]) Update(ctx context.Context, c T, fn func()) error {
	ctx, sc := m.ctrl.Begin(ctx)
	defer sc.Close()

	b := c.component()

	m.mu.RLock()
	ok := m.holds(b)
	m.mu.RUnlock()
	if !ok {
		return errs.New(errs.ErrCodeNotAttached, "cannot update detached %s of entity %d", m.kind, b.Entity())
	}

	b.mu.Lock()
	fn()
	b.mu.Unlock()

	m.ctrl.txnFrom(ctx).record(Event{Kind: Updated, Component: m.kind, Entity: b.Entity()})
	return nil
}

// AcquireReadLock declares the current scope's intent to read and then
// possibly mutate c. It blocks while another scope holds the lock and keeps
// it until the outermost scope commits. Concurrent plain readers are never
// blocked.
//
// It fails with NO_SCOPE when ctx carries no open scope, and with
// NOT_ATTACHED when c is not bound in this mapper, before or after the wait.
func (m *Mapper[T]) AcquireReadLock(ctx context.Context, c T) error {
	tx := m.ctrl.txnFrom(ctx)
	if tx == nil {
		return errs.New(errs.ErrCodeNoScope, "read lock on %s requires an open scope", m.kind)
	}

	b := c.component()

	m.mu.RLock()
	ok := m.holds(b)
	m.mu.RUnlock()
	if !ok {
		return errs.New(errs.ErrCodeNotAttached, "cannot lock detached %s of entity %d", m.kind, b.Entity())
	}

	start := time.Now()
	took := b.intent.acquire(tx)
	if wait := time.Since(start); wait > time.Millisecond {
		observability.Scope().OnLockWait(ctx, m.kind, wait)
	}

	// The previous owner may have detached c before releasing it.
	m.mu.RLock()
	ok = m.holds(b)
	m.mu.RUnlock()
	if !ok {
		if took {
			b.intent.unlock(tx)
		}
		return errs.New(errs.ErrCodeNotAttached, "%s of entity %d was detached while waiting for its lock", m.kind, b.Entity())
	}
	if took {
		tx.hold(&b.intent)
	}
	return nil
}

// HoldsReadLock reports whether the scope carried by ctx owns the read lock
// on c.
func (m *Mapper[T]) HoldsReadLock(ctx context.Context, c T) bool {
	tx := m.ctrl.txnFrom(ctx)
	if tx == nil {
		return false
	}
	return c.component().intent.owned(tx)
}

// holds must be called with m.mu held.
func (m *Mapper[T]) holds(b *Base) bool {
	if !b.Attached() {
		return false
	}
	cur, ok := m.items[b.Entity()]
	return ok && cur.component() == b
}
