package ecs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/ecsgraph/pkg/observability"
)

// txn is the shared state behind an outermost Scope and all scopes nested
// in it.
type txn struct {
	id      uuid.UUID
	ctrl    *Controller
	ctx     context.Context
	started time.Time

	mu     sync.Mutex
	events []Event
	locks  []*intentLock
	done   bool
}

type scopeKey struct{}

// Scope is a guaranteed-release unit of work. Obtain one with
// [Controller.Begin] and defer its Close.
type Scope struct {
	tx     *txn
	nested bool
	once   sync.Once
}

// Begin opens a scope. If ctx already carries an open scope of this
// controller, the returned scope is nested in it and ctx is returned as is.
// Otherwise a new outermost scope is attached to the returned context.
func (c *Controller) Begin(ctx context.Context) (context.Context, *Scope) {
	if tx := c.txnFrom(ctx); tx != nil {
		return ctx, &Scope{tx: tx, nested: true}
	}
	tx := &txn{
		id:      uuid.New(),
		ctrl:    c,
		ctx:     ctx,
		started: time.Now(),
	}
	return context.WithValue(ctx, scopeKey{}, tx), &Scope{tx: tx}
}

// InScope reports whether ctx carries an open scope of this controller.
func (c *Controller) InScope(ctx context.Context) bool {
	return c.txnFrom(ctx) != nil
}

// ScopeID returns the id of the open scope carried by ctx.
func (c *Controller) ScopeID(ctx context.Context) (uuid.UUID, bool) {
	tx := c.txnFrom(ctx)
	if tx == nil {
		return uuid.Nil, false
	}
	return tx.id, true
}

func (c *Controller) txnFrom(ctx context.Context) *txn {
	tx, ok := ctx.Value(scopeKey{}).(*txn)
	if !ok || tx.ctrl != c || tx.closed() {
		return nil
	}
	return tx
}

// ID returns the identifier shared by the outermost scope and everything
// nested in it.
func (s *Scope) ID() uuid.UUID { return s.tx.id }

// Nested reports whether the scope defers its commit to an enclosing scope.
func (s *Scope) Nested() bool { return s.nested }

// Close ends the scope. Closing the outermost scope releases its read locks
// and delivers the buffered events; closing a nested scope does nothing.
// Close is idempotent.
func (s *Scope) Close() {
	s.once.Do(func() {
		if !s.nested {
			s.tx.commit()
		}
	})
}

func (tx *txn) record(ev Event) {
	tx.mu.Lock()
	tx.events = append(tx.events, ev)
	tx.mu.Unlock()
}

func (tx *txn) hold(l *intentLock) {
	tx.mu.Lock()
	tx.locks = append(tx.locks, l)
	tx.mu.Unlock()
}

func (tx *txn) closed() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.done
}

func (tx *txn) commit() {
	tx.mu.Lock()
	tx.done = true
	events, locks := tx.events, tx.locks
	tx.events, tx.locks = nil, nil
	tx.mu.Unlock()

	for i := len(locks) - 1; i >= 0; i-- {
		locks[i].unlock(tx)
	}

	elapsed := time.Since(tx.started)
	tx.ctrl.logger.Debug("scope committed",
		"scope", tx.id,
		"events", len(events),
		"locks", len(locks),
		"duration", elapsed)

	if len(events) > 0 {
		tx.ctrl.deliver(tx.ctx, Batch{ScopeID: tx.id, Events: events})
	}
	observability.Scope().OnCommit(tx.ctx, tx.id.String(), len(events), len(locks), elapsed)
}
