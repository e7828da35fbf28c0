// Package ecs provides the entity/component store that the graph engine is
// built on.
//
// # Overview
//
// An [Entity] is an opaque identity allocated by a [Controller]. Components
// are typed bundles of state attached to exactly one entity at a time. Each
// component kind lives in its own [Mapper], which offers attach, detach,
// guarded update and read-lock primitives.
//
// # Scopes
//
// All store operations run inside a [Scope], a guaranteed-release unit of
// work opened with [Controller.Begin] and carried through context.Context:
//
//	ctx, sc := ctrl.Begin(ctx)
//	defer sc.Close()
//
// Opening a scope on a context that already carries one yields a nested
// scope whose Close is a no-op; only the outermost Close commits. A store
// call made on a context without a scope runs in an implicit scope of its
// own.
//
// Mutations take effect in the store immediately. Notifications are
// buffered in the scope and delivered as a single [Batch] to every
// subscribed [Listener] when the outermost scope closes. The store does not
// roll back: a failed cascade keeps whatever it applied before the failure.
//
// # Read Locks
//
// [Mapper.AcquireReadLock] takes an intent lock on a component for the rest
// of the enclosing scope. Plain readers are never blocked by it; they use the
// component's shared data mutex (see [Base.RLock]). Two scopes that both
// declare intent on the same component are serialized: the second blocks
// until the first commits. The lock is reentrant within one scope.
//
// # Events
//
// Every attach, update and detach records an [Event]. [EventCounter] is a
// listener that tallies them per component kind, which makes it a compact
// oracle for tests.
package ecs
