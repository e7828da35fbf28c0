package ecs

import "sync"

// intentLock is owned by at most one transaction at a time. Acquiring it
// from the owning transaction is a no-op; any other transaction waits until
// the owner commits.
type intentLock struct {
	mu      sync.Mutex
	owner   *txn
	release chan struct{}
}

// acquire blocks until tx owns the lock and reports whether this call took
// it (false when tx already held it).
func (l *intentLock) acquire(tx *txn) bool {
	for {
		l.mu.Lock()
		switch l.owner {
		case nil:
			l.owner = tx
			l.release = make(chan struct{})
			l.mu.Unlock()
			return true
		case tx:
			l.mu.Unlock()
			return false
		}
		wait := l.release
		l.mu.Unlock()
		<-wait
	}
}

func (l *intentLock) unlock(tx *txn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owner != tx {
		return
	}
	l.owner = nil
	close(l.release)
	l.release = nil
}

// owned reports whether tx currently owns the lock.
func (l *intentLock) owned(tx *txn) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.owner == tx
}
