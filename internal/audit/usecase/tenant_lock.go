package usecase

import (
	"context"
	"sync"
)

// tenantLocks hands out one in-process lock per tenant so local appenders queue
// instead of racing on the database tail. Entries are dropped when unused.
type tenantLocks struct {
	mu    sync.Mutex
	locks map[string]*tenantLock
}

type tenantLock struct {
	ch   chan struct{}
	refs int
}

func newTenantLocks() *tenantLocks {
	return &tenantLocks{locks: make(map[string]*tenantLock)}
}

// acquire blocks until the tenant lock is held or ctx is done.
func (l *tenantLocks) acquire(ctx context.Context, tenantID string) (func(), error) {
	l.mu.Lock()
	lock, ok := l.locks[tenantID]
	if !ok {
		lock = &tenantLock{ch: make(chan struct{}, 1)}
		l.locks[tenantID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	select {
	case lock.ch <- struct{}{}:
	case <-ctx.Done():
		l.drop(tenantID, lock)
		return nil, ctx.Err()
	}

	return func() {
		<-lock.ch
		l.drop(tenantID, lock)
	}, nil
}

func (l *tenantLocks) drop(tenantID string, lock *tenantLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, tenantID)
	}
}
