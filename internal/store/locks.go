package store

import (
	"context"
	"sync"
)

// lockRegistry hands out one mutation slot per account. Locks are
// in-process: the service owns its database file, so serializing here is
// equivalent to a row lock on the statement.
type lockRegistry struct {
	mu    sync.Mutex
	slots map[uint]chan struct{}
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{slots: make(map[uint]chan struct{})}
}

func (r *lockRegistry) slot(accountID uint) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.slots[accountID]
	if !ok {
		ch = make(chan struct{}, 1)
		r.slots[accountID] = ch
	}
	return ch
}

// acquire blocks until the account's slot is free or the context expires.
func (r *lockRegistry) acquire(ctx context.Context, accountID uint) (func(), error) {
	ch := r.slot(accountID)
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
