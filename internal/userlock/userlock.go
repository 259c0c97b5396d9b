// Package userlock serializes read-modify-write sequences on a single user's record.
package userlock

import (
	"context"
	"sync"
)

// Locker hands out an exclusive lock per user id. The returned unlock
// function must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, userID string) (func(), error)
}

// KeyedMutex is an in-process Locker. Entries are dropped once no
// goroutine holds or waits for them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex creates an empty KeyedMutex
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*entry)}
}

// Lock blocks until the lock for userID is free or ctx is done
func (k *KeyedMutex) Lock(ctx context.Context, userID string) (func(), error) {
	k.mu.Lock()
	e, ok := k.locks[userID]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		k.locks[userID] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(userID, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			k.release(userID, e)
		})
	}, nil
}

func (k *KeyedMutex) release(userID string, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, userID)
	}
}

// size reports how many users currently have a lock entry
func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
