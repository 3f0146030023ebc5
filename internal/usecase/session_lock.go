package usecase

import (
	"context"
	"fmt"
	"sync"
)

// SessionLocker provides operation-level mutual exclusion per session key.
// Two concurrent messages on the same (user, session) pair would otherwise
// race on the conversation memory and the profile; serializing them keeps
// history ordering intact without store-level locking.
type SessionLocker struct {
	mu    sync.Mutex
	locks map[string]*sessionMutex
}

type sessionMutex struct {
	mu       sync.Mutex
	refCount int
}

// NewSessionLocker creates a new session locker.
func NewSessionLocker() *SessionLocker {
	return &SessionLocker{
		locks: make(map[string]*sessionMutex),
	}
}

// Lock acquires the lock for the given session key. It blocks until the
// lock is acquired or the context is cancelled. Returns an unlock function
// that MUST be called when the operation is complete.
func (sl *SessionLocker) Lock(ctx context.Context, key string) (unlock func(), err error) {
	sl.mu.Lock()
	sm, ok := sl.locks[key]
	if !ok {
		sm = &sessionMutex{}
		sl.locks[key] = sm
	}
	sm.refCount++
	sl.mu.Unlock()

	release := func() {
		sm.mu.Unlock()
		sl.mu.Lock()
		sm.refCount--
		if sm.refCount == 0 {
			delete(sl.locks, key)
		}
		sl.mu.Unlock()
	}

	acquired := make(chan struct{})
	go func() {
		sm.mu.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
		return release, nil
	case <-ctx.Done():
		// The acquiring goroutine may still be pending; release the lock
		// as soon as it lands so it is never held by a cancelled caller.
		go func() {
			<-acquired
			release()
		}()
		return nil, fmt.Errorf("session lock: %w", ctx.Err())
	}
}

// ActiveCount returns the number of session keys with active or pending
// locks. Intended for testing.
func (sl *SessionLocker) ActiveCount() int {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return len(sl.locks)
}
