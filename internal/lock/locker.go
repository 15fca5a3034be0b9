// Package lock provides the per-listing mutual-exclusion scope. Waits are bounded:
// a caller that cannot enter the scope in time gets ErrLockTimeout and should retry.
package lock

import (
	"bulk-auction/internal/biddingerrors"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Locker serializes work per key. Different keys never block each other.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// LocalLocker is an in-process Locker with one weighted semaphore per key
type LocalLocker struct {
	mu     sync.Mutex
	wait   time.Duration
	scopes map[string]*scope
}

type scope struct {
	sem  *semaphore.Weighted
	refs int // holders plus waiters; the scope is dropped at zero
}

// NewLocalLocker creates a LocalLocker. A zero wait means callers wait until ctx is done.
func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{
		wait:   wait,
		scopes: make(map[string]*scope),
	}
}

// Acquire enters the scope for key, waiting at most the configured timeout
func (l *LocalLocker) Acquire(ctx context.Context, key string) (func(), error) {
	s := l.ref(key)

	waitCtx := ctx
	if l.wait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	if err := s.sem.Acquire(waitCtx, 1); err != nil {
		l.unref(key, s)
		if ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("lock %s: %w", key, biddingerrors.ErrLockTimeout)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.sem.Release(1)
			l.unref(key, s)
		})
	}, nil
}

func (l *LocalLocker) ref(key string) *scope {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.scopes[key]
	if !ok {
		s = &scope{sem: semaphore.NewWeighted(1)}
		l.scopes[key] = s
	}
	s.refs++
	return s
}

func (l *LocalLocker) unref(key string, s *scope) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(l.scopes, key)
	}
}

// Len returns the number of listings with a held or awaited scope
func (l *LocalLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.scopes)
}
