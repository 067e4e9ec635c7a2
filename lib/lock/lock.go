package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrHeld is returned by [Locker.Acquire] when another run holds the lock.
var ErrHeld = errors.New("lock is held by another run")

type Locker interface {
	// Acquire never blocks waiting for the lock. The returned release func must be called exactly once.
	Acquire(ctx context.Context) (release func(ctx context.Context) error, err error)
}

// Local guards runs within a single process.
type Local struct {
	mu sync.Mutex
}

func NewLocal() *Local {
	return &Local{}
}

func (l *Local) Acquire(_ context.Context) (func(ctx context.Context) error, error) {
	if !l.mu.TryLock() {
		return nil, ErrHeld
	}

	var once sync.Once
	return func(_ context.Context) error {
		once.Do(l.mu.Unlock)
		return nil
	}, nil
}
