// Package flatlock serialises ingestion per flat.
package flatlock

import (
	"context"
	"errors"
	"sync"
)

// ErrLocked is returned when another ingestion for the flat is in flight.
var ErrLocked = errors.New("flat is locked")

// Locker hands out one lock per flat. Acquire never blocks waiting for a
// busy flat; it returns ErrLocked instead.
type Locker interface {
	Acquire(ctx context.Context, flatID string) (release func(), err error)
}

// MemoryLocker locks flats within one process.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewMemoryLocker creates an empty MemoryLocker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]struct{})}
}

func (l *MemoryLocker) Acquire(ctx context.Context, flatID string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[flatID]; ok {
		return nil, ErrLocked
	}
	l.held[flatID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, flatID)
			l.mu.Unlock()
		})
	}, nil
}
