package lock

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Locker serialises read-then-write sequences that share a key, such as
// revision numbering for one owner or rank resequencing for one sibling group.
type Locker interface {
	// Lock blocks until the key is held or ctx is done. The returned func releases it.
	Lock(ctx context.Context, key string) (func(), error)
}

type localEntry struct {
	sem  *semaphore.Weighted
	refs int
}

// Local is an in-process Locker backed by one weighted semaphore per active key.
// Entries are dropped once no caller holds or waits on them.
type Local struct {
	mu      sync.Mutex
	entries map[string]*localEntry
}

// NewLocal constructs an in-process locker.
func NewLocal() *Local {
	return &Local{entries: make(map[string]*localEntry)}
}

var _ Locker = (*Local)(nil)

// Lock acquires key, honouring ctx cancellation while waiting.
func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &localEntry{sem: semaphore.NewWeighted(1)}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	if err := entry.sem.Acquire(ctx, 1); err != nil {
		l.release(key, entry, false)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, entry, true) })
	}, nil
}

func (l *Local) release(key string, entry *localEntry, held bool) {
	if held {
		entry.sem.Release(1)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, key)
	}
}

// Nop never blocks. It is used where a caller already serialises access.
type Nop struct{}

// Lock returns immediately.
func (Nop) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}
