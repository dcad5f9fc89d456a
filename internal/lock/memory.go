package lock

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	owner     *memoryLock
	expiresAt time.Time
}

// MemoryLocker is a Locker for a single process.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*memoryEntry
	now   func() time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		locks: make(map[string]*memoryEntry),
		now:   time.Now,
	}
}

func (m *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if entry, exists := m.locks[key]; exists && now.Before(entry.expiresAt) {
		return nil, ErrLockBusy
	}

	l := &memoryLock{locker: m, key: key}
	m.locks[key] = &memoryEntry{owner: l, expiresAt: now.Add(ttl)}
	return l, nil
}

// IsLocked reports whether key is currently held.
func (m *MemoryLocker) IsLocked(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	return exists && m.now().Before(entry.expiresAt)
}

type memoryLock struct {
	locker *MemoryLocker
	key    string
}

func (l *memoryLock) Key() string {
	return l.key
}

func (l *memoryLock) Release(ctx context.Context) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()

	entry, exists := l.locker.locks[l.key]
	if !exists || entry.owner != l {
		return ErrLockNotHeld
	}
	delete(l.locker.locks, l.key)
	return nil
}
