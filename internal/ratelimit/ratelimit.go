package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Decision is the outcome of one Check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether the caller identified by key may proceed.
type Limiter interface {
	Check(ctx context.Context, key string) (Decision, error)
}

// Store is a keyed counter whose keys expire window after the first hit.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int, resetAt time.Time, err error)
}

// WindowLimiter allows limit hits per key per window. The window starts
// at the first hit and the counter resets once it expires.
type WindowLimiter struct {
	store  Store
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

func NewWindowLimiter(store Store, prefix string, limit int, window time.Duration) *WindowLimiter {
	return &WindowLimiter{store: store, limit: limit, window: window, prefix: prefix, now: time.Now}
}

func (l *WindowLimiter) Check(ctx context.Context, key string) (Decision, error) {
	count, resetAt, err := l.store.Incr(ctx, l.prefix+key, l.window)
	if err != nil {
		return Decision{}, err
	}
	if count > l.limit {
		retry := resetAt.Sub(l.now())
		if retry < 0 {
			retry = 0
		}
		return Decision{Allowed: false, RetryAfter: retry}, nil
	}
	return Decision{Allowed: true, Remaining: l.limit - count}, nil
}

type memEntry struct {
	count   int
	resetAt time.Time
}

// MemoryStore keeps counters in process memory; they are lost on restart.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memEntry), now: time.Now}
}

func (m *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	e, ok := m.entries[key]
	if !ok || !now.Before(e.resetAt) {
		e = &memEntry{resetAt: now.Add(window)}
		m.entries[key] = e
	}
	e.count++
	return e.count, e.resetAt, nil
}

// Sweep drops expired windows and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	removed := 0
	for k, e := range m.entries {
		if !now.Before(e.resetAt) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed
}
