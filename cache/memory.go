package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// Memory is an in-process token cache guarded by a single mutex. It suits
// single-node deployments and tests.
type Memory struct {
	mu        sync.Mutex
	entries   map[string]memoryEntry
	retention time.Duration
	now       func() time.Time
}

// MemoryOption configures a [Memory] cache.
type MemoryOption func(*Memory)

// WithRetention bounds how long an unconsumed entry survives. Expired
// entries are dropped lazily on access.
func WithRetention(d time.Duration) MemoryOption {
	return func(m *Memory) {
		m.retention = d
	}
}

// WithClock overrides the clock used for retention.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemory creates an empty [Memory] cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Put(_ context.Context, key, value string) error {
	e := memoryEntry{value: value}
	if m.retention > 0 {
		e.expiresAt = m.now().Add(m.retention)
	}

	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookupLocked(key)
	if !ok {
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Evict(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Take removes key and returns the value it held, under one lock.
func (m *Memory) Take(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookupLocked(key)
	if !ok {
		return "", false, nil
	}
	delete(m.entries, key)
	return e.value, true, nil
}

// Len reports the number of live entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k := range m.entries {
		if _, ok := m.lookupLocked(k); ok {
			n++
		}
	}
	return n
}

func (m *Memory) lookupLocked(key string) (memoryEntry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}
