package cache

import (
	"context"
	"sync"
	"time"
)

// memoryEntry is an entry in the in-process strategy.
type memoryEntry struct {
	value     string
	expiresAt time.Time
	sliding   bool
	ttl       time.Duration
}

// MemoryStrategy is an in-process Strategy used by tests and by deployments
// that run without a cache backend. Expired entries are evicted lazily on
// read and swept by a background janitor.
type MemoryStrategy struct {
	mu    sync.RWMutex
	items map[string]*memoryEntry
	now   func() time.Time

	shutdown chan struct{}
	done     chan struct{}
}

// MemoryOption configures a MemoryStrategy.
type MemoryOption func(*MemoryStrategy)

// WithClock injects a time source, for deterministic expiry tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStrategy) { m.now = now }
}

// NewMemoryStrategy creates an in-process strategy. The janitor goroutine
// runs until ctx is cancelled or Close is called.
func NewMemoryStrategy(ctx context.Context, opts ...MemoryOption) *MemoryStrategy {
	m := &MemoryStrategy{
		items:    make(map[string]*memoryEntry),
		now:      time.Now,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(m)
	}

	go m.janitor(ctx)
	return m
}

func (m *MemoryStrategy) janitor(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.shutdown:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *MemoryStrategy) sweep() {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	for key, entry := range m.items {
		if now.After(entry.expiresAt) {
			delete(m.items, key)
		}
	}
}

// Get implements Strategy
func (m *MemoryStrategy) Get(_ context.Context, key string) (string, bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.items[key]
	if !ok {
		return "", false, nil
	}
	if now.After(entry.expiresAt) {
		delete(m.items, key)
		return "", false, nil
	}

	if entry.sliding {
		entry.expiresAt = now.Add(entry.ttl)
	}
	return entry.value, true, nil
}

// Set implements Strategy
func (m *MemoryStrategy) Set(ctx context.Context, key, value string) error {
	return m.SetWithExpiry(ctx, key, value, DefaultTimeoutMinutes, true)
}

// SetWithExpiry implements Strategy
func (m *MemoryStrategy) SetWithExpiry(_ context.Context, key, value string, timeoutMinutes int, sliding bool) error {
	if timeoutMinutes <= 0 {
		timeoutMinutes = DefaultTimeoutMinutes
	}
	ttl := time.Duration(timeoutMinutes) * time.Minute

	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = &memoryEntry{
		value:     value,
		expiresAt: m.now().Add(ttl),
		sliding:   sliding,
		ttl:       ttl,
	}
	return nil
}

// Remove implements Strategy
func (m *MemoryStrategy) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// Len returns the number of live entries, for tests.
func (m *MemoryStrategy) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Close stops the janitor. Safe to call once.
func (m *MemoryStrategy) Close() {
	close(m.shutdown)
	<-m.done
}
