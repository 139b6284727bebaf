package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryProvider is the process-local, highest-priority tier. It is always
// available and its writes cannot fail.
type MemoryProvider struct {
	mu      sync.RWMutex
	entries map[string]Entry
	counters
}

// NewMemoryProvider creates the in-memory tier and starts a janitor that
// sweeps expired entries every sweepInterval. A zero interval disables the
// sweep; expired entries are then removed only when read.
func NewMemoryProvider(sweepInterval time.Duration) *MemoryProvider {
	m := &MemoryProvider{entries: make(map[string]Entry)}
	if sweepInterval > 0 {
		go m.janitor(sweepInterval)
	}
	return m
}

func (m *MemoryProvider) Name() string  { return "memory" }
func (m *MemoryProvider) Priority() int { return 100 }

func (m *MemoryProvider) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		m.recordMiss()
		return nil, false
	}
	if e.Expired(time.Now()) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		m.recordMiss()
		return nil, false
	}
	m.recordHit()
	return e.Value, true
}

func (m *MemoryProvider) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	m.entries[key] = NewEntry(value, ttl)
	m.mu.Unlock()
}

func (m *MemoryProvider) Has(ctx context.Context, key string) bool {
	_, ok := m.Get(ctx, key)
	return ok
}

func (m *MemoryProvider) Delete(_ context.Context, key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

func (m *MemoryProvider) Clear(_ context.Context) {
	m.mu.Lock()
	m.entries = make(map[string]Entry)
	m.mu.Unlock()
}

// ClearPrefix removes every entry whose key starts with prefix.
func (m *MemoryProvider) ClearPrefix(_ context.Context, prefix string) {
	m.mu.Lock()
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
	m.mu.Unlock()
}

func (m *MemoryProvider) IsAvailable(_ context.Context) bool { return true }

func (m *MemoryProvider) Stats(_ context.Context) Stats {
	m.mu.RLock()
	count := int64(len(m.entries))
	var size int64
	for _, e := range m.entries {
		size += int64(len(e.Value))
	}
	m.mu.RUnlock()

	return Stats{
		Name:      m.Name(),
		ItemCount: count,
		SizeBytes: size,
		HitRate:   m.hitRate(),
		Available: true,
	}
}

func (m *MemoryProvider) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		m.mu.Lock()
		for k, e := range m.entries {
			if e.Expired(now) {
				delete(m.entries, k)
			}
		}
		m.mu.Unlock()
	}
}
