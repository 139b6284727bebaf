// Package cache implements the tiered response cache: a provider contract,
// four backend tiers (memory, filesystem, redis, upstream marker), and a
// chain that composes them with fallback and warming semantics.
package cache

import (
	"context"
	"sync/atomic"
	"time"
)

// Entry is a single cached value with its lifecycle timestamps.
// A zero ExpiresAt means the entry never expires.
type Entry struct {
	Value     []byte    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the entry is past its expiry at the given instant.
func (e *Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// NewEntry builds an entry for value with the given TTL.
// A zero or negative ttl produces a non-expiring entry.
func NewEntry(value []byte, ttl time.Duration) Entry {
	now := time.Now()
	e := Entry{Value: value, CreatedAt: now}
	if ttl > 0 {
		e.ExpiresAt = now.Add(ttl)
	}
	return e
}

// Stats is a point-in-time snapshot of a provider, recomputed on demand.
// ItemCount and SizeBytes are -1 when the backend cannot report them cheaply.
type Stats struct {
	Name      string  `json:"name"`
	ItemCount int64   `json:"item_count"`
	SizeBytes int64   `json:"size_bytes"`
	HitRate   float64 `json:"hit_rate"`
	Available bool    `json:"available"`
}

// Provider is one cache tier. Implementations must be safe for concurrent
// use. Get never fails on a benign miss; Set, Delete and Clear log failures
// internally and never surface them, since a cache is an optimization rather
// than a correctness dependency.
type Provider interface {
	// Name identifies the tier for ordering, stats and logs.
	Name() string

	// Priority orders tiers when no explicit order is given; higher is tried
	// first.
	Priority() int

	// Get returns the cached value and true on a live hit, (nil, false) on a
	// miss or expired entry.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores value under key with the given TTL, best effort.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)

	// Has reports whether a live entry exists without returning it.
	Has(ctx context.Context, key string) bool

	// Delete removes key, best effort.
	Delete(ctx context.Context, key string)

	// Clear removes every entry owned by this tier, best effort.
	Clear(ctx context.Context)

	// IsAvailable reports whether the tier can serve requests right now.
	IsAvailable(ctx context.Context) bool

	// Stats returns a snapshot of the tier.
	Stats(ctx context.Context) Stats
}

// PrefixClearer is implemented by tiers that can clear a key subspace
// without dropping everything. The admin surface type-asserts for it.
type PrefixClearer interface {
	ClearPrefix(ctx context.Context, prefix string)
}

// counters tracks hits and misses without locks. Providers embed it and
// record on every Get; HitRate snapshots the ratio.
type counters struct {
	hits   atomic.Uint64
	misses atomic.Uint64
}

func (c *counters) recordHit()  { c.hits.Add(1) }
func (c *counters) recordMiss() { c.misses.Add(1) }

func (c *counters) hitRate() float64 {
	hits := c.hits.Load()
	total := hits + c.misses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
