package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTTL is the chain-wide entry lifetime used when a caller does not
// pass one, and for warming writes.
const DefaultTTL = 6 * time.Hour

// ChainOptions configures chain construction.
type ChainOptions struct {
	// Providers is the candidate tier list, in any order.
	Providers []Provider

	// Order lists provider names first-to-last. Providers not named fall
	// back to descending Priority after the ordered ones.
	Order []string

	// KeepUnavailable skips the construction-time availability filter.
	KeepUnavailable bool

	// DefaultTTL overrides DefaultTTL for writes without an explicit TTL.
	DefaultTTL time.Duration

	Logger zerolog.Logger
}

// Chain composes an ordered list of providers. Reads fall through the chain
// and warm earlier tiers on a late hit; writes fan out to every tier.
type Chain struct {
	mu         sync.RWMutex
	providers  []Provider
	defaultTTL time.Duration
	log        zerolog.Logger
}

// NewChain orders the candidate providers, drops the ones that are not
// available (probed in parallel), and returns the assembled chain.
func NewChain(ctx context.Context, opts ChainOptions) *Chain {
	ttl := opts.DefaultTTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Chain{
		defaultTTL: ttl,
		log:        opts.Logger.With().Str("component", "cache-chain").Logger(),
	}

	ordered := orderProviders(opts.Providers, opts.Order)
	if opts.KeepUnavailable {
		c.providers = ordered
		return c
	}
	c.providers = filterAvailable(ctx, ordered, c.log)
	return c
}

// orderProviders places explicitly named providers first, in the order
// given, followed by the rest in descending priority.
func orderProviders(candidates []Provider, order []string) []Provider {
	byName := make(map[string]Provider, len(candidates))
	for _, p := range candidates {
		byName[p.Name()] = p
	}

	var out []Provider
	seen := make(map[string]bool, len(candidates))
	for _, name := range order {
		if p, ok := byName[name]; ok && !seen[name] {
			out = append(out, p)
			seen[name] = true
		}
	}

	var rest []Provider
	for _, p := range candidates {
		if !seen[p.Name()] {
			rest = append(rest, p)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool { return rest[i].Priority() > rest[j].Priority() })
	return append(out, rest...)
}

// filterAvailable probes all candidates concurrently and keeps the ones
// that answer, preserving order.
func filterAvailable(ctx context.Context, candidates []Provider, log zerolog.Logger) []Provider {
	avail := make([]bool, len(candidates))
	var wg sync.WaitGroup
	for i, p := range candidates {
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()
			avail[i] = p.IsAvailable(ctx)
		}(i, p)
	}
	wg.Wait()

	out := make([]Provider, 0, len(candidates))
	for i, p := range candidates {
		if avail[i] {
			out = append(out, p)
		} else {
			log.Info().Str("provider", p.Name()).Msg("tier unavailable, dropped from chain")
		}
	}
	return out
}

// Get tries tiers strictly in chain order and returns the first hit. A hit
// in a later tier triggers a background warming write into every earlier
// tier; the caller's result is never delayed by warming.
func (c *Chain) Get(ctx context.Context, key string) ([]byte, bool) {
	providers := c.snapshot()
	for i, p := range providers {
		value, ok := p.Get(ctx, key)
		if !ok {
			continue
		}
		if i > 0 {
			c.warm(providers[:i], key, value)
		}
		return value, true
	}
	return nil, false
}

// warm writes value into the given earlier tiers without blocking the
// triggering read. Failures are the providers' to log.
func (c *Chain) warm(earlier []Provider, key string, value []byte) {
	targets := make([]Provider, len(earlier))
	copy(targets, earlier)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for _, p := range targets {
			p.Set(ctx, key, value, c.defaultTTL)
		}
	}()
}

// Set writes to every tier concurrently and returns once the first write
// attempt settles, so the slowest tier never stalls the caller. The
// remaining writes finish in the background.
func (c *Chain) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	providers := c.snapshot()
	if len(providers) == 0 {
		return
	}
	// The writes outlive this call: the caller returns on the first
	// settled attempt, so the remaining tiers must not be aborted when
	// the request context is cancelled.
	bg := context.WithoutCancel(ctx)
	settled := make(chan struct{}, len(providers))
	for _, p := range providers {
		go func(p Provider) {
			p.Set(bg, key, value, ttl)
			settled <- struct{}{}
		}(p)
	}
	select {
	case <-settled:
	case <-ctx.Done():
	}
}

// Has reports whether any tier holds a live entry, short-circuiting on the
// first that does.
func (c *Chain) Has(ctx context.Context, key string) bool {
	for _, p := range c.snapshot() {
		if p.Has(ctx, key) {
			return true
		}
	}
	return false
}

// Delete removes key from every tier and waits for all attempts to settle.
func (c *Chain) Delete(ctx context.Context, key string) {
	c.fanOutWait(func(p Provider) { p.Delete(ctx, key) })
}

// Clear empties every tier and waits for all attempts to settle.
func (c *Chain) Clear(ctx context.Context) {
	c.fanOutWait(func(p Provider) { p.Clear(ctx) })
}

func (c *Chain) fanOutWait(op func(Provider)) {
	var wg sync.WaitGroup
	for _, p := range c.snapshot() {
		wg.Add(1)
		go func(p Provider) {
			defer wg.Done()
			op(p)
		}(p)
	}
	wg.Wait()
}

// Add inserts a provider at runtime after re-checking its availability.
// It is placed immediately before the upstream marker, or last when the
// chain has none.
func (c *Chain) Add(ctx context.Context, p Provider) bool {
	if !p.IsAvailable(ctx) {
		c.log.Info().Str("provider", p.Name()).Msg("not added, unavailable")
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	pos := len(c.providers)
	for i, existing := range c.providers {
		if _, ok := existing.(*UpstreamProvider); ok {
			pos = i
			break
		}
	}
	c.providers = append(c.providers[:pos], append([]Provider{p}, c.providers[pos:]...)...)
	return true
}

// Remove drops the named provider from the chain.
func (c *Chain) Remove(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, p := range c.providers {
		if p.Name() == name {
			c.providers = append(c.providers[:i], c.providers[i+1:]...)
			return true
		}
	}
	return false
}

// Reorder rearranges the active chain; names not currently in the chain are
// ignored, and unnamed providers keep their relative order after the named
// ones.
func (c *Chain) Reorder(order []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers = orderProviders(c.providers, order)
}

// Provider returns the named tier, or nil.
func (c *Chain) Provider(name string) Provider {
	for _, p := range c.snapshot() {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// Stats snapshots every tier in chain order.
func (c *Chain) Stats(ctx context.Context) []Stats {
	providers := c.snapshot()
	out := make([]Stats, len(providers))
	for i, p := range providers {
		out[i] = p.Stats(ctx)
	}
	return out
}

func (c *Chain) snapshot() []Provider {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Provider, len(c.providers))
	copy(out, c.providers)
	return out
}
