package cache

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// upstreamProbeTTL is how long one reachability probe result is reused.
const upstreamProbeTTL = 30 * time.Second

// UpstreamProvider anchors the end of the chain. It represents the
// network-backed original source: it never satisfies a Get, ignores writes,
// and exists so the chain has a fixed last position and a way to probe
// whether the upstream host is reachable at all.
type UpstreamProvider struct {
	probeURL string
	client   *http.Client

	mu        sync.Mutex
	reachable bool
	probedAt  time.Time
}

// NewUpstreamProvider builds the marker tier probing probeURL.
func NewUpstreamProvider(probeURL string) *UpstreamProvider {
	return &UpstreamProvider{
		probeURL: probeURL,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

func (u *UpstreamProvider) Name() string  { return "upstream" }
func (u *UpstreamProvider) Priority() int { return 0 }

func (u *UpstreamProvider) Get(context.Context, string) ([]byte, bool) { return nil, false }

func (u *UpstreamProvider) Set(context.Context, string, []byte, time.Duration) {}

func (u *UpstreamProvider) Has(context.Context, string) bool { return false }

func (u *UpstreamProvider) Delete(context.Context, string) {}

func (u *UpstreamProvider) Clear(context.Context) {}

// IsAvailable reports whether the upstream host answered a HEAD request.
// The result is cached for upstreamProbeTTL so busy request paths do not
// re-probe on every call.
func (u *UpstreamProvider) IsAvailable(ctx context.Context) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	if time.Since(u.probedAt) < upstreamProbeTTL {
		return u.reachable
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u.probeURL, nil)
	if err != nil {
		u.reachable = false
		u.probedAt = time.Now()
		return false
	}
	resp, err := u.client.Do(req)
	if resp != nil {
		resp.Body.Close()
	}
	u.reachable = err == nil
	u.probedAt = time.Now()
	return u.reachable
}

func (u *UpstreamProvider) Stats(ctx context.Context) Stats {
	return Stats{
		Name:      u.Name(),
		ItemCount: -1,
		SizeBytes: -1,
		Available: u.IsAvailable(ctx),
	}
}
