package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SearchQuery narrows a catalog search. Zero-value fields are omitted from
// the request.
type SearchQuery struct {
	Language     string
	Owner        string
	Stage        string
	Subject      string
	MetadataType string
}

// Client queries the catalog search endpoint and keeps results in a
// durable per-(language, owner, subject) file cache.
type Client struct {
	baseURL  string
	http     *http.Client
	cacheDir string
	cacheTTL time.Duration
	log      zerolog.Logger
}

// NewClient builds a catalog client against baseURL. cacheDir is the cache
// root; search results land under its catalog/ subdirectory. A zero
// cacheTTL disables the file cache.
func NewClient(baseURL, cacheDir string, cacheTTL time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 30 * time.Second},
		cacheDir: cacheDir,
		cacheTTL: cacheTTL,
		log:      log.With().Str("component", "catalog").Logger(),
	}
}

// Search runs a catalog search, serving from the file cache when a fresh
// result for the same (language, owner, subject) exists.
func (c *Client) Search(ctx context.Context, q SearchQuery) ([]Resource, error) {
	path := c.cachePath(q)
	if path != "" {
		if resources, ok := c.readCached(path); ok {
			return resources, nil
		}
	}

	resources, err := c.search(ctx, q)
	if err != nil {
		return nil, err
	}
	if path != "" {
		c.writeCached(path, resources)
	}
	return resources, nil
}

func (c *Client) search(ctx context.Context, q SearchQuery) ([]Resource, error) {
	params := url.Values{}
	if q.Language != "" {
		params.Set("lang", q.Language)
	}
	if q.Owner != "" {
		params.Set("owner", q.Owner)
	}
	if q.Stage != "" {
		params.Set("stage", q.Stage)
	}
	if q.Subject != "" {
		params.Set("subject", q.Subject)
	}
	if q.MetadataType != "" {
		params.Set("metadataType", q.MetadataType)
	}

	endpoint := c.baseURL + "/api/v1/catalog/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog search: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("catalog search: read body: %w", err)
	}

	// The endpoint answers either a bare array or a {"data": [...]} wrapper
	// depending on API version.
	var wrapper struct {
		Data []Resource `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapper); err == nil && wrapper.Data != nil {
		return wrapper.Data, nil
	}
	var resources []Resource
	if err := json.Unmarshal(body, &resources); err != nil {
		return nil, fmt.Errorf("catalog search: decode: %w", err)
	}
	return resources, nil
}

// cachePath computes <root>/catalog/<lang>_<owner>_<subject underscored>.json,
// or "" when the query lacks the identifying fields or caching is off.
func (c *Client) cachePath(q SearchQuery) string {
	if c.cacheTTL <= 0 || q.Language == "" || q.Owner == "" || q.Subject == "" {
		return ""
	}
	subject := strings.ReplaceAll(q.Subject, " ", "_")
	name := fmt.Sprintf("%s_%s_%s.json", q.Language, q.Owner, subject)
	return filepath.Join(c.cacheDir, "catalog", name)
}

func (c *Client) readCached(path string) ([]Resource, bool) {
	info, err := os.Stat(path)
	if err != nil || time.Since(info.ModTime()) > c.cacheTTL {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var resources []Resource
	if err := json.Unmarshal(data, &resources); err != nil {
		c.log.Warn().Err(err).Str("path", path).Msg("dropping unreadable catalog cache")
		_ = os.Remove(path)
		return nil, false
	}
	return resources, true
}

func (c *Client) writeCached(path string, resources []Resource) {
	data, err := json.Marshal(resources)
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		c.log.Warn().Err(err).Msg("catalog cache dir")
		return
	}
	tmp := path + ".tmp." + uuid.NewString()
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		c.log.Warn().Err(err).Msg("catalog cache write failed")
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		c.log.Warn().Err(err).Msg("catalog cache rename failed")
		_ = os.Remove(tmp)
	}
}
