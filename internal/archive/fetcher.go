package archive

import (
	"context"
	"errors"
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
	"golang.org/x/sync/singleflight"
)

var (
	// ErrNoRef is returned when a fetch has neither a ref nor a download
	// URL to work from.
	ErrNoRef = errors.New("archive: no ref or zipball url")

	// ErrUnavailable is returned when every download fallback has been
	// exhausted. It is permanent for the call; the next caller-initiated
	// request starts the ladder over.
	ErrUnavailable = errors.New("archive: not available")
)

// Fetcher downloads snapshot archives, validates them by magic bytes, and
// persists them under a deterministic per-(org, repo, ref) path. Safe for
// concurrent use; simultaneous first-time fetches of the same archive are
// collapsed into a single download.
type Fetcher struct {
	baseURL string
	root    string
	http    *http.Client
	group   singleflight.Group
	log     zerolog.Logger
}

// NewFetcher builds a fetcher downloading from baseURL and persisting
// archives under root. timeout bounds each download attempt.
func NewFetcher(baseURL, root string, timeout time.Duration, log zerolog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Fetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		root:    root,
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "archive").Logger(),
	}
}

// LocalPath is the deterministic on-disk location for an archive:
// <root>/zips/<org>/<repo>/<org>_<repo>_<sanitizedRef>.zip.
func (f *Fetcher) LocalPath(org, repo, ref string) string {
	safe := SanitizeRef(ref)
	name := fmt.Sprintf("%s_%s_%s.zip", org, repo, safe)
	return filepath.Join(f.root, "zips", org, repo, name)
}

// SanitizeRef replaces every character outside [A-Za-z0-9._-] with an
// underscore so any ref can be used in a filename.
func SanitizeRef(ref string) string {
	var b strings.Builder
	for _, r := range ref {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// GetOrDownload returns the archive bytes for (org, repo), serving from the
// local store when a valid copy exists. At least one of ref and zipballURL
// is required. A locally cached file that fails magic-byte validation is
// deleted and re-downloaded. Concurrent callers for the same archive share
// one download.
func (f *Fetcher) GetOrDownload(ctx context.Context, org, repo, ref, zipballURL string) ([]byte, error) {
	if ref == "" && zipballURL == "" {
		return nil, ErrNoRef
	}
	if ref == "" {
		ref = TagFromURL(zipballURL)
	}
	if ref == "" {
		ref = "master"
	}

	path := f.LocalPath(org, repo, ref)
	if data, ok := f.readLocal(path); ok {
		return data, nil
	}

	v, err, _ := f.group.Do(path, func() (any, error) {
		// Re-check under the flight lock: a racing caller may have landed
		// the file while this one waited.
		if data, ok := f.readLocal(path); ok {
			return data, nil
		}
		data, err := f.download(ctx, org, repo, ref, zipballURL)
		if err != nil {
			return nil, err
		}
		f.persist(path, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// readLocal loads a previously stored archive, deleting it when it fails
// validation so the caller falls through to a fresh download.
func (f *Fetcher) readLocal(path string) ([]byte, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	if !Valid(data) {
		f.log.Warn().Str("path", path).Msg("cached archive corrupted, re-downloading")
		_ = os.Remove(path)
		return nil, false
	}
	return data, true
}

// download walks the URL fallback ladder: the resolved URL first, then its
// .tar.gz variant, then any Link header relation marked immutable on the
// first response. Each downloaded payload must pass validation.
func (f *Fetcher) download(ctx context.Context, org, repo, ref, zipballURL string) ([]byte, error) {
	primary := zipballURL
	if primary == "" {
		primary = fmt.Sprintf("%s/%s/%s/archive/%s.zip", f.baseURL, org, repo, url.PathEscape(ref))
	}

	data, header, err := f.fetchURL(ctx, primary)
	if err == nil {
		return data, nil
	}
	f.log.Debug().Err(err).Str("url", primary).Msg("primary download failed")

	if alt := tarballVariant(primary); alt != "" {
		if data, _, err := f.fetchURL(ctx, alt); err == nil {
			return data, nil
		} else {
			f.log.Debug().Err(err).Str("url", alt).Msg("tarball download failed")
		}
	}

	if immutable := immutableLink(header); immutable != "" {
		if data, _, err := f.fetchURL(ctx, immutable); err == nil {
			return data, nil
		} else {
			f.log.Debug().Err(err).Str("url", immutable).Msg("immutable link download failed")
		}
	}

	return nil, ErrUnavailable
}

// fetchURL downloads one URL and validates the payload. The response
// header is returned even on failure so the caller can inspect Link
// relations.
func (f *Fetcher) fetchURL(ctx context.Context, rawURL string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, err
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, resp.Header, fmt.Errorf("status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.Header, err
	}
	if !Valid(data) {
		return nil, resp.Header, fmt.Errorf("invalid archive payload (%d bytes)", len(data))
	}
	return data, resp.Header, nil
}

// persist writes validated bytes to the local store, creating parent
// directories as needed. Failures are logged; the caller already holds the
// bytes it needs.
func (f *Fetcher) persist(path string, data []byte) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		f.log.Warn().Err(err).Str("path", path).Msg("archive store dir failed")
		return
	}
	tmp := path + ".tmp." + uuid.NewString()
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		f.log.Warn().Err(err).Str("path", path).Msg("archive store write failed")
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		f.log.Warn().Err(err).Str("path", path).Msg("archive store rename failed")
		_ = os.Remove(tmp)
	}
}

// tarballVariant swaps a .zip suffix for .tar.gz, preserving any query
// string. Returns "" when the URL is not a zip URL.
func tarballVariant(rawURL string) string {
	base := rawURL
	query := ""
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		base, query = rawURL[:i], rawURL[i:]
	}
	if !strings.HasSuffix(base, ".zip") {
		return ""
	}
	return strings.TrimSuffix(base, ".zip") + ".tar.gz" + query
}

// immutableLink finds the URL of a Link header relation marked immutable,
// e.g. `<https://host/x.zip>; rel="immutable"`. Returns "" when absent.
func immutableLink(header http.Header) string {
	if header == nil {
		return ""
	}
	for _, link := range header.Values("Link") {
		for _, part := range strings.Split(link, ",") {
			if !strings.Contains(part, "immutable") {
				continue
			}
			start := strings.IndexByte(part, '<')
			end := strings.IndexByte(part, '>')
			if start >= 0 && end > start {
				return part[start+1 : end]
			}
		}
	}
	return ""
}
