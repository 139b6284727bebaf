package cache

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// FilesystemProvider is the durable local tier. Entries are stored as JSON
// files under a root directory, one file per key.
type FilesystemProvider struct {
	dir string
	log zerolog.Logger
	counters
}

// NewFilesystemProvider creates the file-backed tier rooted at dir,
// creating the directory if needed.
func NewFilesystemProvider(dir string, log zerolog.Logger) (*FilesystemProvider, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FilesystemProvider{dir: dir, log: log.With().Str("cache", "files").Logger()}, nil
}

func (f *FilesystemProvider) Name() string  { return "files" }
func (f *FilesystemProvider) Priority() int { return 50 }

func (f *FilesystemProvider) Get(_ context.Context, key string) ([]byte, bool) {
	path := f.path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		f.recordMiss()
		return nil, false
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		// Unreadable entries are treated as absent and removed.
		f.log.Warn().Err(err).Str("key", key).Msg("dropping unreadable cache file")
		_ = os.Remove(path)
		f.recordMiss()
		return nil, false
	}
	if e.Expired(time.Now()) {
		_ = os.Remove(path)
		f.recordMiss()
		return nil, false
	}
	f.recordHit()
	return e.Value, true
}

func (f *FilesystemProvider) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	data, err := json.Marshal(NewEntry(value, ttl))
	if err != nil {
		f.log.Warn().Err(err).Str("key", key).Msg("cache write skipped")
		return
	}

	// Write to a temporary file first, then rename, so readers never see a
	// partially written entry.
	path := f.path(key)
	tmp := path + ".tmp." + uuid.NewString()
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		f.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		f.log.Warn().Err(err).Str("key", key).Msg("cache rename failed")
		_ = os.Remove(tmp)
	}
}

func (f *FilesystemProvider) Has(_ context.Context, key string) bool {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		return false
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return false
	}
	return !e.Expired(time.Now())
}

func (f *FilesystemProvider) Delete(_ context.Context, key string) {
	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		f.log.Warn().Err(err).Str("key", key).Msg("cache delete failed")
	}
}

func (f *FilesystemProvider) Clear(ctx context.Context) {
	f.ClearPrefix(ctx, "")
}

// ClearPrefix removes every entry whose key starts with prefix. An empty
// prefix clears everything.
func (f *FilesystemProvider) ClearPrefix(_ context.Context, prefix string) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		f.log.Warn().Err(err).Msg("cache clear failed")
		return
	}
	want := sanitizeFileKey(prefix)
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		if prefix == "" || strings.HasPrefix(de.Name(), want) {
			_ = os.Remove(filepath.Join(f.dir, de.Name()))
		}
	}
}

func (f *FilesystemProvider) IsAvailable(_ context.Context) bool {
	info, err := os.Stat(f.dir)
	return err == nil && info.IsDir()
}

func (f *FilesystemProvider) Stats(_ context.Context) Stats {
	s := Stats{Name: f.Name(), ItemCount: -1, SizeBytes: -1, HitRate: f.hitRate()}
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return s
	}
	s.Available = true
	s.ItemCount = 0
	s.SizeBytes = 0
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		s.ItemCount++
		if info, err := de.Info(); err == nil {
			s.SizeBytes += info.Size()
		}
	}
	return s
}

func (f *FilesystemProvider) path(key string) string {
	return filepath.Join(f.dir, sanitizeFileKey(key)+".json")
}

// sanitizeFileKey makes a cache key safe for use as a filename. Very long
// keys are replaced by a hash to stay under filesystem name limits.
func sanitizeFileKey(key string) string {
	if len(key) > 200 {
		return fmt.Sprintf("hash_%x", md5.Sum([]byte(key)))
	}
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
