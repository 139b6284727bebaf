package cache

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newFSProvider(t *testing.T) *FilesystemProvider {
	t.Helper()
	f, err := NewFilesystemProvider(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	return f
}

func TestFilesystemProviderRoundtrip(t *testing.T) {
	f := newFSProvider(t)
	ctx := context.Background()

	f.Set(ctx, "notes:en:tit", []byte("rows"), time.Minute)
	v, ok := f.Get(ctx, "notes:en:tit")
	require.True(t, ok)
	require.Equal(t, []byte("rows"), v)
	require.True(t, f.Has(ctx, "notes:en:tit"))

	f.Delete(ctx, "notes:en:tit")
	_, ok = f.Get(ctx, "notes:en:tit")
	require.False(t, ok)
}

func TestFilesystemProviderExpiry(t *testing.T) {
	f := newFSProvider(t)
	ctx := context.Background()

	f.Set(ctx, "k", []byte("v"), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, ok := f.Get(ctx, "k")
	require.False(t, ok)

	// Expired file is removed on read.
	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestFilesystemProviderDropsUnreadableFile(t *testing.T) {
	f := newFSProvider(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(f.path("bad"), []byte("not json"), 0o600))
	_, ok := f.Get(ctx, "bad")
	require.False(t, ok)
	_, err := os.Stat(f.path("bad"))
	require.True(t, os.IsNotExist(err))
}

func TestFilesystemProviderClearPrefix(t *testing.T) {
	f := newFSProvider(t)
	ctx := context.Background()

	f.Set(ctx, "notes:a", []byte("1"), 0)
	f.Set(ctx, "words:a", []byte("2"), 0)

	f.ClearPrefix(ctx, "notes:")
	require.False(t, f.Has(ctx, "notes:a"))
	require.True(t, f.Has(ctx, "words:a"))

	f.Clear(ctx)
	require.False(t, f.Has(ctx, "words:a"))
}

func TestSanitizeFileKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"notes:en:tit:1:1", "notes_en_tit_1_1"},
		{"plain-key_1.0", "plain-key_1.0"},
		{"a/b\\c?d", "a_b_c_d"},
	}
	for _, tt := range tests {
		if got := sanitizeFileKey(tt.in); got != tt.want {
			t.Errorf("sanitizeFileKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	long := strings.Repeat("x", 300)
	got := sanitizeFileKey(long)
	require.True(t, strings.HasPrefix(got, "hash_"))
	require.Less(t, len(got), 64)
}

func TestFilesystemProviderStats(t *testing.T) {
	f := newFSProvider(t)
	ctx := context.Background()

	f.Set(ctx, "a", []byte("1"), 0)
	f.Set(ctx, "b", []byte("2"), 0)

	s := f.Stats(ctx)
	require.Equal(t, "files", s.Name)
	require.EqualValues(t, 2, s.ItemCount)
	require.Positive(t, s.SizeBytes)
	require.True(t, s.Available)
}
