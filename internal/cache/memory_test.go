package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryProviderRoundtrip(t *testing.T) {
	m := NewMemoryProvider(0)
	ctx := context.Background()

	m.Set(ctx, "k", []byte("v"), time.Minute)
	v, ok := m.Get(ctx, "k")
	require.True(t, ok)
	require.Equal(t, []byte("v"), v)
	require.True(t, m.Has(ctx, "k"))

	m.Delete(ctx, "k")
	_, ok = m.Get(ctx, "k")
	require.False(t, ok)
}

func TestMemoryProviderExpiry(t *testing.T) {
	m := NewMemoryProvider(0)
	ctx := context.Background()

	m.Set(ctx, "k", []byte("v"), 10*time.Millisecond)
	_, ok := m.Get(ctx, "k")
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok = m.Get(ctx, "k")
	require.False(t, ok, "entry must be invisible at or after expiry")
}

func TestMemoryProviderZeroTTLNeverExpires(t *testing.T) {
	m := NewMemoryProvider(0)
	ctx := context.Background()

	m.Set(ctx, "k", []byte("v"), 0)
	time.Sleep(10 * time.Millisecond)
	_, ok := m.Get(ctx, "k")
	require.True(t, ok)
}

func TestMemoryProviderClearPrefix(t *testing.T) {
	m := NewMemoryProvider(0)
	ctx := context.Background()

	m.Set(ctx, "notes:a", []byte("1"), 0)
	m.Set(ctx, "notes:b", []byte("2"), 0)
	m.Set(ctx, "words:a", []byte("3"), 0)

	m.ClearPrefix(ctx, "notes:")
	require.False(t, m.Has(ctx, "notes:a"))
	require.False(t, m.Has(ctx, "notes:b"))
	require.True(t, m.Has(ctx, "words:a"))
}

func TestMemoryProviderStats(t *testing.T) {
	m := NewMemoryProvider(0)
	ctx := context.Background()

	m.Set(ctx, "k", []byte("value"), 0)
	m.Get(ctx, "k")
	m.Get(ctx, "absent")

	s := m.Stats(ctx)
	require.Equal(t, "memory", s.Name)
	require.EqualValues(t, 1, s.ItemCount)
	require.EqualValues(t, 5, s.SizeBytes)
	require.InDelta(t, 0.5, s.HitRate, 0.001)
	require.True(t, s.Available)
}
