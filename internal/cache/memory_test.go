package cache

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_RoundTrip(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	payload := []byte(`{"symbols":["SPY","VTI"]}`)
	c.Set(ctx, "etf_compare", map[string]any{"symbols": []string{"SPY", "VTI"}}, payload)

	got, ok := c.Get(ctx, "etf_compare", map[string]any{"symbols": []string{"SPY", "VTI"}})
	require.True(t, ok, "expected cache hit")
	assert.Equal(t, payload, got)
}

func TestMemory_KeyOrderIndependent(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	c.Set(ctx, "x", map[string]any{"a": 1, "b": 2}, []byte("v"))

	_, ok := c.Get(ctx, "x", map[string]any{"b": 2, "a": 1})
	assert.True(t, ok, "expected hit for same params in different order")

	_, ok = c.Get(ctx, "x", map[string]any{"a": 1, "b": 3})
	assert.False(t, ok, "expected miss for different param values")

	_, ok = c.Get(ctx, "y", map[string]any{"a": 1, "b": 2})
	assert.False(t, ok, "expected miss for different operation type")
}

func TestMemory_TTLExpiry(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	c := NewMemory(WithClock(func() time.Time { return clock() }))
	ctx := context.Background()

	c.Set(ctx, "market_data", map[string]any{"symbols": []string{"SPY"}}, []byte("quote"), 5*time.Minute)

	_, ok := c.Get(ctx, "market_data", map[string]any{"symbols": []string{"SPY"}})
	require.True(t, ok, "expected hit before expiry")

	// Advance past the TTL; the entry must never be served again.
	now = now.Add(5*time.Minute + time.Second)
	_, ok = c.Get(ctx, "market_data", map[string]any{"symbols": []string{"SPY"}})
	assert.False(t, ok, "expected miss after TTL elapsed")

	// Lazy expiry deleted the entry.
	assert.Equal(t, 0, c.Stats(ctx).Entries)
}

func TestMemory_HitCounter(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()
	params := map[string]any{"symbols": []string{"SPY"}}

	c.Set(ctx, "market_data", params, []byte("quote"))

	c.Get(ctx, "market_data", params)
	c.Get(ctx, "market_data", params)

	assert.Equal(t, int64(2), c.HitCount("market_data", params))
	assert.Equal(t, int64(2), c.Stats(ctx).Hits)
}

func TestMemory_SizeThresholdSweep(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	c := NewMemory(WithMaxEntries(10), WithClock(func() time.Time { return clock() }))
	ctx := context.Background()

	// Fill with entries that expire quickly.
	for i := 0; i < 10; i++ {
		c.Set(ctx, "market_data", map[string]any{"i": i}, []byte("v"), time.Minute)
	}
	now = now.Add(2 * time.Minute)

	// This write pushes the count over the threshold and triggers a sweep.
	c.Set(ctx, "market_data", map[string]any{"i": 99}, []byte("v"), time.Hour)

	stats := c.Stats(ctx)
	assert.Equal(t, 1, stats.Entries, "only the fresh entry should survive the sweep")
	assert.NotZero(t, stats.Cleanups)
}

func TestMemory_Cleanup(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	c := NewMemory(WithClock(func() time.Time { return clock() }))
	ctx := context.Background()

	c.Set(ctx, "a", map[string]any{"k": 1}, []byte("v"), time.Minute)
	c.Set(ctx, "b", map[string]any{"k": 2}, []byte("v"), time.Hour)

	now = now.Add(30 * time.Minute)

	assert.Equal(t, 1, c.Cleanup(ctx))

	_, ok := c.Get(ctx, "b", map[string]any{"k": 2})
	assert.True(t, ok, "unexpired entry should survive cleanup")
}

func TestGetOrFetch(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()
	params := map[string]any{"symbols": []string{"SPY"}}

	calls := 0
	fetch := func(context.Context) ([]byte, error) {
		calls++
		return []byte("fetched"), nil
	}

	got, cached, err := GetOrFetch(ctx, c, "market_data", params, 5*time.Minute, fetch)
	require.NoError(t, err)
	assert.False(t, cached, "first call should fetch")
	assert.Equal(t, "fetched", string(got))

	got, cached, err = GetOrFetch(ctx, c, "market_data", params, 5*time.Minute, fetch)
	require.NoError(t, err)
	assert.True(t, cached, "second call should hit cache")
	assert.Equal(t, "fetched", string(got))
	assert.Equal(t, 1, calls, "fetch should run once")
}

func TestGetOrFetch_FetchError(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	_, _, err := GetOrFetch(ctx, c, "news", map[string]any{"q": "etf"}, time.Minute, func(context.Context) ([]byte, error) {
		return nil, fmt.Errorf("provider down")
	})
	require.Error(t, err, "fetch error must propagate")

	// Errors are not cached.
	_, ok := c.Get(ctx, "news", map[string]any{"q": "etf"})
	assert.False(t, ok, "failed fetch must not leave a cache entry")
}

func TestKey_Format(t *testing.T) {
	key := Key("market_data", map[string]any{"symbols": []string{"SPY"}})
	assert.True(t, strings.HasPrefix(key, "market_data:"), "key should be prefixed with the operation type, got %q", key)
	assert.Greater(t, len(key), len("market_data:"))
}
