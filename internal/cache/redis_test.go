package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistalabs/vista/internal/common"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	c, err := NewRedis(context.Background(), common.RedisConfig{Address: mr.Addr()}, common.NewSilentLogger())
	require.NoError(t, err, "failed to create redis cache")
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestRedis_RoundTrip(t *testing.T) {
	c, _ := newTestRedis(t)
	ctx := context.Background()

	params := map[string]any{"symbols": []string{"SPY", "VTI"}}
	c.Set(ctx, "etf_compare", params, []byte("payload"))

	got, ok := c.Get(ctx, "etf_compare", map[string]any{"symbols": []string{"SPY", "VTI"}})
	require.True(t, ok, "expected hit")
	assert.Equal(t, "payload", string(got))

	stats := c.Stats(ctx)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, 1, stats.Entries)
}

func TestRedis_Expiry(t *testing.T) {
	c, mr := newTestRedis(t)
	ctx := context.Background()

	c.Set(ctx, "market_data", map[string]any{"s": "SPY"}, []byte("quote"), 5*time.Minute)
	mr.FastForward(6 * time.Minute)

	_, ok := c.Get(ctx, "market_data", map[string]any{"s": "SPY"})
	assert.False(t, ok, "expected miss after expiry")
}

func TestRedis_DeleteAndClear(t *testing.T) {
	c, _ := newTestRedis(t)
	ctx := context.Background()

	c.Set(ctx, "a", map[string]any{"k": 1}, []byte("v"))
	c.Set(ctx, "b", map[string]any{"k": 2}, []byte("v"))

	c.Delete(ctx, "a", map[string]any{"k": 1})
	_, ok := c.Get(ctx, "a", map[string]any{"k": 1})
	assert.False(t, ok, "expected miss after delete")

	c.Clear(ctx)
	assert.Equal(t, 0, c.Stats(ctx).Entries)
}
