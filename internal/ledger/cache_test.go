package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *RecentCache {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRecentCache(client, time.Minute)
}

func TestRecentCacheRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	_, ok := c.Get(ctx, 20, "")
	require.False(t, ok)

	txs := []Transaction{{ID: "t1", CustomerName: "Ramesh", Total: dec("1000")}}
	c.Set(ctx, 20, "", txs)

	got, ok := c.Get(ctx, 20, "")
	require.True(t, ok)
	require.Len(t, got, 1)
	require.Equal(t, "t1", got[0].ID)
	require.True(t, got[0].Total.Equal(dec("1000")))
}

func TestRecentCacheKeyedByLimitAndExclusion(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, 20, "", []Transaction{{ID: "a"}})
	c.Set(ctx, 20, "Adjust", []Transaction{{ID: "b"}})

	got, ok := c.Get(ctx, 20, "adjust")
	require.True(t, ok, "exclusion names are case folded")
	require.Equal(t, "b", got[0].ID)

	_, ok = c.Get(ctx, 10, "")
	require.False(t, ok)
}

func TestRecentCacheInvalidate(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, 20, "", []Transaction{{ID: "a"}})
	c.Set(ctx, 50, "adjust", []Transaction{{ID: "b"}})

	c.Invalidate(ctx)

	_, ok := c.Get(ctx, 20, "")
	require.False(t, ok)
	_, ok = c.Get(ctx, 50, "adjust")
	require.False(t, ok)
}

func TestRecentCacheNilSafe(t *testing.T) {
	var c *RecentCache
	ctx := context.Background()

	_, ok := c.Get(ctx, 20, "")
	require.False(t, ok)
	c.Set(ctx, 20, "", nil)
	c.Invalidate(ctx)
}
