package reports

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestCacheFetchJSONReadThrough(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(ctx context.Context) (any, error) {
		loads++
		return AgingBuckets{Current: 100}, nil
	}

	key, err := cache.BuildKey(ctx, 1, "aging")
	require.NoError(t, err)

	var first AgingBuckets
	require.NoError(t, cache.FetchJSON(ctx, key, &first, loader))
	require.Equal(t, 100.0, first.Current)
	require.Equal(t, 1, loads)

	var second AgingBuckets
	require.NoError(t, cache.FetchJSON(ctx, key, &second, loader))
	require.Equal(t, 100.0, second.Current)
	require.Equal(t, 1, loads, "second fetch served from cache")
}

func TestCacheBumpInvalidates(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	before, err := cache.BuildKey(ctx, 1, "aging")
	require.NoError(t, err)

	require.NoError(t, cache.Bump(ctx, 1))

	after, err := cache.BuildKey(ctx, 1, "aging")
	require.NoError(t, err)
	require.NotEqual(t, before, after)
}

func TestCacheKeysAreTenantScoped(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	keyA, err := cache.BuildKey(ctx, 1, "aging")
	require.NoError(t, err)
	keyB, err := cache.BuildKey(ctx, 2, "aging")
	require.NoError(t, err)
	require.NotEqual(t, keyA, keyB)

	// bumping one tenant leaves the other's key stable
	require.NoError(t, cache.Bump(ctx, 1))
	keyB2, err := cache.BuildKey(ctx, 2, "aging")
	require.NoError(t, err)
	require.Equal(t, keyB, keyB2)
}

func TestNilCacheFallsThrough(t *testing.T) {
	var cache *Cache

	loads := 0
	var out AgingBuckets
	err := cache.FetchJSON(context.Background(), "ignored", &out, func(ctx context.Context) (any, error) {
		loads++
		return AgingBuckets{Days30: 42}, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42.0, out.Days30)
	require.Equal(t, 1, loads)
	require.NoError(t, cache.Bump(context.Background(), 1))
}
