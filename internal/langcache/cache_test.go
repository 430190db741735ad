package langcache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/share-pet/share-pet/internal/domain"
)

func setup(t *testing.T) (*miniredis.Miniredis, *Cache) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewCache(client, time.Minute)
}

func TestCacheRoundTrip(t *testing.T) {
	mr, cache := setup(t)
	ctx := context.Background()

	lang, err := cache.Get(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, lang)

	require.NoError(t, cache.Set(ctx, 7, domain.LanguageUA))
	lang, err = cache.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.LanguageUA, lang)

	mr.FastForward(2 * time.Minute)
	lang, err = cache.Get(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, lang)
}

func TestCacheInvalidate(t *testing.T) {
	_, cache := setup(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, 7, domain.LanguageRU))
	require.NoError(t, cache.Invalidate(ctx, 7))

	lang, err := cache.Get(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, lang)
}

func TestCacheIgnoresUnknownLanguages(t *testing.T) {
	mr, cache := setup(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, 7, domain.Language("de")))
	assert.False(t, mr.Exists(cacheKey(7)))

	require.NoError(t, mr.Set(cacheKey(7), "de"))
	lang, err := cache.Get(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, lang)
}

func TestNilCache(t *testing.T) {
	var cache *Cache
	lang, err := cache.Get(context.Background(), 1)
	assert.NoError(t, err)
	assert.Empty(t, lang)
	assert.NoError(t, cache.Set(context.Background(), 1, domain.LanguageEN))
	assert.NoError(t, cache.Invalidate(context.Background(), 1))
}
