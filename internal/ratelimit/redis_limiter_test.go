package ratelimit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestRedisLimiterLoginAttempts(t *testing.T) {
	_, client := setupTestRedis(t)
	limiter := NewRedisLimiter(client, testLogger())
	ctx := context.Background()
	key := LoginKey("ann")

	testCases := []struct {
		name      string
		allowed   bool
		remaining int
	}{
		{name: "first attempt", allowed: true, remaining: 2},
		{name: "second attempt", allowed: true, remaining: 1},
		{name: "third attempt", allowed: true, remaining: 0},
		{name: "fourth attempt", allowed: false, remaining: 0},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			result, err := limiter.Check(ctx, key, 3, 5*time.Minute)
			require.NoError(t, err)
			assert.Equal(t, tc.allowed, result.Allowed)
			assert.Equal(t, tc.remaining, result.Remaining)
		})
	}
}

func TestRedisLimiterLoginKeyFoldsCase(t *testing.T) {
	mr, client := setupTestRedis(t)
	limiter := NewRedisLimiter(client, testLogger())
	ctx := context.Background()

	for _, login := range []string{"Ann@Share.pet", " ann@share.pet "} {
		result, err := limiter.Check(ctx, LoginKey(login), 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	result, err := limiter.Check(ctx, LoginKey("ANN@SHARE.PET"), 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	assert.True(t, mr.Exists(keyPrefix+"login:ann@share.pet"))
	members, err := mr.ZMembers(keyPrefix + "login:ann@share.pet")
	require.NoError(t, err)
	assert.Len(t, members, 3)
}

func TestRedisLimiterResetClearsLogin(t *testing.T) {
	mr, client := setupTestRedis(t)
	limiter := NewRedisLimiter(client, testLogger())
	ctx := context.Background()
	key := LoginKey("bob")

	for i := 0; i < 2; i++ {
		_, err := limiter.Check(ctx, key, 1, time.Minute)
		require.NoError(t, err)
	}

	require.NoError(t, limiter.Reset(ctx, key))
	assert.False(t, mr.Exists(keyPrefix+key))

	result, err := limiter.Check(ctx, key, 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestRedisLimiterResetAtFollowsOldestAttempt(t *testing.T) {
	_, client := setupTestRedis(t)
	limiter := NewRedisLimiter(client, testLogger())
	ctx := context.Background()
	key := LoginKey("carol")

	before := time.Now()
	first, err := limiter.Check(ctx, key, 5, time.Minute)
	require.NoError(t, err)
	assert.WithinDuration(t, before.Add(time.Minute), first.ResetAt, time.Second)

	time.Sleep(50 * time.Millisecond)

	second, err := limiter.Check(ctx, key, 5, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, first.ResetAt.UnixMilli(), second.ResetAt.UnixMilli())

	require.NoError(t, limiter.Reset(ctx, key))
	third, err := limiter.Check(ctx, key, 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, third.ResetAt.After(first.ResetAt))
}

func TestRedisLimiterSlidingWindow(t *testing.T) {
	_, client := setupTestRedis(t)
	limiter := NewRedisLimiter(client, testLogger())
	ctx := context.Background()
	key := ClientKey("10.0.0.1")

	for i := 0; i < 2; i++ {
		result, err := limiter.Check(ctx, key, 2, 200*time.Millisecond)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	time.Sleep(250 * time.Millisecond)

	result, err := limiter.Check(ctx, key, 2, 200*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 1, result.Remaining)
}

func TestRedisLimiterZeroLimitRejects(t *testing.T) {
	mr, client := setupTestRedis(t)
	limiter := NewRedisLimiter(client, testLogger())

	result, err := limiter.Check(context.Background(), LoginKey("dave"), 0, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.False(t, mr.Exists(keyPrefix+LoginKey("dave")))
}

func TestRedisLimiterWithoutClient(t *testing.T) {
	limiter := NewRedisLimiter(nil, testLogger())

	_, err := limiter.Check(context.Background(), LoginKey("erin"), 3, time.Minute)
	assert.Error(t, err)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
