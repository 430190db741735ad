// Package langcache keeps each account's interface language in Redis so
// translated responses do not hit the database on every request.
package langcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/share-pet/share-pet/internal/domain"
)

// DefaultTTL bounds how stale a cached language may get if an invalidation is lost.
const DefaultTTL = time.Hour

// Cache provides Redis-backed caching for account languages.
type Cache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewCache constructs a cache backed by the provided Redis client.
func NewCache(client redis.UniversalClient, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// Get returns the cached language, or "" when nothing usable is cached.
func (c *Cache) Get(ctx context.Context, accountID int64) (domain.Language, error) {
	if c == nil || c.client == nil {
		return "", nil
	}

	value, err := c.client.Get(ctx, cacheKey(accountID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("get cached language: %w", err)
	}

	lang := domain.Language(value)
	if !lang.Valid() {
		return "", nil
	}
	return lang, nil
}

// Set stores lang for the account.
func (c *Cache) Set(ctx context.Context, accountID int64, lang domain.Language) error {
	if c == nil || c.client == nil || !lang.Valid() {
		return nil
	}

	if err := c.client.Set(ctx, cacheKey(accountID), string(lang), c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached language: %w", err)
	}
	return nil
}

// Invalidate removes the cached entry if it exists.
func (c *Cache) Invalidate(ctx context.Context, accountID int64) error {
	if c == nil || c.client == nil {
		return nil
	}

	if err := c.client.Del(ctx, cacheKey(accountID)).Err(); err != nil {
		return fmt.Errorf("delete cached language: %w", err)
	}
	return nil
}

func cacheKey(accountID int64) string {
	return fmt.Sprintf("account:%d:language", accountID)
}
