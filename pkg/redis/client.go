// Package redis provides the shared Redis client for sessions, one-time keys and rate limiting.
package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/share-pet/share-pet/pkg/config"
)

// Client wraps the go-redis client. It satisfies goredis.UniversalClient so
// stores can accept either a real connection or a test client.
type Client struct {
	*goredis.Client
}

// New creates a Redis client configured with cfg, instruments it and verifies the connection with Ping.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	opts := &goredis.Options{
		Addr:            cfg.Addr,
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		PoolTimeout:     cfg.PoolTimeout,
		ConnMaxIdleTime: cfg.IdleTimeout,
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: cfg.MinRetryBackoff,
		MaxRetryBackoff: cfg.MaxRetryBackoff,
	}
	rdb := goredis.NewClient(opts)
	rdb.AddHook(metricsHook{})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Client{rdb}, nil
}

// Options returns the options asynq needs to share the same Redis instance.
func (c *Client) Options() *goredis.Options {
	return c.Client.Options()
}
