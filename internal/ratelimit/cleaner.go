package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner periodically drops idle buckets of the in-memory fallback limiter.
type Cleaner struct {
	limiter  *MemoryLimiter
	log      *slog.Logger
	interval time.Duration
	maxAge   time.Duration
}

// NewCleaner constructs a Cleaner instance.
func NewCleaner(limiter *MemoryLimiter, log *slog.Logger, interval, maxAge time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		limiter:  limiter,
		log:      log,
		interval: interval,
		maxAge:   maxAge,
	}
}

// Run starts the cleaner loop until the context is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if c.limiter == nil || c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("rate limit cleaner stopped", slog.String("reason", ctx.Err().Error()))
			return
		case <-ticker.C:
			before := c.limiter.Len()
			c.limiter.Cleanup(c.maxAge)
			if removed := before - c.limiter.Len(); removed > 0 {
				c.log.Debug("rate limit buckets cleaned", slog.Int("removed", removed))
			}
		}
	}
}
