package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "share_pet_ratelimit_checks_total",
		Help: "Rate limit checks by backend and result.",
	}, []string{"backend", "result"})

	redisErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "share_pet_ratelimit_redis_errors_total",
		Help: "Redis errors that sent a check to the in-memory fallback.",
	})
)

// AdaptiveLimiter delegates to a primary (Redis) limiter and falls back to
// a stricter in-memory limiter when the primary fails. A rejected attempt is
// reported as ErrLimitExceeded together with its Result.
type AdaptiveLimiter struct {
	primary  Limiter
	fallback Limiter
	log      *slog.Logger
}

// NewAdaptiveLimiter creates a limiter that adapts between Redis and in-memory backends.
func NewAdaptiveLimiter(primary, fallback Limiter, log *slog.Logger) *AdaptiveLimiter {
	if log == nil {
		log = slog.Default()
	}

	return &AdaptiveLimiter{
		primary:  primary,
		fallback: fallback,
		log:      log,
	}
}

func (a *AdaptiveLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	result, err := a.primary.Check(ctx, key, limit, window)
	if err == nil {
		return observe("redis", result)
	}

	redisErrorsTotal.Inc()
	a.log.Warn("redis limiter failed, falling back to in-memory", slog.String("key", key), slog.Any("error", err))

	// The fallback is per process, so halve the budget.
	fallbackLimit := limit / 2
	if fallbackLimit <= 0 {
		fallbackLimit = 1
	}

	result, err = a.fallback.Check(ctx, key, fallbackLimit, window)
	if err != nil && result == nil {
		return nil, err
	}
	return observe("fallback", result)
}

// Reset clears key in both backends; a primary failure is logged, not returned.
func (a *AdaptiveLimiter) Reset(ctx context.Context, key string) error {
	if err := a.primary.Reset(ctx, key); err != nil {
		a.log.Warn("redis limiter reset failed", slog.String("key", key), slog.Any("error", err))
	}
	return a.fallback.Reset(ctx, key)
}

func observe(backend string, result *Result) (*Result, error) {
	if result.Allowed {
		checksTotal.WithLabelValues(backend, "allowed").Inc()
		return result, nil
	}
	checksTotal.WithLabelValues(backend, "rejected").Inc()
	return result, ErrLimitExceeded
}
