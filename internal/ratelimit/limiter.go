// Package ratelimit counts attempts per key over a sliding window.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// Result captures the outcome of a rate-limit evaluation.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns the whole seconds until the window frees up, at least one.
func (r *Result) RetryAfter(now time.Time) int {
	if r == nil {
		return 1
	}
	seconds := int(r.ResetAt.Sub(now).Seconds())
	if seconds < 1 {
		return 1
	}
	return seconds
}

// Limiter records an attempt for key and reports whether it fits the limit.
// Reset forgets every attempt recorded for key, e.g. after a successful login.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
	Reset(ctx context.Context, key string) error
}

// ErrLimitExceeded indicates the rate limit has been reached for the key.
var ErrLimitExceeded = errors.New("rate limit exceeded")
