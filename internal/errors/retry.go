package errors

import (
	"context"
	"errors"
	"math"
	"time"
)

// RetryPolicy bounds WithRetry. The zero value is replaced by DefaultRetryPolicy.
type RetryPolicy struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:        3,
	InitialBackoff:    100 * time.Millisecond,
	MaxBackoff:        5 * time.Second,
	BackoffMultiplier: 2.0,
}

// WithRetry runs fn with DefaultRetryPolicy.
func WithRetry(ctx context.Context, fn func() error) error {
	return DefaultRetryPolicy.Do(ctx, fn)
}

// Do runs fn until it succeeds, returns a non-retryable error, or the attempts run out.
// Backoff waits are interrupted by ctx.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	if fn == nil {
		return nil
	}
	if p.MaxRetries == 0 && p.InitialBackoff == 0 {
		p = DefaultRetryPolicy
	}

	var err error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = fn()
		if err == nil {
			return nil
		}

		if !IsRetryable(err) || attempt == p.MaxRetries {
			return err
		}

		timer := time.NewTimer(p.backoff(attempt + 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return err
}

func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Retryable
	}

	return false
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	delay := float64(p.InitialBackoff) * math.Pow(p.BackoffMultiplier, float64(attempt))
	backoff := time.Duration(delay)
	if backoff > p.MaxBackoff {
		return p.MaxBackoff
	}

	return backoff
}
