package logger

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/share-pet/share-pet/pkg/config"
)

// InitSentry configures the global Sentry hub. The returned function flushes
// buffered events and is a no-op when Sentry is disabled.
func InitSentry(cfg config.SentryConfig, env, release string) (func(timeout time.Duration) bool, error) {
	if !cfg.Enabled {
		return func(time.Duration) bool { return true }, nil
	}

	environment := cfg.Environment
	if environment == "" {
		environment = env
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: environment,
		Release:     release,
		SampleRate:  cfg.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init sentry: %w", err)
	}
	return sentry.Flush, nil
}
