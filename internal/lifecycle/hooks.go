// Package lifecycle releases process resources in a controlled order on exit.
package lifecycle

import "context"

// Hook describes a named shutdown hook.
type Hook struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Closer adapts a Close method without a context into a hook function.
func Closer(close func() error) func(context.Context) error {
	return func(context.Context) error {
		return close()
	}
}
