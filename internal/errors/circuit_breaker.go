package errors

import (
	"errors"
	"sync"
	"time"
)

// BreakerSettings tunes a CircuitBreaker.
type BreakerSettings struct {
	// ErrorThreshold is the failure ratio that opens the circuit once MinRequests were seen.
	ErrorThreshold      float64
	MinRequests         int
	OpenTimeout         time.Duration
	HalfOpenMaxRequests int
	// OnStateChange is called with the lock released.
	OnStateChange func(from, to State)
}

var DefaultBreakerSettings = BreakerSettings{
	ErrorThreshold:      0.5,
	MinRequests:         10,
	OpenTimeout:         30 * time.Second,
	HalfOpenMaxRequests: 3,
}

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

var (
	ErrCircuitOpen             = errors.New("circuit breaker is open")
	errHalfOpenTooManyRequests = errors.New("too many requests in half-open")
)

type CircuitBreaker struct {
	settings BreakerSettings
	now      func() time.Time

	mu              sync.Mutex
	state           State
	failures        int
	successes       int
	requests        int
	lastFailureTime time.Time
}

func NewCircuitBreaker(settings BreakerSettings) *CircuitBreaker {
	if settings.MinRequests <= 0 {
		settings.MinRequests = DefaultBreakerSettings.MinRequests
	}
	if settings.ErrorThreshold <= 0 {
		settings.ErrorThreshold = DefaultBreakerSettings.ErrorThreshold
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = DefaultBreakerSettings.OpenTimeout
	}
	if settings.HalfOpenMaxRequests <= 0 {
		settings.HalfOpenMaxRequests = DefaultBreakerSettings.HalfOpenMaxRequests
	}

	return &CircuitBreaker{
		settings: settings,
		now:      time.Now,
		state:    StateClosed,
	}
}

// Call runs fn unless the circuit is open. Errors from fn are returned unchanged.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if fn == nil {
		return nil
	}

	cb.mu.Lock()
	from := cb.state
	if cb.state == StateOpen {
		if cb.now().Sub(cb.lastFailureTime) < cb.settings.OpenTimeout {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.transitionToHalfOpenLocked()
	}

	current := cb.state
	if current == StateHalfOpen && cb.requests >= cb.settings.HalfOpenMaxRequests {
		cb.mu.Unlock()
		cb.notify(from, current)
		return errHalfOpenTooManyRequests
	}
	cb.requests++
	cb.mu.Unlock()
	cb.notify(from, current)

	callErr := fn()

	cb.mu.Lock()
	before := cb.state
	if callErr != nil {
		cb.failures++

		if cb.state == StateHalfOpen {
			cb.tripToOpenLocked()
		} else {
			cb.evaluateStateLocked()
		}
	} else {
		cb.successes++
		if cb.state == StateHalfOpen && cb.successes >= cb.settings.HalfOpenMaxRequests {
			cb.state = StateClosed
			cb.resetCountersLocked()
		}
	}
	after := cb.state
	cb.mu.Unlock()

	cb.notify(before, after)
	return callErr
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) notify(from, to State) {
	if from != to && cb.settings.OnStateChange != nil {
		cb.settings.OnStateChange(from, to)
	}
}

func (cb *CircuitBreaker) evaluateStateLocked() {
	if cb.requests < cb.settings.MinRequests {
		return
	}

	errorRate := float64(cb.failures) / float64(cb.requests)
	if errorRate >= cb.settings.ErrorThreshold {
		cb.tripToOpenLocked()
	}
}

func (cb *CircuitBreaker) resetCountersLocked() {
	cb.failures = 0
	cb.successes = 0
	cb.requests = 0
}

func (cb *CircuitBreaker) transitionToHalfOpenLocked() {
	cb.state = StateHalfOpen
	cb.resetCountersLocked()
}

func (cb *CircuitBreaker) tripToOpenLocked() {
	cb.state = StateOpen
	cb.lastFailureTime = cb.now()
	cb.resetCountersLocked()
}
