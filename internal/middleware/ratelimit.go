package middleware

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/share-pet/share-pet/internal/ratelimit"
)

// RateLimit throttles state-changing requests per client address.
type RateLimit struct {
	limiter ratelimit.Limiter
	rule    ratelimit.Rule
	log     *slog.Logger
	now     func() time.Time
}

// NewRateLimit constructs a rate-limit middleware component.
func NewRateLimit(limiter ratelimit.Limiter, rules *ratelimit.Rules, log *slog.Logger) *RateLimit {
	if log == nil {
		log = slog.Default()
	}

	return &RateLimit{
		limiter: limiter,
		rule:    rules.Client(),
		log:     log,
		now:     time.Now,
	}
}

// Handle rejects requests over the client rule with 429. Safe methods and
// limiter failures pass through.
func (m *RateLimit) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.limiter == nil || !m.rule.Enabled() || isSafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		addr := clientAddr(r)
		result, err := m.limiter.Check(r.Context(), ratelimit.ClientKey(addr), m.rule.Limit, m.rule.Window)
		if err != nil && !errors.Is(err, ratelimit.ErrLimitExceeded) {
			m.log.WarnContext(r.Context(), "rate limiter error", slog.String("client", addr), slog.Any("error", err))
			next.ServeHTTP(w, r)
			return
		}

		if errors.Is(err, ratelimit.ErrLimitExceeded) || (result != nil && !result.Allowed) {
			m.log.WarnContext(r.Context(), "rate limit exceeded", slog.String("client", addr), slog.String("path", r.URL.Path))
			w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter(m.now())))
			writeJSONError(w, http.StatusTooManyRequests, "Too many requests. Try again later.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
