// Package metrics exposes the Prometheus instruments of the service.
package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests labeled by route, method and status",
		},
		[]string{"route", "method", "status"},
	)
	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	profileUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profile_updates_total",
			Help: "Profile form submissions labeled by form and outcome",
		},
		[]string{"form", "outcome"},
	)
	profileTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profile_state_transitions_total",
			Help: "Total number of profile update workflow transitions",
		},
		[]string{"form", "from", "to"},
	)
	signupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signups_total",
			Help: "Accounts created labeled by role",
		},
		[]string{"role"},
	)
	passwordResetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "password_reset_requests_total",
			Help: "Password reset requests labeled by outcome",
		},
		[]string{"outcome"},
	)
	loginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_attempts_total",
			Help: "Login attempts labeled by outcome",
		},
		[]string{"outcome"},
	)
	chatMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Chat messages labeled by outcome (accepted, dropped)",
		},
		[]string{"outcome"},
	)
	mailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mails_total",
			Help: "Mails labeled by template and status",
		},
		[]string{"template", "status"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by type and severity",
		},
		[]string{"type", "severity"},
	)
	accountsByRole = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "accounts_by_role",
			Help: "Number of accounts per role",
		},
		[]string{"role"},
	)
)

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

// RecordHTTPRequest tracks a served request. route is the mux pattern, not the raw path.
func RecordHTTPRequest(route, method string, status int, duration time.Duration) {
	route = orUnknown(route)
	httpRequestsTotal.WithLabelValues(route, method, statusClass(status)).Inc()
	httpRequestDurationSeconds.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordProfileUpdate counts a finished profile update; outcome is persisted or rejected.
func RecordProfileUpdate(form, outcome string) {
	profileUpdatesTotal.WithLabelValues(orUnknown(form), orUnknown(outcome)).Inc()
}

// RecordProfileTransition tracks workflow transitions of profile updates.
func RecordProfileTransition(form, from, to string) {
	profileTransitionsTotal.WithLabelValues(orUnknown(form), orUnknown(from), orUnknown(to)).Inc()
}

func RecordSignup(role string) {
	signupsTotal.WithLabelValues(orUnknown(role)).Inc()
}

func RecordPasswordReset(outcome string) {
	passwordResetsTotal.WithLabelValues(orUnknown(outcome)).Inc()
}

func RecordLoginAttempt(outcome string) {
	loginAttemptsTotal.WithLabelValues(orUnknown(outcome)).Inc()
}

func RecordChatMessage(outcome string) {
	chatMessagesTotal.WithLabelValues(orUnknown(outcome)).Inc()
}

func RecordMail(template, status string) {
	mailsTotal.WithLabelValues(orUnknown(template), orUnknown(status)).Inc()
}

// RecordError increments error counters with metadata.
func RecordError(errType, severity string) {
	errorsTotal.WithLabelValues(orUnknown(errType), orUnknown(severity)).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// RoleCounter reports how many accounts exist per role.
type RoleCounter interface {
	CountByRole(ctx context.Context) (map[string]int, error)
}

// AccountsCollector periodically refreshes the accounts_by_role gauge.
type AccountsCollector struct {
	counter  RoleCounter
	log      *slog.Logger
	interval time.Duration
}

// NewAccountsCollector builds a collector polling counter every interval.
func NewAccountsCollector(counter RoleCounter, log *slog.Logger, interval time.Duration) *AccountsCollector {
	if interval <= 0 {
		interval = time.Minute
	}
	return &AccountsCollector{counter: counter, log: log, interval: interval}
}

// Run polls until ctx is cancelled.
func (c *AccountsCollector) Run(ctx context.Context) {
	if c == nil || c.counter == nil {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if err := c.collect(ctx); err != nil && c.log != nil {
			c.log.Warn("collect account metrics", slog.Any("error", err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *AccountsCollector) collect(ctx context.Context) error {
	counts, err := c.counter.CountByRole(ctx)
	if err != nil {
		return err
	}

	accountsByRole.Reset()
	for role, count := range counts {
		accountsByRole.WithLabelValues(orUnknown(role)).Set(float64(count))
	}
	return nil
}
