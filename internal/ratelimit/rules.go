package ratelimit

import (
	"fmt"
	"strings"
	"time"

	"github.com/share-pet/share-pet/pkg/config"
)

// Rule is a limit over a sliding window. A zero Limit disables the rule.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Enabled reports whether the rule should be enforced.
func (r Rule) Enabled() bool {
	return r.Limit > 0 && r.Window > 0
}

// Rules holds the configured limits.
type Rules struct {
	login  Rule
	client Rule
}

// NewRules reads the login attempt limit and the per-client HTTP limit.
func NewRules(accounts config.AccountsConfig, http config.HTTPConfig) *Rules {
	return &Rules{
		login: Rule{
			Limit:  accounts.LoginAttemptsLimit,
			Window: accounts.LoginAttemptsWindow,
		},
		client: Rule{
			Limit:  http.RateLimit.Limit,
			Window: http.RateLimit.Duration(),
		},
	}
}

// Login is the rule for login attempts against one account identifier.
func (r *Rules) Login() Rule {
	return r.login
}

// Client is the rule for mutating requests from one client address.
func (r *Rules) Client() Rule {
	return r.client
}

// LoginKey buckets attempts by the submitted login, case-insensitively.
func LoginKey(login string) string {
	return fmt.Sprintf("login:%s", strings.ToLower(strings.TrimSpace(login)))
}

// ClientKey buckets requests by client address.
func ClientKey(addr string) string {
	return fmt.Sprintf("client:%s", addr)
}
