// Package access gates HTTP handlers by the role of the signed-in account.
package access

import (
	"context"
	"net/http"

	"github.com/share-pet/share-pet/internal/domain"
)

// AllowTo names the single audience a guarded handler admits.
type AllowTo string

const (
	AllowUser      AllowTo = "user"
	AllowAdmin     AllowTo = "admin"
	AllowAnonymous AllowTo = "anonymous"
)

type accountKey struct{}

// WithAccount stores the signed-in account on ctx. A nil account means anonymous.
func WithAccount(ctx context.Context, account *domain.Account) context.Context {
	return context.WithValue(ctx, accountKey{}, account)
}

// AccountFromContext returns the signed-in account, or nil for anonymous callers.
func AccountFromContext(ctx context.Context) *domain.Account {
	account, _ := ctx.Value(accountKey{}).(*domain.Account)
	return account
}

// Allows reports whether a caller with role may reach a handler guarded for allowTo.
func Allows(role domain.Role, allowTo AllowTo) bool {
	switch role {
	case domain.RoleAnonymous:
		return allowTo == AllowAnonymous
	case domain.RolePlainUser:
		return allowTo == AllowUser
	case domain.RoleAdministrator:
		return false
	case domain.RoleSuperAdmin:
		return allowTo == AllowAdmin
	default:
		return false
	}
}

// Guard redirects every caller that is not in its audience. The decision is
// made on each request from the account in the request context.
type Guard struct {
	RedirectURL string
	AllowTo     AllowTo
}

// Wrap returns next behind the guard.
func (g Guard) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account := AccountFromContext(r.Context())
		if !Allows(account.Role(), g.AllowTo) {
			http.Redirect(w, r, g.RedirectURL, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WrapFunc is Wrap for plain handler functions.
func (g Guard) WrapFunc(next http.HandlerFunc) http.Handler {
	return g.Wrap(next)
}
