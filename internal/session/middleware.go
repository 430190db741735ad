package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/share-pet/share-pet/internal/access"
	"github.com/share-pet/share-pet/internal/domain"
	"github.com/share-pet/share-pet/internal/repository"
	"github.com/share-pet/share-pet/pkg/config"
)

// AccountLoader fetches the account a session belongs to.
type AccountLoader interface {
	GetAccount(ctx context.Context, filter repository.Filter) (*domain.Account, error)
}

// Cookies writes and clears the session cookie.
type Cookies struct {
	Name   string
	Secure bool
	store  *Store
}

func NewCookies(cfg config.SessionConfig, store *Store) *Cookies {
	return &Cookies{Name: cfg.CookieName, Secure: cfg.Secure, store: store}
}

// Token returns the session token carried by r, if any.
func (c *Cookies) Token(r *http.Request) string {
	cookie, err := r.Cookie(c.Name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Set attaches token to the response.
func (c *Cookies) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.store.TTL().Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires the session cookie.
func (c *Cookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Middleware resolves the session cookie into an account on the request
// context. Missing, expired or stale sessions leave the request anonymous.
func Middleware(store *Store, cookies *Cookies, accounts AccountLoader, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := cookies.Token(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			accountID, err := store.AccountID(ctx, token)
			if err != nil {
				if !errors.Is(err, ErrNoSession) {
					log.Error("session lookup failed", slog.Any("error", err))
				}
				cookies.Clear(w)
				next.ServeHTTP(w, r)
				return
			}

			account, err := accounts.GetAccount(ctx, repository.Filter{"id": accountID})
			if err != nil || !account.IsActive || account.DateBaned != nil {
				if err != nil && !errors.Is(err, repository.ErrNotFound) {
					log.Error("session account lookup failed", slog.Int64("account_id", accountID), slog.Any("error", err))
				}
				_ = store.Delete(ctx, token)
				cookies.Clear(w)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(access.WithAccount(ctx, account)))
		})
	}
}
