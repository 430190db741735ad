package access

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/share-pet/share-pet/internal/domain"
)

func TestGuardDecisionTable(t *testing.T) {
	anonymous := (*domain.Account)(nil)
	user := &domain.Account{ID: 1}
	administrator := &domain.Account{ID: 2, IsAdministrator: true}
	superuser := &domain.Account{ID: 3, IsSuperuser: true}
	adminSuperuser := &domain.Account{ID: 4, IsAdministrator: true, IsSuperuser: true}

	tests := []struct {
		name    string
		account *domain.Account
		allowTo AllowTo
		allowed bool
	}{
		{"anonymous to user", anonymous, AllowUser, false},
		{"anonymous to admin", anonymous, AllowAdmin, false},
		{"anonymous to anonymous", anonymous, AllowAnonymous, true},
		{"user to user", user, AllowUser, true},
		{"user to admin", user, AllowAdmin, false},
		{"user to anonymous", user, AllowAnonymous, false},
		{"administrator to user", administrator, AllowUser, false},
		{"administrator to admin", administrator, AllowAdmin, false},
		{"administrator to anonymous", administrator, AllowAnonymous, false},
		{"superuser to user", superuser, AllowUser, false},
		{"superuser to admin", superuser, AllowAdmin, true},
		{"superuser to anonymous", superuser, AllowAnonymous, false},
		{"administrator superuser to admin", adminSuperuser, AllowAdmin, true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			var reached bool
			guard := Guard{RedirectURL: "/accounts/login/", AllowTo: tc.allowTo}
			handler := guard.WrapFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/guarded/", nil)
			req = req.WithContext(WithAccount(req.Context(), tc.account))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.allowed, reached)
			if tc.allowed {
				assert.Equal(t, http.StatusOK, rec.Code)
			} else {
				assert.Equal(t, http.StatusFound, rec.Code)
				assert.Equal(t, "/accounts/login/", rec.Header().Get("Location"))
			}
		})
	}
}

func TestAccountFromEmptyContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, AccountFromContext(req.Context()))
}
