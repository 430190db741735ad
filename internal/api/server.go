// Package api exposes the account, profile and chat workflows over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/share-pet/share-pet/internal/access"
	"github.com/share-pet/share-pet/internal/account"
	"github.com/share-pet/share-pet/internal/chat"
	apperrors "github.com/share-pet/share-pet/internal/errors"
	"github.com/share-pet/share-pet/internal/i18n"
	"github.com/share-pet/share-pet/internal/langcache"
	"github.com/share-pet/share-pet/internal/profile"
	"github.com/share-pet/share-pet/internal/repository"
	"github.com/share-pet/share-pet/internal/session"
	"github.com/share-pet/share-pet/pkg/config"
)

// Deps are the collaborators of a Server. Health, Metrics and Media are
// optional handlers mounted when set.
type Deps struct {
	Profiles     *profile.Service
	Accounts     *account.Service
	Chats        *chat.Service
	Hub          *chat.Hub
	Sessions     *session.Store
	Cookies      *session.Cookies
	Settings     repository.SettingRepository
	Languages    *langcache.Cache
	Translations *i18n.Manager
	Errors       *apperrors.Handler
	Health       http.Handler
	Metrics      http.Handler
	Media        http.Handler
	Config       config.AccountsConfig
	Log          *slog.Logger
}

type Server struct {
	profiles     *profile.Service
	accounts     *account.Service
	chats        *chat.Service
	hub          *chat.Hub
	sessions     *session.Store
	cookies      *session.Cookies
	settings     repository.SettingRepository
	languages    *langcache.Cache
	translations *i18n.Manager
	errors       *apperrors.Handler
	cfg          config.AccountsConfig
	log          *slog.Logger

	health  http.Handler
	metrics http.Handler
	media   http.Handler
}

func NewServer(deps Deps) *Server {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	return &Server{
		profiles:     deps.Profiles,
		accounts:     deps.Accounts,
		chats:        deps.Chats,
		hub:          deps.Hub,
		sessions:     deps.Sessions,
		cookies:      deps.Cookies,
		settings:     deps.Settings,
		languages:    deps.Languages,
		translations: deps.Translations,
		errors:       deps.Errors,
		cfg:          deps.Config,
		log:          log,
		health:       deps.Health,
		metrics:      deps.Metrics,
		media:        deps.Media,
	}
}

// Routes registers every endpoint on a new ServeMux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	anonymous := access.Guard{RedirectURL: s.cfg.ProfileURL, AllowTo: access.AllowAnonymous}
	user := access.Guard{RedirectURL: s.cfg.LoginURL, AllowTo: access.AllowUser}
	admin := access.Guard{RedirectURL: s.cfg.LoginURL, AllowTo: access.AllowAdmin}
	userOnly := access.Guard{RedirectURL: s.cfg.ProfileURL, AllowTo: access.AllowUser}

	mux.Handle("GET /accounts/user/signup/{$}", anonymous.WrapFunc(s.signupUserPage))
	mux.Handle("POST /accounts/user/signup/{$}", anonymous.WrapFunc(s.signupUser))
	mux.Handle("GET /accounts/administrator/signup/{$}", admin.WrapFunc(s.signupAdministratorPage))
	mux.Handle("POST /accounts/administrator/signup/{$}", admin.WrapFunc(s.signupAdministrator))

	mux.HandleFunc("GET /accounts/login/{$}", s.loginPage)
	mux.HandleFunc("POST /accounts/login/{$}", s.login)
	mux.HandleFunc("POST /accounts/logout/{$}", s.logout)

	mux.Handle("GET /accounts/user/password-reset/{$}", anonymous.WrapFunc(s.passwordResetPage))
	mux.Handle("POST /accounts/user/password-reset/{$}", anonymous.WrapFunc(s.passwordReset))
	mux.Handle("GET /accounts/user/password-reset-done/{$}", anonymous.WrapFunc(s.passwordResetDone))
	mux.Handle("GET /accounts/user/reset-password-from-key/{token}/{$}", anonymous.WrapFunc(s.resetFromKeyPage))
	mux.Handle("POST /accounts/user/reset-password-from-key/{token}/{$}", anonymous.WrapFunc(s.resetFromKey))
	mux.Handle("GET /accounts/user/reset-password-from-key-done/{$}", anonymous.WrapFunc(s.resetFromKeyDone))
	mux.Handle("POST /accounts/user/password-change/{$}", userOnly.WrapFunc(s.passwordChange))

	mux.HandleFunc("GET /accounts/confirm-email/{key}/{$}", s.confirmEmailPage)
	mux.HandleFunc("POST /accounts/confirm-email/{key}/{$}", s.confirmEmail)
	mux.HandleFunc("GET /accounts/confirm-email-sent/{$}", s.confirmEmailSent)

	mux.Handle("GET /accounts/profile/{$}", user.WrapFunc(s.profilePage))
	mux.Handle("POST /accounts/profile/{$}", user.WrapFunc(s.profileUpdate))

	mux.Handle("GET /chats/{$}", user.WrapFunc(s.chatList))
	mux.Handle("POST /chats/{$}", user.WrapFunc(s.chatCreate))
	mux.Handle("GET /chats/chat/{slug}", user.WrapFunc(s.chatDetail))
	mux.Handle("POST /chats/chat/{slug}", user.WrapFunc(s.chatPost))
	mux.Handle("GET /ws/chat/{slug}", user.WrapFunc(s.chatSocket))

	if s.health != nil {
		mux.Handle("GET /healthz", s.health)
	}
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	if s.media != nil {
		mux.Handle("GET /media/", s.media)
	}

	return mux
}
