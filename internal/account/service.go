// Package account implements signup, login, e-mail confirmation and password
// management for share-pet accounts.
package account

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/share-pet/share-pet/internal/domain"
	"github.com/share-pet/share-pet/internal/mail"
	"github.com/share-pet/share-pet/internal/media"
	"github.com/share-pet/share-pet/internal/ratelimit"
	"github.com/share-pet/share-pet/internal/repository"
	"github.com/share-pet/share-pet/internal/session"
	"github.com/share-pet/share-pet/internal/validation"
	"github.com/share-pet/share-pet/pkg/config"
)

// Paths embedded in mails.
const (
	SignupPath         = "/accounts/user/signup/"
	confirmEmailPrefix = "/accounts/confirm-email/"
	resetFromKeyPrefix = "/accounts/user/reset-password-from-key/"
)

// ConfirmEmailPath is the confirmation link for key.
func ConfirmEmailPath(key string) string {
	return confirmEmailPrefix + key + "/"
}

// ResetFromKeyPath is the password reset link for an account and key.
func ResetFromKeyPath(accountID int64, key string) string {
	return resetFromKeyPrefix + strconv.FormatInt(accountID, 36) + "-" + key + "/"
}

// KeyStore issues and redeems one-time keys.
type KeyStore interface {
	Issue(ctx context.Context, purpose session.Purpose, accountID int64, ttl time.Duration) (string, error)
	Peek(ctx context.Context, purpose session.Purpose, key string) (int64, error)
	Consume(ctx context.Context, purpose session.Purpose, key string) (int64, error)
}

// Result is the outcome of a form submission. Errors are field-scoped
// messages; Account is set when the submission succeeded and names one.
type Result struct {
	Errors  validation.FieldErrors
	Account *domain.Account
}

// OK reports whether the submission was accepted.
func (r *Result) OK() bool {
	return len(r.Errors) == 0
}

func rejected(errs validation.FieldErrors) *Result {
	return &Result{Errors: errs}
}

// Deps are the collaborators of a Service.
type Deps struct {
	DB            *sql.DB
	Accounts      repository.AccountRepository
	Settings      repository.SettingRepository
	Notifications repository.NotificationRepository
	Keys          KeyStore
	Mail          mail.Queue
	Media         media.Storage
	Limiter       ratelimit.Limiter
	Blacklist     *validation.Blacklist
	Log           *slog.Logger
}

// Service provides the account workflows.
type Service struct {
	db            *sql.DB
	accounts      repository.AccountRepository
	settings      repository.SettingRepository
	notifications repository.NotificationRepository
	keys          KeyStore
	mail          mail.Queue
	media         media.Storage
	limiter       ratelimit.Limiter
	blacklist     *validation.Blacklist
	log           *slog.Logger

	cfg       config.AccountsConfig
	baseURL   string
	loginRule ratelimit.Rule
	passwords PasswordPolicy
	now       func() time.Time
}

// NewService constructs a new Service instance.
func NewService(deps Deps, cfg config.AccountsConfig, baseURL string) *Service {
	return &Service{
		db:            deps.DB,
		accounts:      deps.Accounts,
		settings:      deps.Settings,
		notifications: deps.Notifications,
		keys:          deps.Keys,
		mail:          deps.Mail,
		media:         deps.Media,
		limiter:       deps.Limiter,
		blacklist:     deps.Blacklist,
		log:           deps.Log,
		cfg:           cfg,
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		loginRule:     ratelimit.Rule{Limit: cfg.LoginAttemptsLimit, Window: cfg.LoginAttemptsWindow},
		passwords:     PasswordPolicy{MinLength: cfg.PasswordMinLength},
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Provision creates account together with its default Setting and
// Notification rows in one transaction. On failure nothing is stored and
// account.ID is left zero.
func (s *Service) Provision(ctx context.Context, account *domain.Account) error {
	err := repository.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.accounts.WithTx(tx).Create(ctx, account); err != nil {
			return err
		}

		setting := domain.NewSetting(account.ID)
		if err := s.settings.WithTx(tx).Create(ctx, setting); err != nil {
			return err
		}

		return s.notifications.WithTx(tx).Create(ctx, domain.NewNotification(setting.ID))
	})
	if err != nil {
		account.ID = 0
		s.logError("provision", 0, err)
		return fmt.Errorf("provision account: %w", err)
	}
	return nil
}

// languageOf returns the account's interface language, English when unknown.
func (s *Service) languageOf(ctx context.Context, accountID int64) string {
	record, err := s.settings.GetFields(ctx, []string{"language"}, repository.Filter{"account_id": accountID})
	if err != nil {
		return string(domain.LanguageEN)
	}
	lang, _ := record["language"].(string)
	return lang
}

// sendMail enqueues a mail. Delivery is best effort: the workflow that
// triggered it has already been committed.
func (s *Service) sendMail(ctx context.Context, payload mail.Payload) {
	if s.mail == nil {
		return
	}
	if err := s.mail.Send(ctx, payload); err != nil {
		s.log.ErrorContext(ctx, "account mail not queued",
			slog.String("template", string(payload.Template)),
			slog.Any("error", err),
		)
	}
}

func (s *Service) logError(operation string, accountID int64, err error) {
	if s.log == nil {
		return
	}

	s.log.Error("account service error",
		slog.String("operation", operation),
		slog.Int64("account_id", accountID),
		slog.Any("error", err),
	)
}
