package account

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/share-pet/share-pet/internal/domain"
	apperrors "github.com/share-pet/share-pet/internal/errors"
	"github.com/share-pet/share-pet/internal/forms"
	"github.com/share-pet/share-pet/internal/mail"
	"github.com/share-pet/share-pet/internal/media"
	"github.com/share-pet/share-pet/internal/session"
	"github.com/share-pet/share-pet/internal/validation"
	"github.com/share-pet/share-pet/pkg/metrics"
)

// SignupUser registers a plain user. The account starts inactive until its
// e-mail address is confirmed; the confirmation mail is queued on success.
func (s *Service) SignupUser(ctx context.Context, data map[string]string, avatar *media.Upload) (*Result, error) {
	var input signupUserInput
	errs, err := forms.Bind(data, &input)
	if err != nil {
		return nil, err
	}

	if !hasField(errs, "username") {
		if n := s.cfg.UsernameMinLength; utf8.RuneCountInString(input.Username) < n {
			errs.Add("username", fmt.Sprintf(MsgUsernameTooShort, n))
		} else if err := s.checkUsername(ctx, input.Username, &errs); err != nil {
			return nil, err
		}
	}
	if err := s.checkNewEmail(ctx, input.Email, &errs); err != nil {
		return nil, err
	}
	s.checkNewPassword(input.Password1, &errs)

	if len(errs) > 0 {
		return rejected(errs), nil
	}

	account := &domain.Account{
		Username:  domain.StringPtr(input.Username),
		Email:     domain.StringPtr(input.Email),
		FirstName: input.FirstName,
		LastName:  input.LastName,
	}
	if err := s.register(ctx, account, input.Password1, avatar); err != nil {
		return nil, err
	}
	return &Result{Account: account}, nil
}

// SignupAdministrator registers an administrator on behalf of a superuser.
// Administrators have no username.
func (s *Service) SignupAdministrator(ctx context.Context, data map[string]string) (*Result, error) {
	var input signupAdministratorInput
	errs, err := forms.Bind(data, &input)
	if err != nil {
		return nil, err
	}

	if err := s.checkNewEmail(ctx, input.Email, &errs); err != nil {
		return nil, err
	}
	s.checkNewPassword(input.Password1, &errs)

	if len(errs) > 0 {
		return rejected(errs), nil
	}

	account := &domain.Account{
		Email:           domain.StringPtr(input.Email),
		FirstName:       input.FirstName,
		LastName:        input.LastName,
		IsAdministrator: true,
	}
	if err := s.register(ctx, account, input.Password1, nil); err != nil {
		return nil, err
	}
	return &Result{Account: account}, nil
}

// CreateSuperuser provisions an active, verified superuser. Invalid input is
// reported as a validation error since there is no form to re-render.
func (s *Service) CreateSuperuser(ctx context.Context, username, email, password string) (*domain.Account, error) {
	var errs validation.FieldErrors
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" && email == "" {
		errs.Add(forms.NonFieldErrors, "Either a username or an e-mail address is required.")
	}
	if username != "" {
		if !domain.UsernamePattern.MatchString(username) {
			errs.Add("username", forms.MsgInvalidName)
		} else if err := s.checkUsername(ctx, username, &errs); err != nil {
			return nil, err
		}
	}
	if email != "" {
		if err := s.checkNewEmail(ctx, email, &errs); err != nil {
			return nil, err
		}
	}
	s.checkNewPassword(password, &errs)

	if len(errs) > 0 {
		return nil, apperrors.NewValidationError(describe(errs))
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		Username:      domain.StringPtr(username),
		Email:         domain.StringPtr(email),
		PasswordHash:  hash,
		IsSuperuser:   true,
		IsStaff:       true,
		IsActive:      true,
		EmailVerified: true,
		DateJoined:    s.now(),
	}
	if err := s.Provision(ctx, account); err != nil {
		return nil, err
	}

	metrics.RecordSignup(account.Role().String())
	s.log.Info("superuser created", slog.Int64("account_id", account.ID))
	return account, nil
}

func (s *Service) register(ctx context.Context, account *domain.Account, password string, avatar *media.Upload) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	account.PasswordHash = hash
	account.DateJoined = s.now()

	if avatar != nil && s.media != nil {
		key, err := s.media.Save(ctx, media.FolderAvatars, avatar.Filename, avatar.Body, avatar.ContentType)
		if err != nil {
			s.logError("signup.avatar", 0, err)
			return apperrors.NewExternalError("media", err)
		}
		account.Avatar = &key
	}

	if err := s.Provision(ctx, account); err != nil {
		if account.Avatar != nil {
			_ = s.media.Delete(ctx, *account.Avatar)
		}
		return err
	}

	metrics.RecordSignup(account.Role().String())
	s.log.InfoContext(ctx, "account signed up",
		slog.Int64("account_id", account.ID),
		slog.String("role", account.Role().String()),
	)

	s.sendConfirmation(ctx, account)
	return nil
}

func (s *Service) sendConfirmation(ctx context.Context, account *domain.Account) {
	key, err := s.keys.Issue(ctx, session.PurposeEmailConfirmation, account.ID, s.cfg.EmailConfirmationTTL)
	if err != nil {
		s.logError("signup.confirmation_key", account.ID, err)
		return
	}

	s.sendMail(ctx, mail.Payload{
		Template: mail.TemplateConfirmEmail,
		To:       domain.StringValue(account.Email),
		Language: s.languageOf(ctx, account.ID),
		Data: map[string]string{
			"activate_url": s.baseURL + ConfirmEmailPath(key),
			"username":     account.DisplayName(),
		},
	})
}

// checkUsername applies the blacklist and uniqueness rules to a new username.
// Unlike a profile edit, the blacklist holds even when no account exists yet.
func (s *Service) checkUsername(ctx context.Context, username string, errs *validation.FieldErrors) error {
	if s.blacklist.Contains(username) {
		errs.Add("username", validation.MsgUsernameBlacklisted)
		return nil
	}

	refs, err := s.accounts.ListUsernames(ctx)
	if err != nil {
		s.logError("signup.usernames", 0, err)
		return fmt.Errorf("list usernames: %w", err)
	}
	// A new account has no pk yet, so nothing is excluded.
	*errs = append(*errs, validation.ValidateUsername(0, username, validation.Refs(refs), s.blacklist)...)
	return nil
}

func (s *Service) checkNewEmail(ctx context.Context, email string, errs *validation.FieldErrors) error {
	if email == "" || hasField(*errs, "email") {
		return nil
	}

	existing, err := s.accounts.ListByEmail(ctx, email)
	if err != nil {
		s.logError("signup.email", 0, err)
		return fmt.Errorf("list accounts by email: %w", err)
	}
	if len(existing) > 0 {
		errs.Add("email", MsgEmailTaken)
	}
	return nil
}

func (s *Service) checkNewPassword(password string, errs *validation.FieldErrors) {
	if password == "" {
		return
	}
	for _, msg := range s.passwords.Validate(password) {
		errs.Add("password1", msg)
	}
}

func hasField(errs validation.FieldErrors, field string) bool {
	for _, fe := range errs {
		if fe.Field == field {
			return true
		}
	}
	return false
}

func describe(errs validation.FieldErrors) string {
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		parts = append(parts, fe.Field+": "+strings.Join(fe.ErrorMessages, " "))
	}
	return strings.Join(parts, "; ")
}
