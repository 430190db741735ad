package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/share-pet/share-pet/internal/domain"
	"github.com/share-pet/share-pet/internal/forms"
	"github.com/share-pet/share-pet/internal/ratelimit"
	"github.com/share-pet/share-pet/internal/repository"
	"github.com/share-pet/share-pet/internal/session"
	"github.com/share-pet/share-pet/pkg/metrics"
)

// Login authenticates a username or e-mail address with a password.
// Attempts are limited per login; a successful login clears the counter and
// stamps last_login. Creating the session is up to the caller.
func (s *Service) Login(ctx context.Context, data map[string]string) (*Result, error) {
	var input loginInput
	errs, err := forms.Bind(data, &input)
	if err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		return rejected(errs), nil
	}

	limitKey := ratelimit.LoginKey(input.Login)
	if s.limiter != nil && s.loginRule.Enabled() {
		if _, err := s.limiter.Check(ctx, limitKey, s.loginRule.Limit, s.loginRule.Window); err != nil {
			if !errors.Is(err, ratelimit.ErrLimitExceeded) {
				return nil, fmt.Errorf("check login attempts: %w", err)
			}
			metrics.RecordLoginAttempt("limited")
			errs.Add(forms.NonFieldErrors, MsgTooManyAttempts)
			return rejected(errs), nil
		}
	}

	account, err := s.accounts.FindByLogin(ctx, input.Login)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logError("login.lookup", 0, err)
		return nil, err
	}
	if account == nil || !CheckPassword(account.PasswordHash, input.Password) {
		metrics.RecordLoginAttempt("failed")
		errs.Add(forms.NonFieldErrors, MsgLoginFailed)
		return rejected(errs), nil
	}

	switch {
	case !account.EmailVerified && !account.IsActive:
		errs.Add(forms.NonFieldErrors, MsgEmailNotVerified)
	case !account.IsActive || account.DateBaned != nil:
		errs.Add(forms.NonFieldErrors, MsgAccountInactive)
	}
	if len(errs) > 0 {
		metrics.RecordLoginAttempt("inactive")
		return rejected(errs), nil
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, limitKey); err != nil {
			s.log.WarnContext(ctx, "login attempts not reset", slog.Any("error", err))
		}
	}

	now := s.now()
	if err := s.accounts.UpdateFieldsByPK(ctx, account.ID, map[string]any{"last_login": now}); err != nil {
		s.logError("login.last_login", account.ID, err)
		return nil, fmt.Errorf("update last login: %w", err)
	}
	account.LastLogin = &now

	metrics.RecordLoginAttempt("success")
	s.log.InfoContext(ctx, "account logged in", slog.Int64("account_id", account.ID))
	return &Result{Account: account}, nil
}

// CheckConfirmationKey returns the account a confirmation key belongs to
// without using the key up.
func (s *Service) CheckConfirmationKey(ctx context.Context, key string) (*domain.Account, error) {
	accountID, err := s.keys.Peek(ctx, session.PurposeEmailConfirmation, key)
	if err != nil {
		return nil, err
	}
	return s.accounts.GetAccount(ctx, repository.Filter{"id": accountID})
}

// ConfirmEmail redeems a confirmation key, marking the address verified and
// activating the account.
func (s *Service) ConfirmEmail(ctx context.Context, key string) (*domain.Account, error) {
	accountID, err := s.keys.Consume(ctx, session.PurposeEmailConfirmation, key)
	if err != nil {
		return nil, err
	}

	values := map[string]any{"email_verified": true, "is_active": true}
	if err := s.accounts.UpdateFieldsByPK(ctx, accountID, values); err != nil {
		s.logError("confirm_email", accountID, err)
		return nil, fmt.Errorf("confirm email: %w", err)
	}

	account, err := s.accounts.GetAccount(ctx, repository.Filter{"id": accountID})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "email confirmed", slog.Int64("account_id", accountID))
	return account, nil
}
