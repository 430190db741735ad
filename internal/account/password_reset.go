package account

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/share-pet/share-pet/internal/domain"
	apperrors "github.com/share-pet/share-pet/internal/errors"
	"github.com/share-pet/share-pet/internal/forms"
	"github.com/share-pet/share-pet/internal/mail"
	"github.com/share-pet/share-pet/internal/session"
	"github.com/share-pet/share-pet/internal/validation"
	"github.com/share-pet/share-pet/pkg/metrics"
)

// resetBarred reports whether role may not reset its password by e-mail.
func resetBarred(role domain.Role) bool {
	switch role {
	case domain.RoleAdministrator, domain.RoleSuperAdmin:
		return true
	default:
		return false
	}
}

// RequestPasswordReset handles the password reset form. Administrators and
// superusers are refused with a field error. An unknown address still
// succeeds and receives a mail pointing to signup.
func (s *Service) RequestPasswordReset(ctx context.Context, data map[string]string) (*Result, error) {
	var input resetPasswordInput
	errs, err := forms.Bind(data, &input)
	if err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		return rejected(errs), nil
	}

	accounts, err := s.accounts.ListByEmail(ctx, input.Email)
	if err != nil {
		s.logError("password_reset.lookup", 0, err)
		return nil, fmt.Errorf("list accounts by email: %w", err)
	}

	for _, account := range accounts {
		if resetBarred(account.Role()) {
			metrics.RecordPasswordReset("barred")
			errs.Add("email", MsgResetBarred)
			return rejected(errs), nil
		}
	}

	if len(accounts) == 0 {
		metrics.RecordPasswordReset("unknown_account")
		s.sendMail(ctx, mail.Payload{
			Template: mail.TemplateUnknownAccount,
			To:       input.Email,
			Language: string(domain.LanguageEN),
			Data:     map[string]string{"signup_url": s.baseURL + SignupPath},
		})
		return &Result{}, nil
	}

	for _, account := range accounts {
		key, err := s.keys.Issue(ctx, session.PurposePasswordReset, account.ID, s.cfg.PasswordResetTTL)
		if err != nil {
			s.logError("password_reset.key", account.ID, err)
			return nil, fmt.Errorf("issue reset key: %w", err)
		}

		s.sendMail(ctx, mail.Payload{
			Template: mail.TemplatePasswordResetKey,
			To:       domain.StringValue(account.Email),
			Language: s.languageOf(ctx, account.ID),
			Data: map[string]string{
				"password_reset_url": s.baseURL + ResetFromKeyPath(account.ID, key),
				"username":           domain.StringValue(account.Username),
			},
		})
	}

	metrics.RecordPasswordReset("sent")
	s.log.InfoContext(ctx, "password reset requested", slog.Int("accounts", len(accounts)))
	return &Result{}, nil
}

// ParseResetToken splits a "<uidb36>-<key>" path token.
func ParseResetToken(token string) (accountID int64, key string, err error) {
	uid, key, ok := strings.Cut(token, "-")
	if !ok || uid == "" || key == "" {
		return 0, "", apperrors.NewInvalidKeyError(string(session.PurposePasswordReset))
	}

	accountID, err = strconv.ParseInt(uid, 36, 64)
	if err != nil {
		return 0, "", apperrors.NewInvalidKeyError(string(session.PurposePasswordReset))
	}
	return accountID, key, nil
}

// CheckResetToken reports whether token is a live reset link.
func (s *Service) CheckResetToken(ctx context.Context, token string) (bool, error) {
	accountID, key, err := ParseResetToken(token)
	if err != nil {
		return false, nil
	}

	owner, err := s.keys.Peek(ctx, session.PurposePasswordReset, key)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeInvalidKey) {
			return false, nil
		}
		return false, err
	}
	return owner == accountID, nil
}

// ResetPasswordFromKey sets a new password through a reset link. The key is
// used up only when the new password is accepted.
func (s *Service) ResetPasswordFromKey(ctx context.Context, token string, data map[string]string) (*Result, error) {
	valid, err := s.CheckResetToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !valid {
		var errs validation.FieldErrors
		errs.Add(forms.NonFieldErrors, MsgBadResetKey)
		return rejected(errs), nil
	}

	var input setPasswordInput
	errs, err := forms.Bind(data, &input)
	if err != nil {
		return nil, err
	}
	s.checkNewPassword(input.Password1, &errs)
	if len(errs) > 0 {
		return rejected(errs), nil
	}

	accountID, key, _ := ParseResetToken(token)
	owner, err := s.keys.Consume(ctx, session.PurposePasswordReset, key)
	if err != nil || owner != accountID {
		if err != nil && !apperrors.HasCode(err, apperrors.CodeInvalidKey) {
			return nil, err
		}
		errs.Add(forms.NonFieldErrors, MsgBadResetKey)
		return rejected(errs), nil
	}

	if err := s.setPassword(ctx, accountID, input.Password1); err != nil {
		return nil, err
	}

	metrics.RecordPasswordReset("completed")
	return &Result{}, nil
}

// ChangePassword replaces the password of a signed-in account.
func (s *Service) ChangePassword(ctx context.Context, account *domain.Account, data map[string]string) (*Result, error) {
	var input changePasswordInput
	errs, err := forms.Bind(data, &input)
	if err != nil {
		return nil, err
	}

	if input.OldPassword != "" && !CheckPassword(account.PasswordHash, input.OldPassword) {
		errs.Add("old_password", MsgWrongOldPassword)
	}
	s.checkNewPassword(input.Password1, &errs)
	if len(errs) > 0 {
		return rejected(errs), nil
	}

	if err := s.setPassword(ctx, account.ID, input.Password1); err != nil {
		return nil, err
	}
	return &Result{Account: account}, nil
}

func (s *Service) setPassword(ctx context.Context, accountID int64, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	if err := s.accounts.UpdateFieldsByPK(ctx, accountID, map[string]any{"password_hash": hash}); err != nil {
		s.logError("set_password", accountID, err)
		return fmt.Errorf("update password: %w", err)
	}

	s.log.InfoContext(ctx, "password changed", slog.Int64("account_id", accountID))
	return nil
}
