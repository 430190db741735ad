// Package profile reads and updates the profile of the signed-in account.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/share-pet/share-pet/internal/domain"
	apperrors "github.com/share-pet/share-pet/internal/errors"
	"github.com/share-pet/share-pet/internal/repository"
	"github.com/share-pet/share-pet/internal/state"
	"github.com/share-pet/share-pet/internal/validation"
	"github.com/share-pet/share-pet/pkg/metrics"
)

// MsgEmailReadOnly is reported when a profile submission tries to change the email address.
const MsgEmailReadOnly = "You cannot change email right here!"

// RecordStore reads and partially updates one record type.
type RecordStore interface {
	GetFields(ctx context.Context, fields []string, filter repository.Filter) (map[string]any, error)
	UpdateFieldsByPK(ctx context.Context, pk int64, values map[string]any) error
}

// AccountStore adds the username listing needed for uniqueness checks.
type AccountStore interface {
	RecordStore
	ListUsernames(ctx context.Context) ([]domain.AccountRef, error)
}

// Profile is the stored state of the three editable record groups.
type Profile struct {
	Account      map[string]any `json:"account"`
	Setting      map[string]any `json:"setting"`
	Notification map[string]any `json:"notification"`
}

type formSpec struct {
	bind func(data map[string]string) (map[string]any, validation.FieldErrors, error)
	// store receives the update, keyed by the pk resolved through pkOf.
	store RecordStore
	pkOf  func(ctx context.Context, accountPK int64) (int64, error)
}

// Service provides the profile page and form submissions.
type Service struct {
	accounts      AccountStore
	settings      RecordStore
	notifications RecordStore
	blacklist     *validation.Blacklist
	recorder      state.TransitionRecorder
	log           *slog.Logger
	forms         map[FormName]formSpec
}

// Option customises a Service.
type Option func(*Service)

// WithTransitionRecorder observes the workflow transitions of every submission.
func WithTransitionRecorder(recorder state.TransitionRecorder) Option {
	return func(s *Service) {
		s.recorder = recorder
	}
}

// NewService constructs a new Service instance.
func NewService(
	accounts AccountStore,
	settings RecordStore,
	notifications RecordStore,
	blacklist *validation.Blacklist,
	log *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		accounts:      accounts,
		settings:      settings,
		notifications: notifications,
		blacklist:     blacklist,
		log:           log,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.forms = map[FormName]formSpec{
		AccountForm: {
			bind:  bindAccount,
			store: accounts,
			pkOf: func(_ context.Context, accountPK int64) (int64, error) {
				return accountPK, nil
			},
		},
		SettingForm: {
			bind:  bindSetting,
			store: settings,
			pkOf: func(ctx context.Context, accountPK int64) (int64, error) {
				return s.linkedPK(ctx, s.settings, "setting", accountPK)
			},
		},
		NotificationForm: {
			bind:  bindNotification,
			store: notifications,
			pkOf: func(ctx context.Context, accountPK int64) (int64, error) {
				return s.linkedPK(ctx, s.notifications, "notification", accountPK)
			},
		},
	}

	return s
}

// PrometheusRecorder counts transitions and finished submissions.
func PrometheusRecorder(form, from, to string) {
	metrics.RecordProfileTransition(form, from, to)
	if state.State(to).Terminal() {
		metrics.RecordProfileUpdate(form, to)
	}
}

// Get returns the stored profile of accountPK.
func (s *Service) Get(ctx context.Context, accountPK int64) (*Profile, error) {
	account, err := s.accounts.GetFields(ctx, accountFields, repository.Filter{"id": accountPK})
	if err != nil {
		s.logError("get.account", accountPK, err)
		return nil, fmt.Errorf("get account: %w", err)
	}

	setting, err := s.settings.GetFields(ctx, settingFields, repository.Filter{"account_id": accountPK})
	if err != nil {
		s.logError("get.setting", accountPK, err)
		return nil, fmt.Errorf("get setting: %w", err)
	}

	notification, err := s.notifications.GetFields(ctx, domain.NotificationEvents, repository.Filter{"account_id": accountPK})
	if err != nil {
		s.logError("get.notification", accountPK, err)
		return nil, fmt.Errorf("get notification: %w", err)
	}

	return &Profile{
		Account:      account,
		Setting:      setting,
		Notification: notification,
	}, nil
}

// Forms returns the three profile forms prefilled with the stored values.
func (s *Service) Forms(ctx context.Context, accountPK int64) (*Context, error) {
	profile, err := s.Get(ctx, accountPK)
	if err != nil {
		return nil, err
	}

	return &Context{
		Success: true,
		Forms: map[FormName]*Form{
			AccountForm:      {Name: AccountForm, Initial: profile.Account},
			SettingForm:      {Name: SettingForm, Initial: profile.Setting},
			NotificationForm: {Name: NotificationForm, Initial: profile.Notification},
		},
	}, nil
}

// Update validates a submission of formName and, when it is valid, writes it to
// the requester's own records. The returned context always reflects the stored
// state; on rejection the submitted form carries its data and errors.
func (s *Service) Update(ctx context.Context, accountPK int64, formName FormName, data map[string]string) (*Context, error) {
	spec, ok := s.forms[formName]
	if !ok {
		return nil, apperrors.NewContractError(fmt.Sprintf("unknown profile form %q", formName))
	}

	machine := state.NewMachine(string(formName), s.recorder)

	values, errs, err := spec.bind(data)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", formName, err)
	}

	domainErrs, err := s.domainErrors(ctx, accountPK, formName, data)
	if err != nil {
		return nil, err
	}
	for _, fe := range domainErrs {
		for _, msg := range fe.ErrorMessages {
			errs.Add(fe.Field, msg)
		}
	}

	if err := machine.TransitionTo(state.StateValidated); err != nil {
		return nil, apperrors.NewContractError(err.Error())
	}

	success := len(errs) == 0
	if success {
		pk, err := spec.pkOf(ctx, accountPK)
		if err != nil {
			return nil, err
		}
		err = spec.store.UpdateFieldsByPK(ctx, pk, values)
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			// A username taken since it was read, or submitted without email.
			errs.Add("username", validation.MsgUsernameTaken)
			success = false
		case err != nil:
			s.logError("update."+string(formName), accountPK, err)
			return nil, fmt.Errorf("update %s: %w", formName, err)
		}
	}

	next := state.StatePersisted
	if !success {
		next = state.StateRejected
	}
	if err := machine.TransitionTo(next); err != nil {
		return nil, apperrors.NewContractError(err.Error())
	}

	response, err := s.Forms(ctx, accountPK)
	if err != nil {
		return nil, err
	}

	if !success {
		response.Success = false
		slot, ok := response.Forms[formName]
		if !ok {
			return nil, apperrors.NewContractError(fmt.Sprintf("profile form %q missing from response", formName))
		}
		slot.Data = data
		slot.Errors = errs.ByField()
	}

	if s.log != nil {
		s.log.Info("profile form processed",
			slog.Int64("account_id", accountPK),
			slog.String("form", string(formName)),
			slog.String("state", string(machine.Current())),
		)
	}

	return response, nil
}

// domainErrors runs the checks that need other records. The username is
// checked only when username and email are both submitted; a submitted email
// must always equal the stored one.
func (s *Service) domainErrors(ctx context.Context, accountPK int64, formName FormName, data map[string]string) (validation.FieldErrors, error) {
	if formName != AccountForm {
		return nil, nil
	}

	email, hasEmail := data["email"]
	if !hasEmail {
		return nil, nil
	}

	var errs validation.FieldErrors
	if username, ok := data["username"]; ok {
		refs, err := s.accounts.ListUsernames(ctx)
		if err != nil {
			s.logError("validate.usernames", accountPK, err)
			return nil, fmt.Errorf("list usernames: %w", err)
		}
		errs = append(errs, validation.ValidateUsername(accountPK, strings.TrimSpace(username), validation.Refs(refs), s.blacklist)...)
	}

	stored, err := s.accounts.GetFields(ctx, []string{"email"}, repository.Filter{"id": accountPK})
	if err != nil {
		s.logError("validate.email", accountPK, err)
		return nil, fmt.Errorf("get stored email: %w", err)
	}
	storedEmail, _ := stored["email"].(string)
	if strings.TrimSpace(email) != storedEmail {
		errs.Add("email", MsgEmailReadOnly)
	}

	return errs, nil
}

func (s *Service) linkedPK(ctx context.Context, store RecordStore, entity string, accountPK int64) (int64, error) {
	record, err := store.GetFields(ctx, []string{"id"}, repository.Filter{"account_id": accountPK})
	if err != nil {
		s.logError("resolve."+entity, accountPK, err)
		return 0, fmt.Errorf("resolve %s id: %w", entity, err)
	}

	pk, ok := record["id"].(int64)
	if !ok {
		return 0, apperrors.NewContractError(fmt.Sprintf("%s id has type %T", entity, record["id"]))
	}
	return pk, nil
}

func (s *Service) logError(operation string, accountPK int64, err error) {
	if s.log == nil {
		return
	}

	s.log.Error("profile service error",
		slog.String("operation", operation),
		slog.Int64("account_id", accountPK),
		slog.Any("error", err),
	)
}
