package profile

import (
	"github.com/share-pet/share-pet/internal/domain"
	"github.com/share-pet/share-pet/internal/forms"
	"github.com/share-pet/share-pet/internal/validation"
)

// FormName tags which record group a profile submission edits.
type FormName string

const (
	AccountForm      FormName = "account_form"
	SettingForm      FormName = "setting_form"
	NotificationForm FormName = "notification_form"
)

// FormNames lists the profile forms in display order.
var FormNames = []FormName{AccountForm, SettingForm, NotificationForm}

// Form is one profile form as rendered to the client: the stored values,
// and after a rejected submission the submitted data with its errors.
type Form struct {
	Name    FormName            `json:"name"`
	Initial map[string]any      `json:"initial"`
	Data    map[string]string   `json:"data,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// Context is the response of both the profile page and a profile submission.
type Context struct {
	Success bool               `json:"success"`
	Forms   map[FormName]*Form `json:"forms"`
}

// Language returns the stored interface language, defaulting to English.
func (c *Context) Language() domain.Language {
	if c == nil {
		return domain.LanguageEN
	}
	if form, ok := c.Forms[SettingForm]; ok {
		if lang, ok := form.Initial["language"].(string); ok && domain.Language(lang).Valid() {
			return domain.Language(lang)
		}
	}
	return domain.LanguageEN
}

var (
	accountFields = []string{"username", "first_name", "last_name", "email", "avatar"}
	settingFields = []string{"language", "status"}
)

type accountInput struct {
	Username  string `form:"username" validate:"omitempty,max=150,username"`
	FirstName string `form:"first_name" validate:"max=150"`
	LastName  string `form:"last_name" validate:"max=150"`
	Email     string `form:"email" validate:"omitempty,max=254,email"`
}

type settingInput struct {
	Language string `form:"language" validate:"required,oneof=ua en ru"`
	Status   string `form:"status" validate:"required,oneof=actively_looking alone_is_fine"`
}

// bindAccount validates the account form and returns the columns to write.
// Only submitted fields are written. Email is never written from here.
func bindAccount(data map[string]string) (map[string]any, validation.FieldErrors, error) {
	var input accountInput
	errs, err := forms.Bind(data, &input)
	if err != nil {
		return nil, nil, err
	}

	values := make(map[string]any)
	if _, ok := data["username"]; ok {
		values["username"] = domain.StringPtr(input.Username)
	}
	if _, ok := data["first_name"]; ok {
		values["first_name"] = input.FirstName
	}
	if _, ok := data["last_name"]; ok {
		values["last_name"] = input.LastName
	}
	return values, errs, nil
}

func bindSetting(data map[string]string) (map[string]any, validation.FieldErrors, error) {
	var input settingInput
	errs, err := forms.Bind(data, &input)
	if err != nil {
		return nil, nil, err
	}

	return map[string]any{
		"language": input.Language,
		"status":   input.Status,
	}, errs, nil
}

// bindNotification reads every toggle as a checkbox; unchecked toggles are absent from data.
func bindNotification(data map[string]string) (map[string]any, validation.FieldErrors, error) {
	values := make(map[string]any, len(domain.NotificationEvents))
	for _, event := range domain.NotificationEvents {
		values[event] = forms.Checkbox(data, event)
	}
	return values, nil, nil
}
