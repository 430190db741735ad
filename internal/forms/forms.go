// Package forms binds submitted form values to typed inputs and validates them.
package forms

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	validator "github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"

	"github.com/share-pet/share-pet/internal/domain"
	"github.com/share-pet/share-pet/internal/validation"
)

// NonFieldErrors is the field name used for errors not tied to one input.
const NonFieldErrors = "__all__"

const (
	MsgRequired        = "This field is required."
	MsgInvalidEmail    = "Enter a valid email address."
	MsgInvalidChoice   = "Select a valid choice. %s is not one of the available choices."
	MsgMaxLength       = "Ensure this value has at most %s characters (it has %d)."
	MsgMinLength       = "Ensure this value has at least %s characters (it has %d)."
	MsgInvalidName     = "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	MsgPasswordsDiffer = "You must type the same password each time."
	MsgInvalid         = "Enter a valid value."
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return domain.UsernamePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// Bind decodes data into dst, a pointer to a struct with `form` tags, and
// validates it with its `validate` tags. Values are trimmed unless the field
// name contains "password".
func Bind(data map[string]string, dst any) (validation.FieldErrors, error) {
	cleaned := make(map[string]string, len(data))
	for key, value := range data {
		if !strings.Contains(key, "password") {
			value = strings.TrimSpace(value)
		}
		cleaned[key] = value
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "form",
		Result:           dst,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("build form decoder: %w", err)
	}
	if err := decoder.Decode(cleaned); err != nil {
		return nil, fmt.Errorf("decode form: %w", err)
	}

	var errs validation.FieldErrors
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, fmt.Errorf("validate form: %w", err)
		}
		for _, fe := range verrs {
			errs.Add(fe.Field(), Message(fe))
		}
	}
	return errs, nil
}

// Message renders a validator failure as a user-facing sentence.
func Message(fe validator.FieldError) string {
	value := fmt.Sprint(fe.Value())

	switch fe.Tag() {
	case "required", "required_if", "required_with":
		return MsgRequired
	case "email":
		return MsgInvalidEmail
	case "oneof":
		return fmt.Sprintf(MsgInvalidChoice, value)
	case "max":
		return fmt.Sprintf(MsgMaxLength, fe.Param(), utf8.RuneCountInString(value))
	case "min":
		return fmt.Sprintf(MsgMinLength, fe.Param(), utf8.RuneCountInString(value))
	case "username":
		return MsgInvalidName
	case "eqfield":
		return MsgPasswordsDiffer
	default:
		return MsgInvalid
	}
}

// Checkbox reads a boolean toggle the way HTML checkboxes submit it:
// absent, empty, "false", "0" and "off" are false, anything else is true.
func Checkbox(data map[string]string, key string) bool {
	value, ok := data[key]
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "false", "0", "off":
		return false
	default:
		return true
	}
}
