// Package errors defines the application error taxonomy shared by services and transports.
package errors

import (
	"errors"
	"fmt"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Error codes. Transports map them to HTTP statuses.
const (
	CodeValidation = "E100"
	CodeDatabase   = "E200"
	CodeExternal   = "E300"
	CodeContract   = "E400"
	CodeRateLimit  = "E500"
	CodeNotFound   = "E600"
	CodeInvalidKey = "E700"
)

type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

// Is matches AppErrors by code so errors.Is(err, &AppError{Code: CodeContract}) works.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok || e == nil || t == nil {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:        CodeValidation,
		Message:     msg,
		UserMessage: fmt.Sprintf("Invalid input. %s", msg),
		Severity:    SeverityLow,
	}
}

func NewDatabaseError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        CodeDatabase,
		Message:     fmt.Sprintf("Database error: %s", underlyingMsg),
		UserMessage: "Temporary problem, please try again later.",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

// NewExternalError wraps failures of mail, storage and queue backends.
func NewExternalError(service string, cause error) *AppError {
	return &AppError{
		Code:        CodeExternal,
		Message:     fmt.Sprintf("External service error: %s", service),
		UserMessage: "Service is temporarily unavailable.",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

// NewContractError reports a programming or wiring mistake, such as an unknown
// form name or a column outside an allow-list. It is never shown in detail to users.
func NewContractError(msg string) *AppError {
	return &AppError{
		Code:        CodeContract,
		Message:     msg,
		UserMessage: "Something went wrong.",
		Severity:    SeverityCritical,
	}
}

// NewNotFoundError reports a record that must exist but does not, e.g. a
// Setting row missing for an existing Account.
func NewNotFoundError(entity string, cause error) *AppError {
	return &AppError{
		Code:        CodeNotFound,
		Message:     fmt.Sprintf("%s not found", entity),
		UserMessage: "Not found.",
		Severity:    SeverityMedium,
		cause:       cause,
	}
}

func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Code:        CodeRateLimit,
		Message:     fmt.Sprintf("Rate limit exceeded: retry after %d seconds", retryAfter),
		UserMessage: fmt.Sprintf("Too many requests. Try again in %d seconds.", retryAfter),
		Severity:    SeverityLow,
	}
}

// NewInvalidKeyError reports an expired or unknown one-time key (email confirmation, password reset).
func NewInvalidKeyError(purpose string) *AppError {
	return &AppError{
		Code:        CodeInvalidKey,
		Message:     fmt.Sprintf("invalid %s key", purpose),
		UserMessage: "The link is invalid or has expired.",
		Severity:    SeverityLow,
	}
}

// HasCode reports whether err wraps an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Code == code
	}
	return false
}
