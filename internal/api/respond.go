package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/share-pet/share-pet/internal/access"
	"github.com/share-pet/share-pet/internal/domain"
	apperrors "github.com/share-pet/share-pet/internal/errors"
	"github.com/share-pet/share-pet/internal/i18n"
	"github.com/share-pet/share-pet/internal/repository"
	"github.com/share-pet/share-pet/internal/validation"
)

const msgNotFound = "Not found."

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// fieldsPage describes a form to a client doing a GET on a form endpoint.
func fieldsPage(w http.ResponseWriter, fields ...string) {
	writeJSON(w, http.StatusOK, map[string]any{"fields": fields})
}

func (s *Server) detail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": i18n.Message(s.translator(r), msg)})
}

// writeFieldErrors answers a rejected form submission with its translated errors.
func (s *Server) writeFieldErrors(w http.ResponseWriter, r *http.Request, errs validation.FieldErrors) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"success": false,
		"errors":  i18n.Errors(s.translator(r), errs.ByField()),
	})
}

// isMissing reports whether err means the addressed record or key does not exist.
func isMissing(err error) bool {
	return errors.Is(err, repository.ErrNotFound) || apperrors.HasCode(err, apperrors.CodeInvalidKey)
}

// writeError maps a service error onto a status code. Everything unexpected
// goes through the error handler and is answered with a generic 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		s.detail(w, r, http.StatusNotFound, msgNotFound)
		return
	case apperrors.HasCode(err, apperrors.CodeInvalidKey):
		var appErr *apperrors.AppError
		errors.As(err, &appErr)
		s.detail(w, r, http.StatusNotFound, appErr.UserMessage)
		return
	}

	message := apperrors.FallbackUserMessage
	if s.errors != nil {
		message, _ = s.errors.Handle(r.Context(), err)
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": message})
}

// translator picks the caller's stored language, or Accept-Language for
// anonymous callers.
func (s *Server) translator(r *http.Request) i18n.Translator {
	return s.translations.Translator(s.language(r))
}

func (s *Server) language(r *http.Request) string {
	if account := access.AccountFromContext(r.Context()); account != nil {
		if lang := s.accountLanguage(r.Context(), account.ID); lang != "" {
			return string(lang)
		}
	}
	return acceptLanguage(r.Header.Get("Accept-Language"))
}

// accountLanguage reads the stored language through the cache.
func (s *Server) accountLanguage(ctx context.Context, accountID int64) domain.Language {
	lang, err := s.languages.Get(ctx, accountID)
	if err != nil {
		s.log.WarnContext(ctx, "language cache unavailable", slog.Any("error", err))
	}
	if lang != "" || s.settings == nil {
		return lang
	}

	values, err := s.settings.GetFields(ctx, []string{"language"}, repository.Filter{"account_id": accountID})
	if err != nil {
		return ""
	}
	stored, _ := values["language"].(string)
	lang = domain.Language(stored)
	if err := s.languages.Set(ctx, accountID, lang); err != nil {
		s.log.WarnContext(ctx, "language not cached", slog.Any("error", err))
	}
	return lang
}

// acceptLanguage returns the first supported language named by header.
func acceptLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		primary, _, _ := strings.Cut(strings.ToLower(tag), "-")
		if primary == "uk" {
			primary = string(domain.LanguageUA)
		}
		if domain.Language(primary).Valid() {
			return primary
		}
	}
	return ""
}

// safeNext accepts only local absolute paths as post-login targets.
func safeNext(next, fallback string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") && !strings.Contains(next, "\\") {
		return next
	}
	return fallback
}
