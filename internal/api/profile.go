package api

import (
	"log/slog"
	"net/http"

	"github.com/share-pet/share-pet/internal/access"
	"github.com/share-pet/share-pet/internal/i18n"
	"github.com/share-pet/share-pet/internal/profile"
)

// formTypeField names the profile form a POST submits.
const formTypeField = "form-type"

func (s *Server) profilePage(w http.ResponseWriter, r *http.Request) {
	account := access.AccountFromContext(r.Context())

	page, err := s.profiles.Forms(r.Context(), account.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) profileUpdate(w http.ResponseWriter, r *http.Request) {
	data, err := parseForm(w, r)
	if err != nil {
		s.badForm(w, r, err)
		return
	}

	account := access.AccountFromContext(r.Context())
	formName := profile.FormName(data[formTypeField])
	delete(data, formTypeField)

	page, err := s.profiles.Update(r.Context(), account.ID, formName, data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if page.Success && formName == profile.SettingForm {
		if err := s.languages.Set(r.Context(), account.ID, page.Language()); err != nil {
			s.log.WarnContext(r.Context(), "language not cached", slog.Any("error", err))
		}
	}

	// errors are shown in the language stored after the update
	t := s.translations.Translator(string(page.Language()))
	for _, form := range page.Forms {
		form.Errors = i18n.Errors(t, form.Errors)
	}

	status := http.StatusOK
	if !page.Success {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, page)
}
