package api

import (
	"log/slog"
	"net/http"

	"github.com/share-pet/share-pet/internal/access"
	"github.com/share-pet/share-pet/internal/domain"
)

const (
	MsgConfirmationSent   = "We have sent an e-mail to you for verification. Follow the link provided to finalize the signup process."
	MsgResetSent          = "We have sent you an e-mail. Please contact us if you do not receive it within a few minutes."
	MsgPasswordChanged    = "Your password is now changed."
	MsgBadConfirmationKey = "This e-mail confirmation link expired or is invalid."
)

type accountView struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func viewAccount(a *domain.Account) accountView {
	return accountView{
		ID:        a.ID,
		Username:  domain.StringValue(a.Username),
		Email:     domain.StringValue(a.Email),
		FirstName: a.FirstName,
		LastName:  a.LastName,
	}
}

func (s *Server) signupUserPage(w http.ResponseWriter, r *http.Request) {
	fieldsPage(w, "username", "email", "first_name", "last_name", "avatar", "password1", "password2")
}

func (s *Server) signupUser(w http.ResponseWriter, r *http.Request) {
	data, err := parseForm(w, r)
	if err != nil {
		s.badForm(w, r, err)
		return
	}

	avatar, file, err := formFile(r, "avatar")
	if err != nil {
		s.badForm(w, r, err)
		return
	}
	if file != nil {
		defer file.Close()
	}

	result, err := s.accounts.SignupUser(r.Context(), data, avatar)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !result.OK() {
		s.writeFieldErrors(w, r, result.Errors)
		return
	}

	http.Redirect(w, r, s.cfg.ConfirmEmailSentURL, http.StatusFound)
}

func (s *Server) signupAdministratorPage(w http.ResponseWriter, r *http.Request) {
	fieldsPage(w, "email", "first_name", "last_name", "password1", "password2")
}

func (s *Server) signupAdministrator(w http.ResponseWriter, r *http.Request) {
	data, err := parseForm(w, r)
	if err != nil {
		s.badForm(w, r, err)
		return
	}

	result, err := s.accounts.SignupAdministrator(r.Context(), data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !result.OK() {
		s.writeFieldErrors(w, r, result.Errors)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "account": viewAccount(result.Account)})
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	fieldsPage(w, "login", "password")
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	data, err := parseForm(w, r)
	if err != nil {
		s.badForm(w, r, err)
		return
	}

	result, err := s.accounts.Login(r.Context(), data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !result.OK() {
		s.writeFieldErrors(w, r, result.Errors)
		return
	}

	// a new login replaces whatever session the client carried
	if token := s.cookies.Token(r); token != "" {
		_ = s.sessions.Delete(r.Context(), token)
	}

	token, err := s.sessions.Create(r.Context(), result.Account.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.cookies.Set(w, token)

	http.Redirect(w, r, safeNext(r.URL.Query().Get("next"), s.cfg.ProfileURL), http.StatusFound)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if token := s.cookies.Token(r); token != "" {
		if err := s.sessions.Delete(r.Context(), token); err != nil {
			s.log.WarnContext(r.Context(), "session not deleted on logout", slog.Any("error", err))
		}
	}
	s.cookies.Clear(w)

	http.Redirect(w, r, s.cfg.LogoutRedirectURL, http.StatusFound)
}

func (s *Server) passwordResetPage(w http.ResponseWriter, r *http.Request) {
	fieldsPage(w, "email")
}

func (s *Server) passwordReset(w http.ResponseWriter, r *http.Request) {
	data, err := parseForm(w, r)
	if err != nil {
		s.badForm(w, r, err)
		return
	}

	result, err := s.accounts.RequestPasswordReset(r.Context(), data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !result.OK() {
		s.writeFieldErrors(w, r, result.Errors)
		return
	}

	http.Redirect(w, r, s.cfg.PasswordResetDoneURL, http.StatusFound)
}

func (s *Server) passwordResetDone(w http.ResponseWriter, r *http.Request) {
	s.detail(w, r, http.StatusOK, MsgResetSent)
}

func (s *Server) resetFromKeyPage(w http.ResponseWriter, r *http.Request) {
	valid, err := s.accounts.CheckResetToken(r.Context(), r.PathValue("token"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token_valid": valid,
		"fields":      []string{"password1", "password2"},
	})
}

func (s *Server) resetFromKey(w http.ResponseWriter, r *http.Request) {
	data, err := parseForm(w, r)
	if err != nil {
		s.badForm(w, r, err)
		return
	}

	result, err := s.accounts.ResetPasswordFromKey(r.Context(), r.PathValue("token"), data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !result.OK() {
		s.writeFieldErrors(w, r, result.Errors)
		return
	}

	http.Redirect(w, r, s.cfg.ResetFromKeyDoneURL, http.StatusFound)
}

func (s *Server) resetFromKeyDone(w http.ResponseWriter, r *http.Request) {
	s.detail(w, r, http.StatusOK, MsgPasswordChanged)
}

func (s *Server) passwordChange(w http.ResponseWriter, r *http.Request) {
	data, err := parseForm(w, r)
	if err != nil {
		s.badForm(w, r, err)
		return
	}

	result, err := s.accounts.ChangePassword(r.Context(), access.AccountFromContext(r.Context()), data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !result.OK() {
		s.writeFieldErrors(w, r, result.Errors)
		return
	}

	s.detail(w, r, http.StatusOK, MsgPasswordChanged)
}

func (s *Server) confirmEmailPage(w http.ResponseWriter, r *http.Request) {
	owner, err := s.accounts.CheckConfirmationKey(r.Context(), r.PathValue("key"))
	if err != nil {
		s.confirmationError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"email": domain.StringValue(owner.Email)})
}

func (s *Server) confirmEmail(w http.ResponseWriter, r *http.Request) {
	if _, err := s.accounts.ConfirmEmail(r.Context(), r.PathValue("key")); err != nil {
		s.confirmationError(w, r, err)
		return
	}

	http.Redirect(w, r, s.cfg.LoginURL, http.StatusFound)
}

func (s *Server) confirmEmailSent(w http.ResponseWriter, r *http.Request) {
	s.detail(w, r, http.StatusOK, MsgConfirmationSent)
}

func (s *Server) confirmationError(w http.ResponseWriter, r *http.Request, err error) {
	if isMissing(err) {
		s.detail(w, r, http.StatusNotFound, MsgBadConfirmationKey)
		return
	}
	s.writeError(w, r, err)
}
