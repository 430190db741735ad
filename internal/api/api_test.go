package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/share-pet/share-pet/internal/account"
	"github.com/share-pet/share-pet/internal/chat"
	"github.com/share-pet/share-pet/internal/database/dbtest"
	apperrors "github.com/share-pet/share-pet/internal/errors"
	"github.com/share-pet/share-pet/internal/i18n"
	"github.com/share-pet/share-pet/internal/langcache"
	"github.com/share-pet/share-pet/internal/mail"
	"github.com/share-pet/share-pet/internal/media"
	"github.com/share-pet/share-pet/internal/middleware"
	"github.com/share-pet/share-pet/internal/profile"
	"github.com/share-pet/share-pet/internal/ratelimit"
	"github.com/share-pet/share-pet/internal/repository"
	"github.com/share-pet/share-pet/internal/session"
	"github.com/share-pet/share-pet/internal/validation"
	"github.com/share-pet/share-pet/pkg/config"
)

type fakeQueue struct {
	sent []mail.Payload
}

func (q *fakeQueue) Send(_ context.Context, payload mail.Payload) error {
	q.sent = append(q.sent, payload)
	return nil
}

func (q *fakeQueue) Close() error { return nil }

var accountsConfig = config.AccountsConfig{
	UsernameMinLength:    3,
	LoginAttemptsLimit:   3,
	LoginAttemptsWindow:  5 * time.Minute,
	EmailConfirmationTTL: 72 * time.Hour,
	PasswordResetTTL:     24 * time.Hour,
	PasswordMinLength:    8,
	LoginURL:             "/accounts/login/",
	ProfileURL:           "/accounts/profile/",
	ConfirmEmailSentURL:  "/accounts/confirm-email-sent/",
	PasswordResetDoneURL: "/accounts/user/password-reset-done/",
	ResetFromKeyDoneURL:  "/accounts/user/reset-password-from-key-done/",
	LogoutRedirectURL:    "/accounts/login/",
}

type testEnv struct {
	server   *httptest.Server
	queue    *fakeQueue
	accounts *account.Service
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db := dbtest.Open(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	accountsRepo := repository.NewAccountRepository(db, log)
	settings := repository.NewSettingRepository(db, log)
	notifications := repository.NewNotificationRepository(db, log)
	blacklist := validation.NewBlacklist("ye11ow_banana")
	storage := media.NewLocalStorage(t.TempDir(), "/media/")
	queue := &fakeQueue{}

	accounts := account.NewService(account.Deps{
		DB:            db,
		Accounts:      accountsRepo,
		Settings:      settings,
		Notifications: notifications,
		Keys:          session.NewKeyStore(client, log),
		Mail:          queue,
		Media:         storage,
		Limiter:       ratelimit.NewMemoryLimiter(log),
		Blacklist:     blacklist,
		Log:           log,
	}, accountsConfig, "http://share.pet/")

	translations, err := i18n.Load("en")
	require.NoError(t, err)

	sessions := session.NewStore(client, time.Hour, log)
	cookies := session.NewCookies(config.SessionConfig{CookieName: "sessionid"}, sessions)

	server := NewServer(Deps{
		Profiles:     profile.NewService(accountsRepo, settings, notifications, blacklist, log),
		Accounts:     accounts,
		Chats:        chat.NewService(repository.NewChatRepository(db, log), storage, nil, log),
		Hub:          chat.NewHub(log, nil),
		Sessions:     sessions,
		Cookies:      cookies,
		Settings:     settings,
		Languages:    langcache.NewCache(client, time.Minute),
		Translations: translations,
		Errors:       apperrors.NewHandler(log, false),
		Config:       accountsConfig,
		Log:          log,
	})

	handler := middleware.Chain(
		server.Routes(),
		middleware.Recovery(nil, log),
		session.Middleware(sessions, cookies, accountsRepo, log),
	)

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	return &testEnv{server: ts, queue: queue, accounts: accounts}
}

// newClient returns a client with its own cookie jar that does not follow redirects.
func (e *testEnv) newClient(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (e *testEnv) get(t *testing.T, client *http.Client, path string) *http.Response {
	t.Helper()

	resp, err := client.Get(e.server.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *testEnv) post(t *testing.T, client *http.Client, path string, values url.Values) *http.Response {
	t.Helper()

	resp, err := client.PostForm(e.server.URL+path, values)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

// signedInUser signs up, confirms and logs in a plain user.
func (e *testEnv) signedInUser(t *testing.T, username string) *http.Client {
	t.Helper()

	client := e.newClient(t)
	resp := e.post(t, client, "/accounts/user/signup/", url.Values{
		"username":  {username},
		"email":     {username + "@share.pet"},
		"password1": {"correct-horse"},
		"password2": {"correct-horse"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)

	activate, err := url.Parse(e.queue.sent[len(e.queue.sent)-1].Data["activate_url"])
	require.NoError(t, err)
	resp = e.post(t, client, activate.Path, nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	resp = e.post(t, client, "/accounts/login/", url.Values{"login": {username}, "password": {"correct-horse"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, accountsConfig.ProfileURL, resp.Header.Get("Location"))
	return client
}

func TestSignupConfirmLoginFlow(t *testing.T) {
	env := setupEnv(t)
	client := env.newClient(t)

	resp := env.post(t, client, "/accounts/user/signup/", url.Values{
		"username":  {"ann"},
		"email":     {"ann@share.pet"},
		"password1": {"correct-horse"},
		"password2": {"correct-horse"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, accountsConfig.ConfirmEmailSentURL, resp.Header.Get("Location"))

	// not confirmed yet
	resp = env.post(t, client, "/accounts/login/", url.Values{"login": {"ann"}, "password": {"correct-horse"}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, map[string]any{"__all__": []any{account.MsgEmailNotVerified}}, body["errors"])

	activate, err := url.Parse(env.queue.sent[0].Data["activate_url"])
	require.NoError(t, err)

	resp = env.get(t, client, activate.Path)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ann@share.pet", decode(t, resp)["email"])

	resp = env.post(t, client, activate.Path, nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, accountsConfig.LoginURL, resp.Header.Get("Location"))

	// keys are single use
	resp = env.get(t, client, activate.Path)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.post(t, client, "/accounts/login/?next=/chats/", url.Values{"login": {"ANN@share.pet"}, "password": {"correct-horse"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/chats/", resp.Header.Get("Location"))

	resp = env.get(t, client, "/accounts/profile/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode(t, resp)
	forms := page["forms"].(map[string]any)
	accountForm := forms["account_form"].(map[string]any)
	assert.Equal(t, "ann", accountForm["initial"].(map[string]any)["username"])

	resp = env.post(t, client, "/accounts/logout/", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	resp = env.get(t, client, "/accounts/profile/")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, accountsConfig.LoginURL, resp.Header.Get("Location"))
}

func TestGuards(t *testing.T) {
	env := setupEnv(t)
	anonymous := env.newClient(t)
	user := env.signedInUser(t, "ann")

	testCases := []struct {
		name     string
		client   *http.Client
		path     string
		status   int
		location string
	}{
		{name: "anonymous profile", client: anonymous, path: "/accounts/profile/", status: http.StatusFound, location: "/accounts/login/"},
		{name: "anonymous chats", client: anonymous, path: "/chats/", status: http.StatusFound, location: "/accounts/login/"},
		{name: "anonymous signup", client: anonymous, path: "/accounts/user/signup/", status: http.StatusOK},
		{name: "anonymous administrator signup", client: anonymous, path: "/accounts/administrator/signup/", status: http.StatusFound, location: "/accounts/login/"},
		{name: "user signup", client: user, path: "/accounts/user/signup/", status: http.StatusFound, location: "/accounts/profile/"},
		{name: "user password reset", client: user, path: "/accounts/user/password-reset/", status: http.StatusFound, location: "/accounts/profile/"},
		{name: "user administrator signup", client: user, path: "/accounts/administrator/signup/", status: http.StatusFound, location: "/accounts/login/"},
		{name: "user profile", client: user, path: "/accounts/profile/", status: http.StatusOK},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			resp := env.get(t, tc.client, tc.path)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.location, resp.Header.Get("Location"))
		})
	}
}

func TestSuperuserSignsUpAdministrator(t *testing.T) {
	env := setupEnv(t)

	_, err := env.accounts.CreateSuperuser(context.Background(), "root", "root@share.pet", "correct-horse")
	require.NoError(t, err)

	client := env.newClient(t)
	resp := env.post(t, client, "/accounts/login/", url.Values{"login": {"root"}, "password": {"correct-horse"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)

	resp = env.post(t, client, "/accounts/administrator/signup/", url.Values{
		"email":      {"admin@share.pet"},
		"first_name": {"Ada"},
		"last_name":  {"Admin"},
		"password1":  {"correct-horse"},
		"password2":  {"correct-horse"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode(t, resp)["account"].(map[string]any)
	assert.Equal(t, "admin@share.pet", created["email"])
	assert.NotContains(t, created, "username")

	// superusers are not plain users
	resp = env.get(t, client, "/accounts/profile/")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestProfileUpdate(t *testing.T) {
	env := setupEnv(t)
	client := env.signedInUser(t, "ann")

	resp := env.post(t, client, "/accounts/profile/", url.Values{
		"form-type": {"setting_form"},
		"language":  {"ua"},
		"status":    {"actively_looking"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decode(t, resp)["success"])

	resp = env.post(t, client, "/accounts/profile/", url.Values{
		"form-type": {"account_form"},
		"username":  {"ann"},
		"email":     {"someone@else.pet"},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decode(t, resp)
	assert.Equal(t, false, body["success"])
	accountForm := body["forms"].(map[string]any)["account_form"].(map[string]any)
	assert.Equal(t, map[string]any{"email": []any{"Тут не можна змінити електронну пошту!"}}, accountForm["errors"])
	assert.Equal(t, "someone@else.pet", accountForm["data"].(map[string]any)["email"])

	// other pages follow the stored language too
	resp = env.post(t, client, "/chats/", url.Values{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, map[string]any{"name": []any{"Це поле обов'язкове."}}, decode(t, resp)["errors"])

	resp = env.post(t, client, "/accounts/profile/", url.Values{"form-type": {"unknown_form"}})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestPasswordResetFlow(t *testing.T) {
	env := setupEnv(t)
	env.signedInUser(t, "ann")
	client := env.newClient(t)

	resp := env.post(t, client, "/accounts/user/password-reset/", url.Values{"email": {"ann@share.pet"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, accountsConfig.PasswordResetDoneURL, resp.Header.Get("Location"))

	sent := env.queue.sent[len(env.queue.sent)-1]
	require.Equal(t, mail.TemplatePasswordResetKey, sent.Template)
	link, err := url.Parse(sent.Data["password_reset_url"])
	require.NoError(t, err)

	resp = env.get(t, client, link.Path)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decode(t, resp)["token_valid"])

	resp = env.post(t, client, link.Path, url.Values{"password1": {"new-secret-pass"}, "password2": {"new-secret-pass"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, accountsConfig.ResetFromKeyDoneURL, resp.Header.Get("Location"))

	resp = env.get(t, client, link.Path)
	assert.Equal(t, false, decode(t, resp)["token_valid"])

	resp = env.post(t, client, "/accounts/login/", url.Values{"login": {"ann"}, "password": {"new-secret-pass"}})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestChats(t *testing.T) {
	env := setupEnv(t)
	client := env.signedInUser(t, "ann")

	resp := env.post(t, client, "/chats/", url.Values{"name": {"Dog Walkers"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode(t, resp)["chat"].(map[string]any)
	assert.Equal(t, "dog-walkers", created["slug"])

	resp = env.post(t, client, "/chats/", url.Values{"name": {"dog walkers"}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, map[string]any{"name": []any{chat.MsgChatNameTaken}}, decode(t, resp)["errors"])

	resp = env.post(t, client, "/chats/chat/dog-walkers", url.Values{"message": {"woof"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.post(t, client, "/chats/chat/dog-walkers", url.Values{"message": {"  "}})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.get(t, client, "/chats/chat/dog-walkers")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	messages := decode(t, resp)["messages"].([]any)
	require.Len(t, messages, 1)
	assert.Equal(t, "woof", messages[0].(map[string]any)["text"])

	resp = env.get(t, client, "/chats/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode(t, resp)["chats"], 1)

	resp = env.get(t, client, "/chats/chat/cat-people")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAcceptLanguage(t *testing.T) {
	testCases := []struct {
		header string
		want   string
	}{
		{header: "", want: ""},
		{header: "uk-UA,uk;q=0.9", want: "ua"},
		{header: "de-DE, ru;q=0.8", want: "ru"},
		{header: "en-GB", want: "en"},
		{header: "fr", want: ""},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.header, func(t *testing.T) {
			assert.Equal(t, tc.want, acceptLanguage(tc.header))
		})
	}
}

func TestSafeNext(t *testing.T) {
	assert.Equal(t, "/chats/", safeNext("/chats/", "/accounts/profile/"))
	assert.Equal(t, "/accounts/profile/", safeNext("//evil.example", "/accounts/profile/"))
	assert.Equal(t, "/accounts/profile/", safeNext("https://evil.example/", "/accounts/profile/"))
	assert.Equal(t, "/accounts/profile/", safeNext("", "/accounts/profile/"))
}

func TestMalformedForm(t *testing.T) {
	env := setupEnv(t)
	client := env.newClient(t)

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/accounts/login/", strings.NewReader("%zz"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
