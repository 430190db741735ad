package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/share-pet/share-pet/internal/database/dbtest"
	"github.com/share-pet/share-pet/internal/domain"
	"github.com/share-pet/share-pet/internal/forms"
	"github.com/share-pet/share-pet/internal/media"
	"github.com/share-pet/share-pet/internal/repository"
)

type recordingHub struct {
	rooms    []string
	payloads [][]byte
}

func (h *recordingHub) Broadcast(room string, payload []byte) {
	h.rooms = append(h.rooms, room)
	h.payloads = append(h.payloads, payload)
}

type fixture struct {
	service  *Service
	accounts repository.AccountRepository
	hub      *recordingHub
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()

	db := dbtest.Open(t)
	log := discardLogger()
	hub := &recordingHub{}

	return &fixture{
		service:  NewService(repository.NewChatRepository(db, log), media.NewLocalStorage(t.TempDir(), "/media/"), hub, log),
		accounts: repository.NewAccountRepository(db, log),
		hub:      hub,
	}
}

func (f *fixture) account(t *testing.T, username string) *domain.Account {
	t.Helper()

	account := &domain.Account{
		Username:   domain.StringPtr(username),
		Email:      domain.StringPtr(username + "@share.pet"),
		IsActive:   true,
		DateJoined: time.Now().UTC(),
	}
	require.NoError(t, f.accounts.Create(context.Background(), account))
	return account
}

func TestCreate(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	owner := f.account(t, "ann")

	chat, errs, err := f.service.Create(ctx, owner, map[string]string{"name": "  Cats of Kyiv "})
	require.NoError(t, err)
	require.Empty(t, errs)
	assert.Equal(t, "Cats of Kyiv", chat.Name)
	assert.Equal(t, "cats-of-kyiv", chat.Slug)

	chats, err := f.service.List(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, chat.ID, chats[0].ID)
}

func TestCreateRejects(t *testing.T) {
	testCases := []struct {
		name    string
		data    map[string]string
		message string
	}{
		{
			name:    "missing name",
			data:    map[string]string{},
			message: forms.MsgRequired,
		},
		{
			name:    "punctuation only",
			data:    map[string]string{"name": "!!!"},
			message: MsgChatNameInvalid,
		},
		{
			name:    "same slug",
			data:    map[string]string{"name": "dogs"},
			message: MsgChatNameTaken,
		},
		{
			name:    "too long",
			data:    map[string]string{"name": strings.Repeat("a", 101)},
			message: fmt.Sprintf(forms.MsgMaxLength, "100", 101),
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			f := setupFixture(t)
			ctx := context.Background()
			owner := f.account(t, "ann")

			_, errs, err := f.service.Create(ctx, owner, map[string]string{"name": "Dogs"})
			require.NoError(t, err)
			require.Empty(t, errs)

			chat, errs, err := f.service.Create(ctx, owner, tc.data)
			require.NoError(t, err)
			assert.Nil(t, chat)
			assert.Equal(t, []string{tc.message}, errs.ByField()["name"])
		})
	}
}

func TestPost(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	owner := f.account(t, "ann")
	guest := f.account(t, "bob")

	chat, _, err := f.service.Create(ctx, owner, map[string]string{"name": "Dogs"})
	require.NoError(t, err)

	message, err := f.service.Post(ctx, guest, chat.Slug, "hello", nil)
	require.NoError(t, err)
	require.NotNil(t, message)
	assert.NotZero(t, message.ID)
	assert.Equal(t, "bob", message.Sender)

	// posting makes the sender a member
	chats, err := f.service.List(ctx, guest.ID)
	require.NoError(t, err)
	require.Len(t, chats, 1)

	require.Len(t, f.hub.payloads, 1)
	assert.Equal(t, "dogs", f.hub.rooms[0])

	var event Event
	require.NoError(t, json.Unmarshal(f.hub.payloads[0], &event))
	assert.Equal(t, "message", event.Type)
	assert.Equal(t, "hello", *event.Message.Text)
	assert.Equal(t, "bob", event.Message.Sender)

	detail, err := f.service.Detail(ctx, chat.Slug)
	require.NoError(t, err)
	require.Len(t, detail.Messages, 1)
	assert.Equal(t, message.ID, detail.Messages[0].ID)
}

func TestPostWithFile(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	owner := f.account(t, "ann")

	chat, _, err := f.service.Create(ctx, owner, map[string]string{"name": "Dogs"})
	require.NoError(t, err)

	upload := &media.Upload{Filename: "rex.png", ContentType: "image/png", Body: strings.NewReader("png")}
	message, err := f.service.Post(ctx, owner, chat.Slug, "", upload)
	require.NoError(t, err)
	require.NotNil(t, message)
	assert.Nil(t, message.Text)
	require.NotNil(t, message.File)
	assert.True(t, strings.HasPrefix(*message.File, media.FolderChats+"/"))
	assert.True(t, strings.HasPrefix(f.service.View(message).File, "/media/chats/"))
}

func TestPostEmptyIsDropped(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	owner := f.account(t, "ann")

	chat, _, err := f.service.Create(ctx, owner, map[string]string{"name": "Dogs"})
	require.NoError(t, err)

	for _, text := range []string{"", "   "} {
		message, err := f.service.Post(ctx, owner, chat.Slug, text, nil)
		require.NoError(t, err)
		assert.Nil(t, message)
	}

	detail, err := f.service.Detail(ctx, chat.Slug)
	require.NoError(t, err)
	assert.Empty(t, detail.Messages)
	assert.Empty(t, f.hub.payloads)
}

func TestUnknownChat(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	owner := f.account(t, "ann")

	_, err := f.service.Detail(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = f.service.Post(ctx, owner, "missing", "hi", nil)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func dial(t *testing.T, server *httptest.Server, room string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/?room=" + room
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHubRelay(t *testing.T) {
	hub := NewHub(discardLogger(), nil)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, r.URL.Query().Get("room"), 1)
	}))
	t.Cleanup(server.Close)
	t.Cleanup(hub.Close)

	alice := dial(t, server, "dogs")
	bob := dial(t, server, "dogs")
	other := dial(t, server, "cats")

	require.Eventually(t, func() bool {
		return hub.RoomSize("dogs") == 2 && hub.RoomSize("cats") == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte(`{"offer":"sdp"}`)))

	_ = bob.SetReadDeadline(time.Now().Add(time.Second))
	_, payload, err := bob.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"offer":"sdp"}`, string(payload))

	hub.Broadcast("cats", []byte("meow"))
	_ = other.SetReadDeadline(time.Now().Add(time.Second))
	_, payload, err = other.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "meow", string(payload))

	require.NoError(t, bob.Close())
	require.Eventually(t, func() bool {
		return hub.RoomSize("dogs") == 1
	}, time.Second, 10*time.Millisecond)
}
