package repository

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/share-pet/share-pet/internal/database/dbtest"
	"github.com/share-pet/share-pet/internal/domain"
	apperrors "github.com/share-pet/share-pet/internal/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	db            *sql.DB
	accounts      AccountRepository
	settings      SettingRepository
	notifications NotificationRepository
	chats         ChatRepository
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()

	db := dbtest.Open(t)
	log := testLogger()
	return &fixture{
		db:            db,
		accounts:      NewAccountRepository(db, log),
		settings:      NewSettingRepository(db, log),
		notifications: NewNotificationRepository(db, log),
		chats:         NewChatRepository(db, log),
	}
}

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func (f *fixture) createAccount(t *testing.T, username, email string, joinedOffset time.Duration) *domain.Account {
	t.Helper()

	account := &domain.Account{
		Username:   domain.StringPtr(username),
		Email:      domain.StringPtr(email),
		FirstName:  "First",
		LastName:   "Last",
		IsActive:   true,
		DateJoined: baseTime.Add(joinedOffset),
	}
	require.NoError(t, f.accounts.Create(context.Background(), account))
	require.NotZero(t, account.ID)

	setting := domain.NewSetting(account.ID)
	require.NoError(t, f.settings.Create(context.Background(), setting))
	require.NoError(t, f.notifications.Create(context.Background(), domain.NewNotification(setting.ID)))

	return account
}

func TestAccountGetFields(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	account := f.createAccount(t, "", "admin@share.pet", 0)

	record, err := f.accounts.GetFields(ctx, []string{"username", "first_name", "email", "avatar"}, Filter{"id": account.ID})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"username":   nil,
		"first_name": "First",
		"email":      "admin@share.pet",
		"avatar":     nil,
	}, record)
}

func TestGetFieldsErrors(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	_, err := f.accounts.GetFields(ctx, []string{"username"}, Filter{"id": int64(404)})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.accounts.GetFields(ctx, []string{"password"}, Filter{"id": int64(1)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeContract))

	_, err = f.accounts.GetFields(ctx, []string{"username"}, Filter{"first_name": "x"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeContract))

	_, err = f.accounts.GetFields(ctx, []string{"username"}, Filter{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeContract))

	_, err = f.accounts.GetFields(ctx, nil, Filter{"id": int64(1)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeContract))
}

func TestGetAccount(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	created := f.createAccount(t, "bob", "bob@share.pet", 0)

	account, err := f.accounts.GetAccount(ctx, Filter{"username": "bob"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, account.ID)
	assert.Equal(t, "bob@share.pet", domain.StringValue(account.Email))
	assert.True(t, account.IsActive)
	assert.Nil(t, account.LastLogin)
	assert.True(t, account.DateJoined.Equal(baseTime))

	_, err = f.accounts.GetAccount(ctx, Filter{"username": "alice"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateFieldsByPK(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	account := f.createAccount(t, "bob", "bob@share.pet", 0)

	require.NoError(t, f.accounts.UpdateFieldsByPK(ctx, account.ID, map[string]any{
		"username":   nil,
		"first_name": "Robert",
	}))

	record, err := f.accounts.GetFields(ctx, []string{"username", "first_name", "last_name"}, Filter{"id": account.ID})
	require.NoError(t, err)
	assert.Nil(t, record["username"])
	assert.Equal(t, "Robert", record["first_name"])
	assert.Equal(t, "Last", record["last_name"])

	t.Run("missing pk is a no-op", func(t *testing.T) {
		assert.NoError(t, f.accounts.UpdateFieldsByPK(ctx, 9999, map[string]any{"first_name": "Ghost"}))
	})

	t.Run("empty values is a no-op", func(t *testing.T) {
		assert.NoError(t, f.accounts.UpdateFieldsByPK(ctx, account.ID, nil))
	})

	t.Run("unknown column", func(t *testing.T) {
		err := f.accounts.UpdateFieldsByPK(ctx, account.ID, map[string]any{"role": "admin"})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeContract))
	})

	t.Run("primary key", func(t *testing.T) {
		err := f.accounts.UpdateFieldsByPK(ctx, account.ID, map[string]any{"id": int64(5)})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeContract))
	})
	t.Run("duplicate username", func(t *testing.T) {
		f.createAccount(t, "alice", "alice@share.pet", time.Minute)
		err := f.accounts.UpdateFieldsByPK(ctx, account.ID, map[string]any{"username": "alice"})
		assert.ErrorIs(t, err, ErrDuplicate)
	})
}

func TestListUsernamesOrderedByDateJoined(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	late := f.createAccount(t, "late", "late@share.pet", time.Hour)
	admin := f.createAccount(t, "", "admin@share.pet", time.Minute)
	early := f.createAccount(t, "early", "early@share.pet", 0)

	refs, err := f.accounts.ListUsernames(ctx)
	require.NoError(t, err)
	require.Len(t, refs, 3)

	assert.Equal(t, early.ID, refs[0].PK)
	assert.Equal(t, "early", domain.StringValue(refs[0].Username))
	assert.Equal(t, admin.ID, refs[1].PK)
	assert.Nil(t, refs[1].Username)
	assert.Equal(t, late.ID, refs[2].PK)
}

func TestFindByLoginAndListByEmail(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	bob := f.createAccount(t, "bob", "Bob@Share.pet", 0)

	byUsername, err := f.accounts.FindByLogin(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, byUsername.ID)

	byEmail, err := f.accounts.FindByLogin(ctx, "bob@share.PET")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, byEmail.ID)

	_, err = f.accounts.FindByLogin(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	accounts, err := f.accounts.ListByEmail(ctx, "BOB@share.pet")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, bob.ID, accounts[0].ID)
}

func TestEmailIsUniqueCaseInsensitively(t *testing.T) {
	f := setupFixture(t)
	f.createAccount(t, "bob", "bob@share.pet", 0)

	err := f.accounts.Create(context.Background(), &domain.Account{
		Username:   domain.StringPtr("bobby"),
		Email:      domain.StringPtr("BOB@share.pet"),
		DateJoined: baseTime,
	})
	assert.Error(t, err)
}

func TestSettingAndNotificationByAccount(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	account := f.createAccount(t, "bob", "bob@share.pet", 0)

	setting, err := f.settings.GetFields(ctx, []string{"id", "language", "status"}, Filter{"account_id": account.ID})
	require.NoError(t, err)
	assert.Equal(t, "en", setting["language"])
	assert.Equal(t, "alone_is_fine", setting["status"])

	settingID := setting["id"].(int64)
	require.NoError(t, f.settings.UpdateFieldsByPK(ctx, settingID, map[string]any{"language": "ua"}))

	full, err := f.settings.GetSetting(ctx, Filter{"account_id": account.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.LanguageUA, full.Language)

	notification, err := f.notifications.GetFields(ctx, []string{"id", "refill", "login"}, Filter{"account_id": account.ID})
	require.NoError(t, err)
	assert.Equal(t, true, notification["refill"])

	require.NoError(t, f.notifications.UpdateFieldsByPK(ctx, notification["id"].(int64), map[string]any{"refill": false}))

	prefs, err := f.notifications.GetNotification(ctx, Filter{"account_id": account.ID})
	require.NoError(t, err)
	assert.Equal(t, settingID, prefs.SettingID)
	assert.False(t, prefs.Flags["refill"])
	assert.True(t, prefs.Flags["login"])
	assert.Len(t, prefs.Flags, len(domain.NotificationEvents))
}

func TestSettingCascadesWithAccount(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	account := f.createAccount(t, "bob", "bob@share.pet", 0)

	_, err := f.db.ExecContext(ctx, `DELETE FROM account WHERE id = $1`, account.ID)
	require.NoError(t, err)

	_, err = f.settings.GetSetting(ctx, Filter{"account_id": account.ID})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.notifications.GetNotification(ctx, Filter{"account_id": account.ID})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWithinTxRollsBack(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := WithinTx(ctx, f.db, func(tx *sql.Tx) error {
		account := &domain.Account{Username: domain.StringPtr("ghost"), DateJoined: baseTime}
		require.NoError(t, f.accounts.WithTx(tx).Create(ctx, account))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = f.accounts.GetAccount(ctx, Filter{"username": "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCountByRole(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	f.createAccount(t, "bob", "bob@share.pet", 0)
	admin := f.createAccount(t, "", "admin@share.pet", time.Minute)
	require.NoError(t, f.accounts.UpdateFieldsByPK(ctx, admin.ID, map[string]any{"is_administrator": true}))

	counts, err := f.accounts.CountByRole(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"user": 1, "administrator": 1}, counts)
}

func TestChatRepository(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	bob := f.createAccount(t, "bob", "bob@share.pet", 0)
	alice := f.createAccount(t, "alice", "alice@share.pet", time.Minute)

	chat := &domain.Chat{Name: "Cats", Slug: "cats", DateCreated: baseTime}
	require.NoError(t, f.chats.Create(ctx, chat, bob.ID))

	chats, err := f.chats.ListForAccount(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, "cats", chats[0].Slug)

	member, err := f.chats.IsMember(ctx, chat.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, member)

	require.NoError(t, f.chats.AddMember(ctx, chat.ID, alice.ID))
	require.NoError(t, f.chats.AddMember(ctx, chat.ID, alice.ID))
	member, err = f.chats.IsMember(ctx, chat.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, member)

	for i, text := range []string{"first", "second", "third"} {
		message := &domain.Message{
			ChatID:   chat.ID,
			SenderID: bob.ID,
			Text:     domain.StringPtr(text),
			DateSent: baseTime.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, f.chats.CreateMessage(ctx, message))
	}

	messages, err := f.chats.ListMessages(ctx, chat.ID, 2)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "second", domain.StringValue(messages[0].Text))
	assert.Equal(t, "third", domain.StringValue(messages[1].Text))
	assert.Equal(t, "bob", messages[1].Sender)
	assert.Nil(t, messages[1].File)

	_, err = f.chats.GetBySlug(ctx, "dogs")
	assert.ErrorIs(t, err, ErrNotFound)
}
