package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/share-pet/share-pet/internal/errors"
)

// Purpose separates the key namespaces.
type Purpose string

const (
	PurposeEmailConfirmation Purpose = "email_confirmation"
	PurposePasswordReset     Purpose = "password_reset"
)

// KeyStore issues single-use keys bound to an account, such as email
// confirmation and password reset keys.
type KeyStore struct {
	client redis.UniversalClient
	log    *slog.Logger
}

func NewKeyStore(client redis.UniversalClient, log *slog.Logger) *KeyStore {
	if log == nil {
		log = slog.Default()
	}

	return &KeyStore{client: client, log: log}
}

// Issue creates a key for accountID valid for ttl.
func (s *KeyStore) Issue(ctx context.Context, purpose Purpose, accountID int64, ttl time.Duration) (string, error) {
	key := strings.ReplaceAll(uuid.NewString(), "-", "")

	acquired, err := s.client.SetNX(ctx, oneTimeKey(purpose, key), accountID, ttl).Result()
	if err != nil {
		s.log.Error("failed to issue key",
			slog.String("purpose", string(purpose)),
			slog.Int64("account_id", accountID),
			slog.Any("error", err),
		)
		return "", fmt.Errorf("issue %s key: %w", purpose, err)
	}
	if !acquired {
		return "", fmt.Errorf("issue %s key: key collision", purpose)
	}

	return key, nil
}

// Peek returns the account bound to key without using it up.
func (s *KeyStore) Peek(ctx context.Context, purpose Purpose, key string) (int64, error) {
	value, err := s.client.Get(ctx, oneTimeKey(purpose, key)).Result()
	return s.decode(purpose, value, err)
}

// Consume returns the account bound to key and invalidates the key.
func (s *KeyStore) Consume(ctx context.Context, purpose Purpose, key string) (int64, error) {
	value, err := s.client.GetDel(ctx, oneTimeKey(purpose, key)).Result()
	return s.decode(purpose, value, err)
}

func (s *KeyStore) decode(purpose Purpose, value string, err error) (int64, error) {
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, apperrors.NewInvalidKeyError(string(purpose))
		}
		s.log.Error("failed to read key", slog.String("purpose", string(purpose)), slog.Any("error", err))
		return 0, fmt.Errorf("read %s key: %w", purpose, err)
	}

	accountID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decode %s key: %w", purpose, err)
	}
	return accountID, nil
}

func oneTimeKey(purpose Purpose, key string) string {
	return fmt.Sprintf("key:%s:%s", purpose, key)
}
