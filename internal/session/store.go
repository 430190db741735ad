// Package session keeps login sessions and one-time account keys in Redis.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNoSession is returned for unknown or expired session tokens.
var ErrNoSession = errors.New("session not found")

// Store maps opaque session tokens to account ids.
type Store struct {
	client redis.UniversalClient
	ttl    time.Duration
	log    *slog.Logger
}

// NewStore returns a Store whose sessions expire after ttl of inactivity.
func NewStore(client redis.UniversalClient, ttl time.Duration, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}

	return &Store{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// TTL returns the session lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create starts a session for accountID and returns its token.
func (s *Store) Create(ctx context.Context, accountID int64) (string, error) {
	token := uuid.NewString()
	if err := s.client.Set(ctx, sessionKey(token), accountID, s.ttl).Err(); err != nil {
		s.log.Error("failed to create session", slog.Int64("account_id", accountID), slog.Any("error", err))
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}

// AccountID resolves token and extends the session.
func (s *Store) AccountID(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrNoSession
	}

	value, err := s.client.GetEx(ctx, sessionKey(token), s.ttl).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrNoSession
		}
		return 0, fmt.Errorf("get session: %w", err)
	}

	accountID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decode session: %w", err)
	}
	return accountID, nil
}

// Delete ends the session. Unknown tokens are ignored.
func (s *Store) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	if err := s.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		s.log.Error("failed to delete session", slog.Any("error", err))
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}
