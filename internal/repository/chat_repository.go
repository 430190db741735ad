package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/share-pet/share-pet/internal/domain"
)

// ChatRepository defines persistence operations for chats, members and messages.
type ChatRepository interface {
	// Create inserts chat and adds the given members in one transaction.
	Create(ctx context.Context, chat *domain.Chat, memberIDs ...int64) error
	GetBySlug(ctx context.Context, slug string) (*domain.Chat, error)
	ListForAccount(ctx context.Context, accountID int64) ([]*domain.Chat, error)
	AddMember(ctx context.Context, chatID, accountID int64) error
	IsMember(ctx context.Context, chatID, accountID int64) (bool, error)
	CreateMessage(ctx context.Context, message *domain.Message) error
	// ListMessages returns the latest limit messages in chronological order.
	ListMessages(ctx context.Context, chatID int64, limit int) ([]*domain.Message, error)
}

type chatRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewChatRepository creates a new SQL-backed chat repository.
func NewChatRepository(db *sql.DB, log *slog.Logger) ChatRepository {
	return &chatRepository{
		db:  db,
		log: log,
	}
}

func (r *chatRepository) Create(ctx context.Context, chat *domain.Chat, memberIDs ...int64) error {
	const query = `
		INSERT INTO chat (name, slug, date_created)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	return WithinTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, query, chat.Name, chat.Slug, chat.DateCreated).Scan(&chat.ID); err != nil {
			if r.log != nil {
				r.log.Error("failed to create chat", slog.String("slug", chat.Slug), slog.Any("error", err))
			}
			return fmt.Errorf("insert chat: %w", err)
		}

		for _, accountID := range memberIDs {
			if err := addMember(ctx, tx, chat.ID, accountID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *chatRepository) GetBySlug(ctx context.Context, slug string) (*domain.Chat, error) {
	const query = `
		SELECT id, name, slug, date_created
		FROM chat
		WHERE slug = $1
	`

	var chat domain.Chat
	if err := r.db.QueryRowContext(ctx, query, slug).Scan(&chat.ID, &chat.Name, &chat.Slug, &chat.DateCreated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("chat %q: %w", slug, ErrNotFound)
		}
		if r.log != nil {
			r.log.Error("failed to fetch chat", slog.String("slug", slug), slog.Any("error", err))
		}
		return nil, fmt.Errorf("select chat: %w", err)
	}
	return &chat, nil
}

func (r *chatRepository) ListForAccount(ctx context.Context, accountID int64) ([]*domain.Chat, error) {
	const query = `
		SELECT chat.id, chat.name, chat.slug, chat.date_created
		FROM chat
		JOIN chat_member ON chat_member.chat_id = chat.id
		WHERE chat_member.account_id = $1
		ORDER BY chat.date_created DESC, chat.id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to list chats", slog.Int64("account_id", accountID), slog.Any("error", err))
		}
		return nil, fmt.Errorf("select chats: %w", err)
	}
	defer rows.Close()

	var chats []*domain.Chat
	for rows.Next() {
		var chat domain.Chat
		if err := rows.Scan(&chat.ID, &chat.Name, &chat.Slug, &chat.DateCreated); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		chats = append(chats, &chat)
	}
	return chats, rows.Err()
}

func (r *chatRepository) AddMember(ctx context.Context, chatID, accountID int64) error {
	return addMember(ctx, r.db, chatID, accountID)
}

func addMember(ctx context.Context, q Querier, chatID, accountID int64) error {
	const query = `
		INSERT INTO chat_member (chat_id, account_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`

	if _, err := q.ExecContext(ctx, query, chatID, accountID); err != nil {
		return fmt.Errorf("insert chat member: %w", err)
	}
	return nil
}

func (r *chatRepository) IsMember(ctx context.Context, chatID, accountID int64) (bool, error) {
	const query = `
		SELECT COUNT(*)
		FROM chat_member
		WHERE chat_id = $1 AND account_id = $2
	`

	var count int
	if err := r.db.QueryRowContext(ctx, query, chatID, accountID).Scan(&count); err != nil {
		return false, fmt.Errorf("select chat member: %w", err)
	}
	return count > 0, nil
}

func (r *chatRepository) CreateMessage(ctx context.Context, message *domain.Message) error {
	const query = `
		INSERT INTO message (chat_id, sender_id, body, attachment, date_sent)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	if err := r.db.QueryRowContext(
		ctx,
		query,
		message.ChatID,
		message.SenderID,
		message.Text,
		message.File,
		message.DateSent,
	).Scan(&message.ID); err != nil {
		if r.log != nil {
			r.log.Error("failed to create message", slog.Int64("chat_id", message.ChatID), slog.Any("error", err))
		}
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *chatRepository) ListMessages(ctx context.Context, chatID int64, limit int) ([]*domain.Message, error) {
	const query = `
		SELECT message.id, message.chat_id, message.sender_id,
			COALESCE(account.username, account.email, ''),
			message.body, message.attachment, message.date_sent
		FROM message
		JOIN account ON account.id = message.sender_id
		WHERE message.chat_id = $1
		ORDER BY message.date_sent DESC, message.id DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, chatID, limit)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to list messages", slog.Int64("chat_id", chatID), slog.Any("error", err))
		}
		return nil, fmt.Errorf("select messages: %w", err)
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		var (
			message domain.Message
			text    sql.NullString
			file    sql.NullString
		)
		if err := rows.Scan(&message.ID, &message.ChatID, &message.SenderID, &message.Sender, &text, &file, &message.DateSent); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if text.Valid {
			message.Text = &text.String
		}
		if file.Valid {
			message.File = &file.String
		}
		messages = append(messages, &message)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
