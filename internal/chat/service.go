// Package chat stores chat rooms and their messages and relays them live.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/share-pet/share-pet/internal/domain"
	"github.com/share-pet/share-pet/internal/forms"
	"github.com/share-pet/share-pet/internal/media"
	"github.com/share-pet/share-pet/internal/repository"
	"github.com/share-pet/share-pet/internal/validation"
	"github.com/share-pet/share-pet/pkg/metrics"
)

const (
	MsgChatNameTaken   = "Chat with this name already exists."
	MsgChatNameInvalid = "Chat name must contain letters or digits."
)

// HistoryLimit is how many recent messages a chat page shows.
const HistoryLimit = 50

type createInput struct {
	Name string `form:"name" validate:"required,max=100"`
}

// Broadcaster delivers an event to the live clients of a room.
type Broadcaster interface {
	Broadcast(room string, payload []byte)
}

// Detail is a chat with its recent history.
type Detail struct {
	Chat     *domain.Chat
	Messages []*domain.Message
}

// MessageView is the wire form of a message.
type MessageView struct {
	ID       int64     `json:"id"`
	Sender   string    `json:"sender"`
	Text     *string   `json:"text,omitempty"`
	File     string    `json:"file,omitempty"`
	DateSent time.Time `json:"date_sent"`
}

// Event is pushed to websocket clients when a message is stored.
type Event struct {
	Type    string      `json:"type"`
	Chat    string      `json:"chat"`
	Message MessageView `json:"message"`
}

type Service struct {
	chats repository.ChatRepository
	media media.Storage
	hub   Broadcaster
	log   *slog.Logger
	now   func() time.Time
}

// NewService constructs a new Service instance. hub may be nil.
func NewService(chats repository.ChatRepository, storage media.Storage, hub Broadcaster, log *slog.Logger) *Service {
	return &Service{
		chats: chats,
		media: storage,
		hub:   hub,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// List returns the chats account takes part in.
func (s *Service) List(ctx context.Context, accountID int64) ([]*domain.Chat, error) {
	return s.chats.ListForAccount(ctx, accountID)
}

// Create opens a chat named by the form, with owner as its first member.
func (s *Service) Create(ctx context.Context, owner *domain.Account, data map[string]string) (*domain.Chat, validation.FieldErrors, error) {
	var input createInput
	errs, err := forms.Bind(data, &input)
	if err != nil {
		return nil, nil, err
	}
	if len(errs) > 0 {
		return nil, errs, nil
	}

	slug := domain.Slugify(input.Name)
	if slug == "" {
		errs.Add("name", MsgChatNameInvalid)
		return nil, errs, nil
	}

	if _, err := s.chats.GetBySlug(ctx, slug); err == nil {
		errs.Add("name", MsgChatNameTaken)
		return nil, errs, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, err
	}

	chat := &domain.Chat{Name: input.Name, Slug: slug, DateCreated: s.now()}
	if err := s.chats.Create(ctx, chat, owner.ID); err != nil {
		return nil, nil, err
	}

	s.log.InfoContext(ctx, "chat created", slog.String("slug", slug), slog.Int64("account_id", owner.ID))
	return chat, nil, nil
}

// Get returns the chat for slug.
func (s *Service) Get(ctx context.Context, slug string) (*domain.Chat, error) {
	return s.chats.GetBySlug(ctx, slug)
}

// Detail returns the chat for slug with its latest messages.
func (s *Service) Detail(ctx context.Context, slug string) (*Detail, error) {
	chat, err := s.chats.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	messages, err := s.chats.ListMessages(ctx, chat.ID, HistoryLimit)
	if err != nil {
		return nil, err
	}
	return &Detail{Chat: chat, Messages: messages}, nil
}

// Post stores a message from sender and pushes it to the room. A message
// with neither text nor file is dropped without an error and Post returns nil.
func (s *Service) Post(ctx context.Context, sender *domain.Account, slug, text string, file *media.Upload) (*domain.Message, error) {
	chat, err := s.chats.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	message := &domain.Message{
		ChatID:   chat.ID,
		SenderID: sender.ID,
		Sender:   sender.DisplayName(),
		Text:     domain.StringPtr(text),
		DateSent: s.now(),
	}
	if file != nil && file.Filename != "" {
		message.File = &file.Filename
	}

	if message.IsEmpty() {
		metrics.RecordChatMessage("dropped")
		s.log.DebugContext(ctx, "empty chat message dropped", slog.String("slug", slug), slog.Int64("account_id", sender.ID))
		return nil, nil
	}

	if message.File != nil {
		key, err := s.media.Save(ctx, media.FolderChats, file.Filename, file.Body, file.ContentType)
		if err != nil {
			return nil, fmt.Errorf("store chat file: %w", err)
		}
		message.File = &key
	}

	if err := s.chats.AddMember(ctx, chat.ID, sender.ID); err != nil {
		return nil, err
	}
	if err := s.chats.CreateMessage(ctx, message); err != nil {
		return nil, err
	}

	metrics.RecordChatMessage("accepted")
	s.publish(chat.Slug, message)
	return message, nil
}

// View renders message for clients, resolving the attachment to a URL.
func (s *Service) View(message *domain.Message) MessageView {
	view := MessageView{
		ID:       message.ID,
		Sender:   message.Sender,
		Text:     message.Text,
		DateSent: message.DateSent,
	}
	if message.File != nil && *message.File != "" {
		view.File = s.media.URL(*message.File)
	}
	return view
}

func (s *Service) publish(room string, message *domain.Message) {
	if s.hub == nil {
		return
	}

	payload, err := json.Marshal(Event{Type: "message", Chat: room, Message: s.View(message)})
	if err != nil {
		s.log.Error("chat event not encoded", slog.Any("error", err))
		return
	}
	s.hub.Broadcast(room, payload)
}
