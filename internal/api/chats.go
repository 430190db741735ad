package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/share-pet/share-pet/internal/access"
	"github.com/share-pet/share-pet/internal/chat"
	"github.com/share-pet/share-pet/internal/domain"
)

type chatView struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	DateCreated time.Time `json:"date_created"`
}

func viewChat(c *domain.Chat) chatView {
	return chatView{ID: c.ID, Name: c.Name, Slug: c.Slug, DateCreated: c.DateCreated}
}

func (s *Server) chatList(w http.ResponseWriter, r *http.Request) {
	account := access.AccountFromContext(r.Context())

	chats, err := s.chats.List(r.Context(), account.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	views := make([]chatView, 0, len(chats))
	for _, c := range chats {
		views = append(views, viewChat(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"chats": views})
}

func (s *Server) chatCreate(w http.ResponseWriter, r *http.Request) {
	data, err := parseForm(w, r)
	if err != nil {
		s.badForm(w, r, err)
		return
	}

	created, errs, err := s.chats.Create(r.Context(), access.AccountFromContext(r.Context()), data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(errs) > 0 {
		s.writeFieldErrors(w, r, errs)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"chat": viewChat(created)})
}

func (s *Server) chatDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := s.chats.Detail(r.Context(), r.PathValue("slug"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	messages := make([]chat.MessageView, 0, len(detail.Messages))
	for _, m := range detail.Messages {
		messages = append(messages, s.chats.View(m))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"chat":     viewChat(detail.Chat),
		"messages": messages,
	})
}

func (s *Server) chatPost(w http.ResponseWriter, r *http.Request) {
	data, err := parseForm(w, r)
	if err != nil {
		s.badForm(w, r, err)
		return
	}

	upload, file, err := formFile(r, "file")
	if err != nil {
		s.badForm(w, r, err)
		return
	}
	if file != nil {
		defer file.Close()
	}

	sender := access.AccountFromContext(r.Context())
	message, err := s.chats.Post(r.Context(), sender, r.PathValue("slug"), data["message"], upload)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if message == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"message": s.chats.View(message)})
}

// chatSocket joins the caller to the live room of an existing chat.
func (s *Server) chatSocket(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	if _, err := s.chats.Get(r.Context(), slug); err != nil {
		s.writeError(w, r, err)
		return
	}

	account := access.AccountFromContext(r.Context())
	if err := s.hub.Serve(w, r, slug, account.ID); err != nil {
		// the upgrader has already answered the request
		s.log.WarnContext(r.Context(), "websocket upgrade failed", slog.String("chat", slug), slog.Any("error", err))
	}
}
