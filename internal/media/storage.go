// Package media stores uploaded avatars and chat attachments.
package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/share-pet/share-pet/pkg/config"
)

// Folders used as key prefixes.
const (
	FolderAvatars = "avatars"
	FolderChats   = "chats"
)

// MaxUploadSize bounds a single uploaded file.
const MaxUploadSize = 5 << 20

// Upload is a file submitted with a form.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Storage persists files under opaque keys.
type Storage interface {
	Save(ctx context.Context, folder, filename string, body io.Reader, contentType string) (key string, err error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// New builds the backend selected by cfg.
func New(cfg config.MediaConfig, log *slog.Logger) (Storage, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalStorage(cfg.Root, cfg.BaseURL), nil
	case "s3":
		return NewS3Storage(cfg, log)
	default:
		return nil, fmt.Errorf("unknown media backend %q", cfg.Backend)
	}
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// NewKey returns a unique key in folder that keeps a sanitized form of filename.
func NewKey(folder, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = strings.Trim(unsafeChars.ReplaceAllString(name, "_"), "._")
	if name == "" {
		name = "file"
	}
	return path.Join(folder, uuid.NewString()+"_"+name)
}
