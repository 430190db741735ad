package domain

import (
	"strings"
	"time"
	"unicode"
)

const ChatNameMaxLength = 100

// Chat is a named conversation between accounts.
type Chat struct {
	ID          int64
	Name        string
	Slug        string
	DateCreated time.Time
}

// Message belongs to a chat. At least one of Text and File is set.
type Message struct {
	ID       int64
	ChatID   int64
	SenderID int64
	Sender   string
	Text     *string
	File     *string
	DateSent time.Time
}

// IsEmpty reports whether the message carries neither text nor a file.
func (m *Message) IsEmpty() bool {
	return strings.TrimSpace(StringValue(m.Text)) == "" && StringValue(m.File) == ""
}

// Slugify lowercases name, drops everything but letters, digits, spaces,
// underscores and hyphens, and joins the words with single hyphens.
func Slugify(name string) string {
	var b strings.Builder
	pendingDash := false

	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-':
			pendingDash = true
		}
	}

	return strings.Trim(b.String(), "-_")
}
