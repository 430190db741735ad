package mail

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/share-pet/share-pet/internal/i18n"
)

//go:embed templates/*.txt
var templateFS embed.FS

// Message is a rendered mail ready for delivery.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Renderer turns a Payload into a Message in the recipient's language.
type Renderer struct {
	from         string
	translations *i18n.Manager
	templates    *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer(from string, translations *i18n.Manager) (*Renderer, error) {
	// The t func is replaced per render; it only has to exist at parse time.
	tmpl, err := template.New("mail").
		Funcs(template.FuncMap{"t": func(key string) string { return key }}).
		ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}

	return &Renderer{
		from:         from,
		translations: translations,
		templates:    tmpl,
	}, nil
}

// Render builds the message for payload.
func (r *Renderer) Render(payload Payload) (*Message, error) {
	if !payload.Template.Valid() {
		return nil, fmt.Errorf("unknown mail template %q", payload.Template)
	}

	translator := r.translations.Translator(payload.Language)

	tmpl, err := r.templates.Clone()
	if err != nil {
		return nil, fmt.Errorf("clone mail templates: %w", err)
	}
	tmpl.Funcs(template.FuncMap{"t": translator.T})

	var body bytes.Buffer
	if err := tmpl.ExecuteTemplate(&body, string(payload.Template)+".txt", payload.Data); err != nil {
		return nil, fmt.Errorf("render %s: %w", payload.Template, err)
	}

	return &Message{
		From:    r.from,
		To:      payload.To,
		Subject: translator.T("mail." + string(payload.Template) + ".subject"),
		Body:    body.String(),
	}, nil
}
