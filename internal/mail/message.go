// Package mail renders and delivers transactional email.
package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template names.
const (
	TemplateWelcome       = "welcome"
	TemplateSubscription  = "subscription"
	TemplateItemStatus    = "item_status"
	TemplatePasswordReset = "password_reset"
)

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Renderer turns templates into messages.
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	names := []string{TemplateWelcome, TemplateSubscription, TemplateItemStatus, TemplatePasswordReset}
	r := &Renderer{templates: make(map[string]*template.Template, len(names))}
	for _, name := range names {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.templates[name] = t
	}
	return r, nil
}

// Render executes the named template for a recipient.
// The plain-text part is derived from the HTML body.
func (r *Renderer) Render(name, to string, data any) (*Message, error) {
	t, ok := r.templates[name]
	if !ok {
		return nil, fmt.Errorf("unknown template %q", name)
	}

	var subject, body bytes.Buffer
	if err := t.ExecuteTemplate(&subject, "subject", data); err != nil {
		return nil, fmt.Errorf("render %s subject: %w", name, err)
	}
	if err := t.ExecuteTemplate(&body, "layout", data); err != nil {
		return nil, fmt.Errorf("render %s body: %w", name, err)
	}

	html := body.String()
	text, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		text = html
	}

	return &Message{
		To:      to,
		Subject: strings.TrimSpace(subject.String()),
		HTML:    html,
		Text:    strings.TrimSpace(text),
	}, nil
}
