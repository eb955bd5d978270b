// Package mailer delivers outgoing email: an SMTP sender and a bounded
// background queue that keeps delivery out of the request path.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templatesFS embed.FS

var confirmTemplate = template.Must(template.ParseFS(templatesFS, "templates/confirm_email.html"))

// Message is one HTML email to a single recipient.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

// Sender delivers a single message synchronously.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

const confirmSubject = "Confirm your email"

// ConfirmationMessage renders the email-confirmation letter for name/to
// pointing at link.
func ConfirmationMessage(to, name, link string, valid time.Duration) (Message, error) {
	var buf bytes.Buffer
	err := confirmTemplate.Execute(&buf, struct {
		Name  string
		Link  string
		Valid string
	}{Name: name, Link: link, Valid: valid.String()})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: confirmSubject, HTMLBody: buf.String()}, nil
}
