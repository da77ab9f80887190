// Package mail sends transactional email: Mailgun when configured,
// otherwise the message is only logged.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"forgedb/internal/config"
	"forgedb/internal/middleware"

	"github.com/mailgun/mailgun-go/v4"
)

// VerificationSubject is the subject line of the account verification email.
const VerificationSubject = "Verificación de cuenta - ForgeDB"

// Message is a single outgoing email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

var verificationTmpl = template.Must(template.New("verification").Parse(
	`<p>Hola, tu código de verificación es: <b>{{.Code}}</b></p>` +
		`<p>Este código expira en {{.Minutes}} minutos.</p>`))

// VerificationMessage builds the email carrying a verification code.
func VerificationMessage(to, code string, ttl time.Duration) (Message, error) {
	minutes := int(ttl.Minutes())
	var buf bytes.Buffer
	if err := verificationTmpl.Execute(&buf, struct {
		Code    string
		Minutes int
	}{code, minutes}); err != nil {
		return Message{}, fmt.Errorf("render verification email: %w", err)
	}
	return Message{
		To:      to,
		Subject: VerificationSubject,
		Text:    fmt.Sprintf("Hola, tu código de verificación es: %s. Este código expira en %d minutos.", code, minutes),
		HTML:    buf.String(),
	}, nil
}

// MailgunMailer sends through the Mailgun HTTP API.
type MailgunMailer struct {
	mg   mailgun.Mailgun
	from string
}

// NewMailgunMailer creates a Mailgun mailer. apiBase may be empty to use
// the default (US) endpoint.
func NewMailgunMailer(domain, apiKey, apiBase, from string) *MailgunMailer {
	mg := mailgun.NewMailgun(domain, apiKey)
	if apiBase != "" {
		mg.SetAPIBase(apiBase)
	}
	if from == "" {
		from = "ForgeDB <postmaster@" + domain + ">"
	}
	return &MailgunMailer{mg: mg, from: from}
}

// Send implements Mailer.
func (m *MailgunMailer) Send(ctx context.Context, msg Message) error {
	message := m.mg.NewMessage(m.from, msg.Subject, msg.Text, msg.To)
	if msg.HTML != "" {
		message.SetHtml(msg.HTML)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, id, err := m.mg.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("mailgun send: %w", err)
	}
	middleware.Logger.InfoContext(ctx, "email sent", "provider", "mailgun", "id", id, "subject", msg.Subject)
	return nil
}

// LogMailer writes messages to the application log instead of sending them.
type LogMailer struct{}

// Send implements Mailer.
func (LogMailer) Send(ctx context.Context, msg Message) error {
	middleware.Logger.InfoContext(ctx, "email not sent (no provider configured)",
		"to", msg.To, "subject", msg.Subject, "body", msg.Text)
	return nil
}

// FromConfig picks the Mailgun mailer when credentials are present.
func FromConfig(cfg *config.Config) Mailer {
	if cfg.MailgunDomain != "" && cfg.MailgunAPIKey != "" {
		return NewMailgunMailer(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunAPIBase, cfg.MailFrom)
	}
	return LogMailer{}
}
