// Package notify delivers the confirmation email.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Message is one outgoing HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
	// Delivers reports whether messages leave the process. The log mailer
	// does not, so callers hand the link back to the client instead.
	Delivers() bool
}

// SendGrid sends through the SendGrid v3 API.
type SendGrid struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

func NewSendGrid(apiKey, fromEmail, fromName string) *SendGrid {
	return &SendGrid{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail("", msg.To)
	m := mail.NewSingleEmail(from, msg.Subject, to, "", msg.HTML)

	resp, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func (s *SendGrid) Delivers() bool { return true }

// Log writes messages to the logger. Used when no mail API key is configured.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log {
	if log == nil {
		log = zap.NewNop()
	}
	return &Log{log: log}
}

func (l *Log) Send(_ context.Context, msg Message) error {
	l.log.Info("email not sent, no mail provider configured",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}

func (l *Log) Delivers() bool { return false }

const confirmSubject = "Confirme o seu email - B2P Energy"

var confirmTemplate = template.Must(template.New("confirm").Parse(`<div style="font-family:Arial,sans-serif;line-height:1.5">
  <h2>Confirmar email</h2>
  <p>Para continuar com o simulador B2P Energy, confirme o seu email:</p>
  <p><a href="{{.URL}}" style="display:inline-block;padding:10px 16px;background:#0ea5e9;color:#fff;text-decoration:none;border-radius:8px">Confirmar email</a></p>
  <p>O link expira em {{.Minutes}} minutos. Se não foi você que solicitou, ignore esta mensagem.</p>
</div>`))

// ConfirmationMessage renders the confirmation email for to.
func ConfirmationMessage(to, confirmURL string, validMinutes int) (Message, error) {
	var buf bytes.Buffer
	err := confirmTemplate.Execute(&buf, struct {
		URL     string
		Minutes int
	}{confirmURL, validMinutes})
	if err != nil {
		return Message{}, fmt.Errorf("render confirmation email: %w", err)
	}
	return Message{To: to, Subject: confirmSubject, HTML: buf.String()}, nil
}
