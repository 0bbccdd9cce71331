package infra

import (
	"bytes"
	"fmt"
	"net/smtp"

	"sistema-servicios/internal/config"

	"github.com/jordan-wright/email"
)

// Mailer wraps SMTP configuration for sending the month summaries.
type Mailer struct {
	host     string
	user     string
	password string
	from     string
	addr     string
}

func NewMailer(cfg *config.Config) *Mailer {
	from := cfg.SMTPFrom
	if from == "" {
		from = cfg.SMTPUser
	}
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     from,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
	}
}

// SendAdjunto sends a plain-text mail with one PDF attachment. A relay
// without credentials (local MailHog, internal relay) is used unauthenticated.
func (m *Mailer) SendAdjunto(to, subject, body, nombreAdjunto string, adjunto []byte) error {
	e := email.NewEmail()
	e.From = m.from
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	if len(adjunto) > 0 {
		if _, err := e.Attach(bytes.NewReader(adjunto), nombreAdjunto, "application/pdf"); err != nil {
			return fmt.Errorf("mailer: attach PDF: %w", err)
		}
	}

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	return e.Send(m.addr, auth)
}
