// Package mail sends chat transcripts to players by email over SMTP.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/wardleworks/chatwarden/internal/config"
)

// Sender delivers a transcript body to one recipient.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// presetHosts maps the configured mail type to its SMTP submission host.
var presetHosts = map[config.MailType]string{
	config.MailGmail:   "smtp.gmail.com",
	config.MailOutlook: "smtp.office365.com",
}

// SMTPSender is a [Sender] speaking authenticated SMTP with STARTTLS, the
// submission flavor both Gmail and Outlook expect on port 587.
type SMTPSender struct {
	host     string
	port     int
	from     string
	password string

	// send is swappable for tests; defaults to smtp.SendMail.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

var _ Sender = (*SMTPSender)(nil)

// NewSMTPSender builds a sender from the mail configuration. An explicit
// host override beats the type preset.
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	host := cfg.Host
	if host == "" {
		host = presetHosts[cfg.Type]
		if host == "" {
			host = presetHosts[config.MailGmail]
		}
	}
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	return &SMTPSender{
		host:     host,
		port:     port,
		from:     cfg.From,
		password: cfg.Password,
		send:     smtp.SendMail,
	}
}

// Send delivers body to the recipient. The context is honored only between
// retries of the synchronous smtp dial, so callers should run Send off the
// hot path.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	auth := smtp.PlainAuth("", s.from, s.password, s.host)
	msg := s.message(to, subject, body)
	if err := s.send(addr, auth, s.from, []string{to}, msg); err != nil {
		return fmt.Errorf("sending mail via %s: %w", addr, err)
	}
	return nil
}

func (s *SMTPSender) message(to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
