// Package mailer delivers alert emails over SMTP.
package mailer

import (
	"errors"
	"fmt"
	"net/smtp"
	"time"

	"github.com/google/uuid"

	"fleetmon/internal/config"
	"fleetmon/internal/logger"
	"fleetmon/internal/metrics"
)

// ErrNotConfigured is returned when SMTP settings are missing.
var ErrNotConfigured = errors.New("smtp is not configured")

// Sender is the outbound email contract. Implementations return a
// message ID on success.
type Sender interface {
	Send(to string, msg Message) (string, error)
}

// Message is a rendered email with text and HTML alternatives.
type Message struct {
	Subject  string
	TextBody string
	HTMLBody string
}

// SMTPSender sends mail through a single SMTP endpoint using PLAIN auth
// with STARTTLS where the server offers it.
type SMTPSender struct {
	cfg config.SMTPConfig
}

// NewSMTPSender creates a sender for the given SMTP settings.
func NewSMTPSender(cfg config.SMTPConfig) (*SMTPSender, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	return &SMTPSender{cfg: cfg}, nil
}

// Send delivers one message and returns its generated message ID.
func (s *SMTPSender) Send(to string, msg Message) (string, error) {
	log := logger.WithComponent("mailer")
	start := time.Now()

	messageID := uuid.New().String()
	body := s.encode(to, messageID, msg)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, body)
	metrics.EmailSendDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		log.Error().Err(err).Str("to", to).Msg("email send failed")
		return "", fmt.Errorf("send to %s: %w", to, err)
	}

	log.Debug().
		Str("to", to).
		Str("message_id", messageID).
		Dur("duration", time.Since(start)).
		Msg("email sent")
	return messageID, nil
}

// encode builds a multipart/alternative MIME message with plain-text and
// HTML parts.
func (s *SMTPSender) encode(to, messageID string, msg Message) []byte {
	boundary := "=_fleetmon_" + messageID

	header := fmt.Sprintf(
		"From: %s <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"Message-ID: <%s@fleetmon>\r\n"+
			"Date: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: multipart/alternative; boundary=%q\r\n\r\n",
		s.cfg.FromName, s.cfg.From, to, msg.Subject, messageID,
		time.Now().Format(time.RFC1123Z), boundary,
	)

	body := header +
		"--" + boundary + "\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n\r\n" +
		msg.TextBody + "\r\n" +
		"--" + boundary + "\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n\r\n" +
		msg.HTMLBody + "\r\n" +
		"--" + boundary + "--\r\n"

	return []byte(body)
}
