// Package mail delivers transactional email. Delivery is fire-and-forget from
// the caller's perspective; failures are reported but carry no retry state.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"

	"inkwell/internal/config"
	"inkwell/internal/middleware"
)

// Mailer sends a message to a single recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer sends mail through a plain-auth SMTP relay.
type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
}

// LogMailer writes mail to the structured log instead of sending it. Used in
// development and tests when no SMTP relay is configured.
type LogMailer struct {
	logger *slog.Logger
}

// NewFromConfig returns an SMTPMailer when an SMTP host is configured and a
// LogMailer otherwise.
func NewFromConfig(cfg *config.Config) Mailer {
	if cfg.SMTPHost == "" {
		return &LogMailer{logger: middleware.Logger}
	}
	return &SMTPMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.MailFrom,
	}
}

// Send delivers the message via SMTP.
func (m *SMTPMailer) Send(_ context.Context, to, subject, body string) error {
	message := []byte(fmt.Sprintf("To: %s\r\n"+
		"From: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-version: 1.0;\r\n"+
		"Content-Type: text/plain; charset=\"UTF-8\";\r\n\r\n"+
		"%s\r\n", to, m.from, subject, body))

	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	if err := smtp.SendMail(m.host+":"+m.port, auth, m.from, []string{to}, message); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

// Send logs the message instead of delivering it.
func (m *LogMailer) Send(ctx context.Context, to, subject, body string) error {
	m.logger.InfoContext(ctx, "mail delivery skipped (no SMTP configured)",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("body", body),
	)
	return nil
}
