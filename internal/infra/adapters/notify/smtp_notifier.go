// Package notify delivers credentials and confirmations by email.
package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/rs/zerolog"

	"mpesa-subscription-shop/internal/config"
	"mpesa-subscription-shop/internal/domain/ports/adapter"
	"mpesa-subscription-shop/internal/infra/logging"
)

var _ adapter.Notifier = (*SMTPNotifier)(nil)

// SMTPNotifier sends plain-text mail over SMTP.
type SMTPNotifier struct {
	addr   string
	auth   smtp.Auth
	sender string
	log    *zerolog.Logger
}

func NewSMTPNotifier(cfg config.SMTPConfig, logger *zerolog.Logger) *SMTPNotifier {
	sender := cfg.Sender
	if sender == "" {
		sender = "no-reply@localhost"
	}
	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	compLog := logger.With().Str("component", "SMTPNotifier").Logger()
	return &SMTPNotifier{
		addr:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		auth:   auth,
		sender: sender,
		log:    &compLog,
	}
}

func (n *SMTPNotifier) Send(ctx context.Context, recipient, subject, body string) error {
	if recipient == "" {
		return nil
	}
	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", n.sender, recipient, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/plain; charset=UTF-8\r\n\r\n" +
			body,
	)
	if err := smtp.SendMail(n.addr, n.auth, n.sender, []string{recipient}, msg); err != nil {
		n.log.Error().Err(err).Str("recipient", logging.Redact(recipient)).Msg("smtp send failed")
		return err
	}
	n.log.Info().Str("recipient", logging.Redact(recipient)).Str("subject", subject).Msg("mail sent")
	return nil
}
