package notify

import (
	"context"

	"github.com/rs/zerolog"

	"mpesa-subscription-shop/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*LogNotifier)(nil)

// LogNotifier writes deliveries to the log instead of sending mail. Used in
// dev mode when no SMTP host is configured.
type LogNotifier struct {
	log *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	compLog := logger.With().Str("component", "LogNotifier").Logger()
	return &LogNotifier{log: &compLog}
}

func (n *LogNotifier) Send(ctx context.Context, recipient, subject, body string) error {
	n.log.Info().Str("recipient", recipient).Str("subject", subject).Msg("notification (not sent, dev mode)")
	return nil
}
