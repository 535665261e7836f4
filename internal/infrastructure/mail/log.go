package mail

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-portal/internal/api/metrics"
	"github.com/99minutos/auth-portal/internal/core/ports"
)

// LogNotifier writes messages to the application log instead of sending
// them. Meant for local development.
type LogNotifier struct {
	from string
	log  zerolog.Logger
}

var _ ports.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(from string, log zerolog.Logger) *LogNotifier {
	return &LogNotifier{from: from, log: log}
}

func (n *LogNotifier) Send(_ context.Context, recipient, subject, body string) error {
	// Validate addresses the same way the SMTP path would.
	if _, err := buildMessage(n.from, recipient, subject, body); err != nil {
		metrics.MailDeliveriesTotal.WithLabelValues(driverLog, metrics.ResultFailure).Inc()
		return err
	}
	n.log.Info().
		Str("from", n.from).
		Str("to", recipient).
		Str("subject", subject).
		Str("body", body).
		Msg("email")
	metrics.MailDeliveriesTotal.WithLabelValues(driverLog, metrics.ResultSuccess).Inc()
	return nil
}
