// Package mail delivers the portal's notification emails.
package mail

import (
	"context"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/99minutos/auth-portal/internal/api/metrics"
	"github.com/99minutos/auth-portal/internal/core/ports"
)

const (
	driverSMTP = "smtp"
	driverLog  = "log"

	defaultSendTimeout = 15 * time.Second
)

// SMTPConfig captures the settings for the outgoing mail server.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// RequireTLS enforces STARTTLS; otherwise it is used when offered.
	RequireTLS bool
	Timeout    time.Duration
}

// SMTPNotifier sends plain-text messages through an SMTP relay.
type SMTPNotifier struct {
	client *gomail.Client
	from   string
}

var _ ports.Notifier = (*SMTPNotifier)(nil)

func NewSMTPNotifier(cfg SMTPConfig) (*SMTPNotifier, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	policy := gomail.TLSOpportunistic
	if cfg.RequireTLS {
		policy = gomail.TLSMandatory
	}

	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(policy),
		gomail.WithTimeout(timeout),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mail client: %w", err)
	}
	return &SMTPNotifier{client: client, from: cfg.From}, nil
}

// Send delivers a single message and waits for the relay to accept it.
func (n *SMTPNotifier) Send(ctx context.Context, recipient, subject, body string) error {
	msg, err := buildMessage(n.from, recipient, subject, body)
	if err != nil {
		return err
	}

	start := time.Now()
	err = n.client.DialAndSendWithContext(ctx, msg)
	metrics.MailDeliveryDuration.WithLabelValues(driverSMTP).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.MailDeliveriesTotal.WithLabelValues(driverSMTP, metrics.ResultFailure).Inc()
		return fmt.Errorf("smtp send: %w", err)
	}
	metrics.MailDeliveriesTotal.WithLabelValues(driverSMTP, metrics.ResultSuccess).Inc()
	return nil
}

func buildMessage(from, recipient, subject, body string) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("mail from %q: %w", from, err)
	}
	if err := msg.To(recipient); err != nil {
		return nil, fmt.Errorf("mail to %q: %w", recipient, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)
	return msg, nil
}
