package ports

import "context"

// Notifier delivers an email to a single recipient.
type Notifier interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// AuditSink mirrors audit lines to an append-only text log.
type AuditSink interface {
	Write(username, action string) error
}
