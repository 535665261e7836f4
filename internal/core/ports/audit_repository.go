package ports

import (
	"context"

	"github.com/99minutos/auth-portal/internal/core/domain"
)

// AuditLogRepository is the append-only store for audit entries.
type AuditLogRepository interface {
	// Insert persists entry and assigns its ID.
	Insert(ctx context.Context, entry *domain.LogEntry) error
	// ListRecent returns at most limit entries, newest first.
	ListRecent(ctx context.Context, limit int) ([]*domain.LogEntry, error)
}

// CredentialStore groups everything the core needs from the database.
type CredentialStore interface {
	UserRepository
	AuditLogRepository
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
