package ports

import (
	"context"
	"time"

	"github.com/99minutos/auth-portal/internal/core/domain"
)

// SessionStore keeps server-side session state keyed by session ID.
type SessionStore interface {
	// Load returns domain.ErrSessionNotFound for unknown or expired IDs.
	Load(ctx context.Context, id string) (*domain.Session, error)
	Save(ctx context.Context, sess *domain.Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
