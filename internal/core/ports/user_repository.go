package ports

import (
	"context"
	"time"

	"github.com/99minutos/auth-portal/internal/core/domain"
)

// UserRepository defines persistence operations for user accounts.
// Lookups return domain.ErrUserNotFound when no user matches.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// SetTwoFactorChallenge replaces only the user's 2FA code and expiry.
	SetTwoFactorChallenge(ctx context.Context, userID, code string, expiresAt time.Time) error
	// UpdatePassword replaces only the user's password hash.
	UpdatePassword(ctx context.Context, userID, passwordHash string, at time.Time) error
	// Create inserts a new user and fills in its ID.
	Create(ctx context.Context, user *domain.User) error
	List(ctx context.Context) ([]*domain.User, error)
	// ConsumeTwoFactorCode clears the user's challenge only if code is still
	// the stored one and has not expired at now. It reports whether it did.
	ConsumeTwoFactorCode(ctx context.Context, userID, code string, now time.Time) (bool, error)
}
