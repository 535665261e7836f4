package ports

import (
	"context"

	"github.com/99minutos/auth-portal/internal/core/domain"
)

// AuthService drives the login, 2FA, logout and password-reset flows. Every
// method mutates sess in place; the caller persists it.
type AuthService interface {
	Login(ctx context.Context, sess *domain.Session, username, password string) error
	PendingChallenge(ctx context.Context, sess *domain.Session) error
	VerifyTwoFactor(ctx context.Context, sess *domain.Session, code string) error
	Logout(ctx context.Context, sess *domain.Session) error
	RequestPasswordReset(ctx context.Context, sess *domain.Session, email string) error
	CheckResetToken(ctx context.Context, sess *domain.Session, token string) error
	ConsumePasswordReset(ctx context.Context, sess *domain.Session, token, newPassword string) error
}

// AdminPanel is the data shown on the admin view.
type AdminPanel struct {
	Users []*domain.User
	Logs  []*domain.LogEntry
}

// AccessGuard evaluates role-based access on protected operations.
type AccessGuard interface {
	IsAuthenticated(sess *domain.Session) bool
	IsAdmin(sess *domain.Session) bool
	ViewAdminPanel(ctx context.Context, sess *domain.Session) (*AdminPanel, error)
}

// AuditRecorder decides nothing; it persists what the services decide to log.
type AuditRecorder interface {
	Record(ctx context.Context, username, action string) error
}
