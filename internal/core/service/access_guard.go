package service

import (
	"context"
	"fmt"

	"github.com/99minutos/auth-portal/internal/core/domain"
	"github.com/99minutos/auth-portal/internal/core/ports"
)

const recentLogLimit = 50

// AccessGuard answers authorization questions about a session and serves
// the admin view.
type AccessGuard struct {
	users ports.UserRepository
	logs  ports.AuditLogRepository
	audit ports.AuditRecorder
}

func NewAccessGuard(users ports.UserRepository, logs ports.AuditLogRepository, audit ports.AuditRecorder) *AccessGuard {
	return &AccessGuard{users: users, logs: logs, audit: audit}
}

// IsAuthenticated requires both a bound user and a validated 2FA challenge.
func (g *AccessGuard) IsAuthenticated(sess *domain.Session) bool {
	return isAuthenticated(sess)
}

// IsAdmin never trusts the role of a session that is not authenticated.
func (g *AccessGuard) IsAdmin(sess *domain.Session) bool {
	return isAuthenticated(sess) && sess.Principal.Role == domain.RoleAdmin
}

// ViewAdminPanel returns every user and the most recent audit entries.
// Authenticated non-admins are audited and get domain.ErrAccessDenied.
func (g *AccessGuard) ViewAdminPanel(ctx context.Context, sess *domain.Session) (*ports.AdminPanel, error) {
	if !g.IsAuthenticated(sess) {
		return nil, domain.ErrNotAuthenticated
	}
	username := sess.Principal.Username

	if !g.IsAdmin(sess) {
		if err := g.audit.Record(ctx, username, domain.ActionAdminDenied); err != nil {
			return nil, err
		}
		return nil, domain.ErrAccessDenied
	}

	if err := g.audit.Record(ctx, username, domain.ActionAdminAccessed); err != nil {
		return nil, err
	}

	users, err := g.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("admin panel: list users: %w", err)
	}
	logs, err := g.logs.ListRecent(ctx, recentLogLimit)
	if err != nil {
		return nil, fmt.Errorf("admin panel: list logs: %w", err)
	}
	return &ports.AdminPanel{Users: users, Logs: logs}, nil
}
