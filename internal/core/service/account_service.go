package service

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/auth-portal/internal/core/domain"
	"github.com/99minutos/auth-portal/internal/core/ports"
)

// AccountService provisions accounts and exposes read-only views of the
// store for operators. There is no self-service registration.
type AccountService struct {
	users ports.UserRepository
	logs  ports.AuditLogRepository
	now   func() time.Time
}

func NewAccountService(users ports.UserRepository, logs ports.AuditLogRepository) *AccountService {
	return &AccountService{users: users, logs: logs, now: time.Now}
}

// CreateUser hashes password and stores a new account.
func (s *AccountService) CreateUser(ctx context.Context, username, email, password, role string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	role = domain.NormalizeRole(role)
	if username == "" || email == "" || !domain.ValidRole(role) {
		return nil, domain.ErrInvalidUser
	}
	if len(password) < minPasswordLength {
		return nil, domain.ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AccountService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.users.List(ctx)
}

// RecentLogs returns up to limit audit entries, newest first.
func (s *AccountService) RecentLogs(ctx context.Context, limit int) ([]*domain.LogEntry, error) {
	if limit <= 0 {
		limit = recentLogLimit
	}
	return s.logs.ListRecent(ctx, limit)
}
