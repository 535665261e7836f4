package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/auth-portal/internal/core/domain"
)

func TestAccountService_CreateUser(t *testing.T) {
	users := newStubUserRepo()
	svc := NewAccountService(users, &stubLogRepo{})
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	u, err := svc.CreateUser(context.Background(), " alice ", "alice@example.com", "secret1", "")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" || u.Username != "alice" || u.Role != domain.RoleUser {
		t.Fatalf("unexpected user %+v", u)
	}
	if !u.CreatedAt.Equal(fixed) || !u.UpdatedAt.Equal(fixed) {
		t.Fatalf("timestamps not set from clock: %v %v", u.CreatedAt, u.UpdatedAt)
	}
	stored := users.get(t, "alice")
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret1")) != nil {
		t.Fatalf("stored hash does not match password")
	}
}

func TestAccountService_CreateUser_Rejects(t *testing.T) {
	cases := []struct {
		name                      string
		username, email, password string
		role                      string
		want                      error
	}{
		{"missing username", "", "a@example.com", "secret1", "", domain.ErrInvalidUser},
		{"missing email", "bob", "", "secret1", "", domain.ErrInvalidUser},
		{"unknown role", "bob", "b@example.com", "secret1", "root", domain.ErrInvalidUser},
		{"short password", "bob", "b@example.com", "abc", "", domain.ErrPasswordTooShort},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewAccountService(newStubUserRepo(), &stubLogRepo{})
			_, err := svc.CreateUser(context.Background(), tc.username, tc.email, tc.password, tc.role)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestAccountService_CreateUser_Duplicate(t *testing.T) {
	svc := NewAccountService(newStubUserRepo(), &stubLogRepo{})
	ctx := context.Background()
	if _, err := svc.CreateUser(ctx, "alice", "alice@example.com", "secret1", domain.RoleAdmin); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.CreateUser(ctx, "alice", "other@example.com", "secret1", ""); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAccountService_RecentLogs(t *testing.T) {
	logs := &stubLogRepo{}
	for _, a := range []string{"one", "two", "three"} {
		_ = logs.Insert(context.Background(), &domain.LogEntry{Action: a})
	}
	svc := NewAccountService(newStubUserRepo(), logs)

	got, err := svc.RecentLogs(context.Background(), 2)
	if err != nil {
		t.Fatalf("RecentLogs: %v", err)
	}
	if len(got) != 2 || got[0].Action != "three" || got[1].Action != "two" {
		t.Fatalf("unexpected entries %+v", got)
	}

	all, _ := svc.RecentLogs(context.Background(), 0)
	if len(all) != 3 {
		t.Fatalf("default limit should return all 3 entries, got %d", len(all))
	}
}
