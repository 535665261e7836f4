package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/auth-portal/internal/core/domain"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	nextID    int
	updateErr error
	findErr   error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	if u.TwoFactorExpiration != nil {
		exp := *u.TwoFactorExpiration
		clone.TwoFactorExpiration = &exp
	}
	return &clone
}

func (r *stubUserRepo) find(match func(*domain.User) bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Username == username })
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Email == email })
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.ID == id })
}

func (r *stubUserRepo) update(userID string, apply func(*domain.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	apply(u)
	return nil
}

func (r *stubUserRepo) SetTwoFactorChallenge(_ context.Context, userID, code string, expiresAt time.Time) error {
	return r.update(userID, func(u *domain.User) { u.IssueChallenge(code, expiresAt) })
}

func (r *stubUserRepo) UpdatePassword(_ context.Context, userID, passwordHash string, at time.Time) error {
	return r.update(userID, func(u *domain.User) {
		u.PasswordHash = passwordHash
		u.UpdatedAt = at
	})
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return domain.ErrUserExists
		}
	}
	r.nextID++
	user.ID = strconv.Itoa(r.nextID)
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *stubUserRepo) List(_ context.Context) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubUserRepo) ConsumeTwoFactorCode(_ context.Context, userID, code string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok || !u.ChallengeMatches(code, now) {
		return false, nil
	}
	u.ClearChallenge()
	return true, nil
}

// get returns the stored copy of the user with the given username.
func (r *stubUserRepo) get(t *testing.T, username string) *domain.User {
	t.Helper()
	u, err := r.FindByUsername(context.Background(), username)
	if err != nil {
		t.Fatalf("user %q not found: %v", username, err)
	}
	return u
}

type stubLogRepo struct {
	mu        sync.Mutex
	entries   []*domain.LogEntry
	insertErr error
}

func (r *stubLogRepo) Insert(_ context.Context, e *domain.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	e.ID = int64(len(r.entries) + 1)
	clone := *e
	r.entries = append(r.entries, &clone)
	return nil
}

func (r *stubLogRepo) ListRecent(_ context.Context, limit int) ([]*domain.LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.LogEntry, 0, limit)
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.entries[i])
	}
	return out, nil
}

// recorder captures audit calls without a repository. With failOn set only
// that action fails.
type recorder struct {
	entries []domain.LogEntry
	err     error
	failOn  string
}

func (r *recorder) Record(_ context.Context, username, action string) error {
	if r.err != nil && (r.failOn == "" || r.failOn == action) {
		return r.err
	}
	r.entries = append(r.entries, domain.LogEntry{Username: username, Action: action})
	return nil
}

func (r *recorder) actions() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Action
	}
	return out
}

type sentMail struct {
	to, subject, body string
}

type stubNotifier struct {
	sent []sentMail
	err  error
}

func (n *stubNotifier) Send(_ context.Context, to, subject, body string) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

var errBoom = errors.New("boom")

// ---------------------------------------------------------------------------
// Fixture: alice (user) and root (admin) with fast bcrypt hashes.
// ---------------------------------------------------------------------------

type fixture struct {
	users    *stubUserRepo
	audit    *recorder
	notifier *stubNotifier
	clock    *fakeClock
	svc      *AuthService
}

func seedUser(t *testing.T, repo *stubUserRepo, username, email, password, role string) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &domain.User{Username: username, Email: email, PasswordHash: string(hash), Role: role}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("seed %s: %v", username, err)
	}
	return u
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:    newStubUserRepo(),
		audit:    &recorder{},
		notifier: &stubNotifier{},
		clock:    &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	seedUser(t, f.users, "alice", "alice@example.com", "secret1", domain.RoleUser)
	seedUser(t, f.users, "root", "root@example.com", "toor", domain.RoleAdmin)
	f.svc = NewAuthService(f.users, f.audit, f.notifier, zerolog.Nop(), AuthOptions{
		BaseURL: "https://portal.example.com/",
		Now:     f.clock.Now,
	})
	return f
}

// login runs Login + VerifyTwoFactor with the emailed code.
func (f *fixture) login(t *testing.T, username, password string) *domain.Session {
	t.Helper()
	sess := domain.NewSession("s1")
	if err := f.svc.Login(context.Background(), sess, username, password); err != nil {
		t.Fatalf("login: %v", err)
	}
	code := f.users.get(t, username).TwoFactorCode
	if err := f.svc.VerifyTwoFactor(context.Background(), sess, code); err != nil {
		t.Fatalf("verify: %v", err)
	}
	return sess
}
