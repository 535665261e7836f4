package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/auth-portal/internal/core/domain"
	"github.com/99minutos/auth-portal/internal/core/ports"
)

const (
	codeLength        = 6
	defaultCodeTTL    = 5 * time.Minute
	resetTokenLength  = 32
	minPasswordLength = 4
)

// AuthOptions tunes the AuthService. Zero values fall back to defaults.
type AuthOptions struct {
	// BaseURL prefixes the reset link sent by email.
	BaseURL string
	CodeTTL time.Duration
	Now     func() time.Time
}

// AuthService implements the login, 2FA and password-reset flows. A session
// transition is applied only once its audit entry is stored.
type AuthService struct {
	users    ports.UserRepository
	audit    ports.AuditRecorder
	notifier ports.Notifier
	log      zerolog.Logger

	baseURL string
	codeTTL time.Duration
	now     func() time.Time
}

func NewAuthService(
	users ports.UserRepository,
	audit ports.AuditRecorder,
	notifier ports.Notifier,
	log zerolog.Logger,
	opts AuthOptions,
) *AuthService {
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = defaultCodeTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "http://localhost:8080"
	}
	return &AuthService{
		users:    users,
		audit:    audit,
		notifier: notifier,
		log:      log,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		codeTTL:  opts.CodeTTL,
		now:      opts.Now,
	}
}

// Login checks the password and, on success, opens a 2FA challenge and moves
// sess to PasswordVerified. Unknown users and wrong passwords both yield
// domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, sess *domain.Session, username, password string) error {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("login: %w", err)
	}

	hash := ""
	if user != nil {
		hash = user.PasswordHash
	}
	if !passwordMatches(hash, password) || user == nil {
		who := ""
		if user != nil {
			who = user.Username
		}
		if err := s.audit.Record(ctx, who, domain.ActionLoginFailed); err != nil {
			return err
		}
		return domain.ErrInvalidCredentials
	}

	code, err := generateCode(codeLength)
	if err != nil {
		return fmt.Errorf("login: generate code: %w", err)
	}
	if err := s.users.SetTwoFactorChallenge(ctx, user.ID, code, s.now().Add(s.codeTTL)); err != nil {
		return fmt.Errorf("login: persist challenge: %w", err)
	}

	// Delivery is best effort: the challenge stands even if the mail is lost.
	if user.Email != "" {
		if err := s.notifier.Send(ctx, user.Email, codeSubject, codeBody(user.Username, code, s.codeTTL)); err != nil {
			s.log.Warn().Err(err).Str("username", user.Username).Msg("2FA code delivery failed")
		}
	}

	if err := s.audit.Record(ctx, user.Username, domain.ActionLoginPasswordOK); err != nil {
		return err
	}
	sess.BeginTwoFactor(user.ID)
	return nil
}

// PendingChallenge reports domain.ErrSessionMissing unless sess awaits a
// 2FA code for a user that still exists.
func (s *AuthService) PendingChallenge(ctx context.Context, sess *domain.Session) error {
	_, err := s.pendingUser(ctx, sess)
	return err
}

// VerifyTwoFactor completes the login when code matches the open challenge.
// Wrong, expired and concurrently replaced codes all yield
// domain.ErrChallengeMismatch and leave sess in PasswordVerified.
func (s *AuthService) VerifyTwoFactor(ctx context.Context, sess *domain.Session, code string) error {
	user, err := s.pendingUser(ctx, sess)
	if err != nil {
		return err
	}

	now := s.now()
	ok := user.ChallengeMatches(code, now)
	if ok {
		consumed, err := s.users.ConsumeTwoFactorCode(ctx, user.ID, code, now)
		if err != nil {
			return fmt.Errorf("verify 2fa: %w", err)
		}
		ok = consumed
	}

	if !ok {
		if err := s.audit.Record(ctx, user.Username, domain.ActionTwoFactorFailed); err != nil {
			return err
		}
		return domain.ErrChallengeMismatch
	}

	if err := s.audit.Record(ctx, user.Username, domain.ActionTwoFactorValidated); err != nil {
		return err
	}
	sess.Authenticate(domain.Principal{
		UserID:             user.ID,
		Username:           user.Username,
		Role:               domain.NormalizeRole(user.Role),
		TwoFactorValidated: true,
	})
	return nil
}

// Logout clears sess. The logout is audited only for authenticated sessions.
func (s *AuthService) Logout(ctx context.Context, sess *domain.Session) error {
	if isAuthenticated(sess) {
		if err := s.audit.Record(ctx, sess.Principal.Username, domain.ActionLogout); err != nil {
			return err
		}
	}
	sess.Clear()
	return nil
}

// RequestPasswordReset emails a reset link to the account owning email and
// binds the reset token to sess. Unknown addresses yield
// domain.ErrAccountNotFound and are not audited.
func (s *AuthService) RequestPasswordReset(ctx context.Context, sess *domain.Session, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("request reset: %w", err)
	}

	token, err := generateToken(resetTokenLength)
	if err != nil {
		return fmt.Errorf("request reset: generate token: %w", err)
	}

	if err := s.notifier.Send(ctx, user.Email, resetSubject, resetBody(user.Username, s.resetLink(token))); err != nil {
		s.log.Error().Err(err).Str("username", user.Username).Msg("reset link delivery failed")
		if aerr := s.audit.Record(ctx, user.Username, domain.ActionResetDeliveryFailed); aerr != nil {
			return aerr
		}
		return fmt.Errorf("%w: %w", domain.ErrNotifierFailure, err)
	}

	if err := s.audit.Record(ctx, user.Username, domain.ActionResetRequested); err != nil {
		return err
	}
	sess.BeginReset(token, user.ID)
	return nil
}

// CheckResetToken validates token against the reset state held in sess.
func (s *AuthService) CheckResetToken(ctx context.Context, sess *domain.Session, token string) error {
	_, err := s.resetTarget(ctx, sess, token)
	return err
}

// ConsumePasswordReset replaces the password of the user the reset was
// issued for. A too-short password keeps the reset open.
func (s *AuthService) ConsumePasswordReset(ctx context.Context, sess *domain.Session, token, newPassword string) error {
	user, err := s.resetTarget(ctx, sess, token)
	if err != nil {
		return err
	}
	if len(newPassword) < minPasswordLength {
		return domain.ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("reset password: hash: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash), s.now().UTC()); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	if err := s.audit.Record(ctx, user.Username, domain.ActionResetCompleted); err != nil {
		return err
	}
	sess.EndReset()
	return nil
}

func (s *AuthService) pendingUser(ctx context.Context, sess *domain.Session) (*domain.User, error) {
	if sess.Pending == nil || sess.Pending.UserID == "" {
		return nil, domain.ErrSessionMissing
	}
	user, err := s.users.FindByID(ctx, sess.Pending.UserID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrSessionMissing
	}
	if err != nil {
		return nil, fmt.Errorf("load pending user: %w", err)
	}
	return user, nil
}

// resetTarget returns the user a valid reset token was issued for. Any
// mismatch ends the reset sub-flow.
func (s *AuthService) resetTarget(ctx context.Context, sess *domain.Session, token string) (*domain.User, error) {
	r := sess.Reset
	if r == nil || r.Token == "" || r.UserID == "" ||
		subtle.ConstantTimeCompare([]byte(r.Token), []byte(token)) != 1 {
		sess.EndReset()
		return nil, domain.ErrResetLinkInvalid
	}

	user, err := s.users.FindByID(ctx, r.UserID)
	if errors.Is(err, domain.ErrUserNotFound) {
		sess.EndReset()
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load reset user: %w", err)
	}
	return user, nil
}

func (s *AuthService) resetLink(token string) string {
	return s.baseURL + "/reset_password/" + url.PathEscape(token)
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// passwordMatches compares against a throwaway hash when there is no stored
// one, so unknown and known usernames take comparable time.
func passwordMatches(stored, password string) bool {
	hash := []byte(stored)
	if len(hash) == 0 {
		dummyHashOnce.Do(func() {
			dummyHash, _ = bcrypt.GenerateFromPassword([]byte("unused"), bcrypt.DefaultCost)
		})
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}

func isAuthenticated(sess *domain.Session) bool {
	p := sess.Principal
	return p != nil && p.UserID != "" && p.TwoFactorValidated
}
