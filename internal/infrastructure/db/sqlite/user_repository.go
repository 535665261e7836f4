package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/99minutos/auth-portal/internal/core/domain"
)

type userRow struct {
	ID                  int64          `db:"id"`
	Username            string         `db:"username"`
	Email               string         `db:"email"`
	PasswordHash        string         `db:"password_hash"`
	Role                string         `db:"role"`
	TwoFactorCode       sql.NullString `db:"two_factor_code"`
	TwoFactorExpiration sql.NullString `db:"two_factor_expiration"`
	CreatedAt           string         `db:"created_at"`
	UpdatedAt           string         `db:"updated_at"`
}

const userColumns = `id, username, email, password_hash, role, two_factor_code,
	two_factor_expiration, created_at, updated_at`

func (r userRow) toDomain() *domain.User {
	u := &domain.User{
		ID:           strconv.FormatInt(r.ID, 10),
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         domain.NormalizeRole(r.Role),
		CreatedAt:    parseTime(r.CreatedAt),
		UpdatedAt:    parseTime(r.UpdatedAt),
	}
	if r.TwoFactorCode.Valid && r.TwoFactorExpiration.Valid {
		u.IssueChallenge(r.TwoFactorCode.String, parseTime(r.TwoFactorExpiration.String))
	}
	return u
}

func challengeColumns(u *domain.User) (sql.NullString, sql.NullString) {
	if !u.HasChallenge() {
		return sql.NullString{}, sql.NullString{}
	}
	return sql.NullString{String: u.TwoFactorCode, Valid: true},
		sql.NullString{String: formatTime(*u.TwoFactorExpiration), Valid: true}
}

func (s *Store) findOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE `+where+` LIMIT 1`, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.findOne(ctx, "username = ?", username)
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findOne(ctx, "email = ?", email)
}

func (s *Store) FindByID(ctx context.Context, id string) (*domain.User, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return s.findOne(ctx, "id = ?", n)
}

// Create inserts user and sets its ID. Duplicate usernames or emails yield
// domain.ErrUserExists.
func (s *Store) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}
	user.Role = domain.NormalizeRole(user.Role)
	code, exp := challengeColumns(user)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, email, password_hash, role, two_factor_code,
			two_factor_expiration, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Username, user.Email, user.PasswordHash, user.Role, code, exp,
		formatTime(user.CreatedAt), formatTime(user.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	user.ID = strconv.FormatInt(id, 10)
	return nil
}

// SetTwoFactorChallenge touches only the challenge columns, so a password
// changed while the caller was checking the old one survives.
func (s *Store) SetTwoFactorChallenge(ctx context.Context, userID, code string, expiresAt time.Time) error {
	return s.updateUser(ctx, userID, `
		UPDATE users
		SET two_factor_code = ?, two_factor_expiration = ?, updated_at = ?
		WHERE id = ?`,
		code, formatTime(expiresAt), formatTime(time.Now().UTC()),
	)
}

func (s *Store) UpdatePassword(ctx context.Context, userID, passwordHash string, at time.Time) error {
	return s.updateUser(ctx, userID, `
		UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, formatTime(at),
	)
}

// updateUser runs query with args followed by the numeric user ID and maps
// an unmatched row to domain.ErrUserNotFound.
func (s *Store) updateUser(ctx context.Context, userID, query string, args ...any) error {
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return domain.ErrUserNotFound
	}
	res, err := s.db.ExecContext(ctx, query, append(args, id)...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]*domain.User, error) {
	var rows []userRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+userColumns+` FROM users ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]*domain.User, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// ConsumeTwoFactorCode clears the challenge in a single conditional UPDATE so
// a code replaced by a concurrent login is never accepted.
func (s *Store) ConsumeTwoFactorCode(ctx context.Context, userID, code string, now time.Time) (bool, error) {
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil || code == "" {
		return false, nil
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET two_factor_code = NULL, two_factor_expiration = NULL, updated_at = ?
		WHERE id = ? AND two_factor_code = ? AND two_factor_expiration > ?`,
		formatTime(now), id, code, formatTime(now),
	)
	if err != nil {
		return false, fmt.Errorf("consume 2fa code: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume 2fa code: %w", err)
	}
	return n == 1, nil
}
