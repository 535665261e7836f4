package domain

import (
	"crypto/subtle"
	"time"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User models an account that can sign in to the portal.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// TwoFactorCode and TwoFactorExpiration are set together while a 2FA
	// challenge is open and cleared together once it is consumed.
	TwoFactorCode       string     `json:"-"`
	TwoFactorExpiration *time.Time `json:"-"`
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IssueChallenge opens a new 2FA challenge, replacing any previous one.
func (u *User) IssueChallenge(code string, expiresAt time.Time) {
	exp := expiresAt.UTC()
	u.TwoFactorCode = code
	u.TwoFactorExpiration = &exp
}

// ClearChallenge closes the open 2FA challenge, if any.
func (u *User) ClearChallenge() {
	u.TwoFactorCode = ""
	u.TwoFactorExpiration = nil
}

// HasChallenge reports whether a 2FA challenge is currently stored.
func (u *User) HasChallenge() bool {
	return u.TwoFactorCode != "" && u.TwoFactorExpiration != nil
}

// ChallengeMatches reports whether code answers the open challenge at now.
// Both a wrong code and an expired challenge yield false.
func (u *User) ChallengeMatches(code string, now time.Time) bool {
	if !u.HasChallenge() || code == "" {
		return false
	}
	codeOK := subtle.ConstantTimeCompare([]byte(u.TwoFactorCode), []byte(code)) == 1
	return codeOK && now.Before(*u.TwoFactorExpiration)
}

// NormalizeRole maps an empty role to the default user role.
func NormalizeRole(role string) string {
	if role == "" {
		return RoleUser
	}
	return role
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleUser
}
