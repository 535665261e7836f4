package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidUser        = errors.New("username, email and a known role are required")

	// ErrSessionMissing covers both an expired and a never-started flow.
	ErrSessionMissing    = errors.New("session state missing or expired")
	ErrSessionNotFound   = errors.New("session not found")
	ErrChallengeMismatch = errors.New("invalid or expired code")

	ErrAccountNotFound  = errors.New("no account exists with that email")
	ErrResetLinkInvalid = errors.New("invalid or expired link")
	ErrPasswordTooShort = errors.New("password too short")

	ErrNotAuthenticated = errors.New("must be logged in")
	ErrAccessDenied     = errors.New("access denied")

	ErrNotifierFailure  = errors.New("notification could not be delivered")
	ErrAuditUnavailable = errors.New("audit log unavailable")
)
