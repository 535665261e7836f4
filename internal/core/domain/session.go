package domain

// SessionState is the authentication phase a session is in.
type SessionState string

const (
	StateAnonymous        SessionState = "anonymous"
	StatePasswordVerified SessionState = "password_verified"
	StateAuthenticated    SessionState = "authenticated"
)

// PendingTwoFactor identifies the user whose password was accepted and who
// still owes a 2FA code.
type PendingTwoFactor struct {
	UserID string `json:"user_id"`
}

// Principal is the identity bound to a fully authenticated session.
type Principal struct {
	UserID             string `json:"user_id"`
	Username           string `json:"username"`
	Role               string `json:"role"`
	TwoFactorValidated bool   `json:"two_factor_validated"`
}

// PasswordReset holds the reset token issued to this browser.
type PasswordReset struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// Session is the server-held state of one client. At most one of Pending and
// Principal is set; Reset runs as an independent sub-flow.
type Session struct {
	ID        string            `json:"-"`
	Pending   *PendingTwoFactor `json:"pending,omitempty"`
	Principal *Principal        `json:"principal,omitempty"`
	Reset     *PasswordReset    `json:"reset,omitempty"`
	Flashes   []string          `json:"flashes,omitempty"`

	rotate bool
	dirty  bool
}

// NewSession returns an anonymous session with the given identifier.
func NewSession(id string) *Session {
	return &Session{ID: id}
}

// State derives the authentication phase from the fields present.
func (s *Session) State() SessionState {
	switch {
	case s.Principal != nil:
		return StateAuthenticated
	case s.Pending != nil:
		return StatePasswordVerified
	default:
		return StateAnonymous
	}
}

// BeginTwoFactor moves the session to PasswordVerified for userID.
func (s *Session) BeginTwoFactor(userID string) {
	s.Principal = nil
	s.Pending = &PendingTwoFactor{UserID: userID}
	s.dirty = true
}

// Authenticate binds the session to p and drops the pending challenge.
// The session identifier is rotated on the next save.
func (s *Session) Authenticate(p Principal) {
	s.Pending = nil
	s.Principal = &p
	s.rotate = true
	s.dirty = true
}

// BeginReset records a password-reset token for userID.
func (s *Session) BeginReset(token, userID string) {
	s.Reset = &PasswordReset{Token: token, UserID: userID}
	s.dirty = true
}

// EndReset drops any password-reset state.
func (s *Session) EndReset() {
	if s.Reset != nil {
		s.Reset = nil
		s.dirty = true
	}
}

// Clear returns the session to Anonymous, discarding every key including
// pending flashes. The identifier is rotated on the next save.
func (s *Session) Clear() {
	s.Pending = nil
	s.Principal = nil
	s.Reset = nil
	s.Flashes = nil
	s.rotate = true
	s.dirty = true
}

// AddFlash queues a one-shot message for the next rendered page.
func (s *Session) AddFlash(msg string) {
	s.Flashes = append(s.Flashes, msg)
	s.dirty = true
}

// PopFlashes returns and clears queued flash messages.
func (s *Session) PopFlashes() []string {
	if len(s.Flashes) == 0 {
		return nil
	}
	out := s.Flashes
	s.Flashes = nil
	s.dirty = true
	return out
}

// IsEmpty reports whether the session carries no state worth persisting.
func (s *Session) IsEmpty() bool {
	return s.Pending == nil && s.Principal == nil && s.Reset == nil && len(s.Flashes) == 0
}

// NeedsRotation reports whether the identifier must change before saving.
func (s *Session) NeedsRotation() bool { return s.rotate }

// Rotated assigns a fresh identifier and resets the rotation mark.
func (s *Session) Rotated(id string) {
	s.ID = id
	s.rotate = false
}

// Dirty reports whether the session changed since it was loaded.
func (s *Session) Dirty() bool { return s.dirty }

// MarkClean resets the change tracker after a successful save.
func (s *Session) MarkClean() { s.dirty = false }
