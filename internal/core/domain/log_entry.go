package domain

import "time"

// Audit actions recorded by the portal.
const (
	ActionServerStarted       = "Server started"
	ActionLoginPasswordOK     = "Login attempt (password OK). 2FA code sent."
	ActionLoginFailed         = "Login attempt FAILED"
	ActionTwoFactorValidated  = "2FA validated. User logged in."
	ActionTwoFactorFailed     = "2FA FAILED"
	ActionLogout              = "Logout"
	ActionResetRequested      = "Password reset requested. Email sent."
	ActionResetDeliveryFailed = "Password reset requested. Email delivery FAILED"
	ActionResetCompleted      = "Password reset successfully."
	ActionAdminDenied         = "Attempted access to admin_panel - DENIED"
	ActionAdminAccessed       = "Accessed admin_panel"
)

// LogEntry is an append-only audit record. An empty Username means the
// action happened before an identity was resolved.
type LogEntry struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username,omitempty"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}
