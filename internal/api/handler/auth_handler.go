package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-portal/internal/api/metrics"
	"github.com/99minutos/auth-portal/internal/core/domain"
	"github.com/99minutos/auth-portal/internal/core/ports"
)

// Flash messages shown to the user.
const (
	msgInvalidCredentials = "Invalid credentials."
	msgInvalidCode        = "Invalid or expired code."
	msgLoggedOut          = "You have been logged out."
	msgResetSent          = "An email has been sent to reset your password."
	msgNoAccount          = "No account exists with that email."
	msgResetMailFailed    = "The reset email could not be sent. Please try again later."
	msgInvalidLink        = "Invalid or expired link."
	msgUserNotFound       = "User not found."
	msgPasswordTooShort   = "Password too short."
	msgPasswordReset      = "Password reset successfully. You can now log in."
)

type AuthHandler struct {
	authService ports.AuthService
	log         zerolog.Logger
}

func NewAuthHandler(authService ports.AuthService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, log: log}
}

type loginRequest struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

type twoFactorRequest struct {
	Code string `form:"code"`
}

type forgotPasswordRequest struct {
	Email string `form:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	NewPassword string `form:"new_password" validate:"max=72"`
}

func (h *AuthHandler) LoginForm(c echo.Context) error {
	return render(c, http.StatusOK, "login", Page{Title: "Log in"})
}

// Login checks the password and sends the user on to the 2FA step.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}

	err := h.authService.Login(c.Request().Context(), currentSession(c), req.Username, req.Password)
	switch {
	case err == nil:
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
		return c.Redirect(http.StatusSeeOther, "/two_factor")
	case errors.Is(err, domain.ErrInvalidCredentials):
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		currentSession(c).AddFlash(msgInvalidCredentials)
		return render(c, http.StatusUnauthorized, "login", Page{Title: "Log in"})
	default:
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.ResultError).Inc()
		return err
	}
}

func (h *AuthHandler) TwoFactorForm(c echo.Context) error {
	err := h.authService.PendingChallenge(c.Request().Context(), currentSession(c))
	if errors.Is(err, domain.ErrSessionMissing) {
		return c.Redirect(http.StatusSeeOther, "/login")
	}
	if err != nil {
		return err
	}
	return render(c, http.StatusOK, "two_factor", Page{Title: "Verification code"})
}

// TwoFactor completes the login with the emailed code.
func (h *AuthHandler) TwoFactor(c echo.Context) error {
	var req twoFactorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}

	err := h.authService.VerifyTwoFactor(c.Request().Context(), currentSession(c), req.Code)
	switch {
	case err == nil:
		metrics.TwoFactorVerificationsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
		return c.Redirect(http.StatusSeeOther, "/")
	case errors.Is(err, domain.ErrSessionMissing):
		return c.Redirect(http.StatusSeeOther, "/login")
	case errors.Is(err, domain.ErrChallengeMismatch):
		metrics.TwoFactorVerificationsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		currentSession(c).AddFlash(msgInvalidCode)
		return render(c, http.StatusUnauthorized, "two_factor", Page{Title: "Verification code"})
	default:
		metrics.TwoFactorVerificationsTotal.WithLabelValues(metrics.ResultError).Inc()
		return err
	}
}

func (h *AuthHandler) Logout(c echo.Context) error {
	sess := currentSession(c)
	if err := h.authService.Logout(c.Request().Context(), sess); err != nil {
		return err
	}
	return redirectWithFlash(c, "/login", msgLoggedOut)
}

func (h *AuthHandler) ForgotPasswordForm(c echo.Context) error {
	return render(c, http.StatusOK, "forgot_password", Page{Title: "Forgot password"})
}

// ForgotPassword emails a reset link. Unknown addresses are reported as such.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	page := Page{Title: "Forgot password"}
	sess := currentSession(c)

	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	if err := c.Validate(&req); err != nil {
		sess.AddFlash(validationFlash(err))
		return render(c, http.StatusUnprocessableEntity, "forgot_password", page)
	}

	err := h.authService.RequestPasswordReset(c.Request().Context(), sess, req.Email)
	switch {
	case err == nil:
		metrics.PasswordResetsTotal.WithLabelValues("request", metrics.ResultSuccess).Inc()
		sess.AddFlash(msgResetSent)
		return render(c, http.StatusOK, "forgot_password", page)
	case errors.Is(err, domain.ErrAccountNotFound):
		metrics.PasswordResetsTotal.WithLabelValues("request", metrics.ResultFailure).Inc()
		sess.AddFlash(msgNoAccount)
		return render(c, http.StatusOK, "forgot_password", page)
	case errors.Is(err, domain.ErrNotifierFailure):
		metrics.PasswordResetsTotal.WithLabelValues("request", metrics.ResultError).Inc()
		h.log.Warn().Err(err).
			Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
			Msg("password reset mail not delivered")
		sess.AddFlash(msgResetMailFailed)
		return render(c, http.StatusServiceUnavailable, "forgot_password", page)
	default:
		metrics.PasswordResetsTotal.WithLabelValues("request", metrics.ResultError).Inc()
		return err
	}
}

func (h *AuthHandler) ResetPasswordForm(c echo.Context) error {
	token := c.Param("token")
	err := h.authService.CheckResetToken(c.Request().Context(), currentSession(c), token)
	if err != nil {
		return h.resetLinkError(c, err)
	}
	return render(c, http.StatusOK, "reset_password", Page{Title: "Reset password", Token: token})
}

// ResetPassword sets the new password for the user the link was issued to.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	token := c.Param("token")
	page := Page{Title: "Reset password", Token: token}
	ctx := c.Request().Context()
	sess := currentSession(c)

	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	if verr := c.Validate(&req); verr != nil {
		if err := h.authService.CheckResetToken(ctx, sess, token); err != nil {
			return h.resetLinkError(c, err)
		}
		sess.AddFlash(validationFlash(verr))
		return render(c, http.StatusUnprocessableEntity, "reset_password", page)
	}

	err := h.authService.ConsumePasswordReset(ctx, sess, token, req.NewPassword)
	switch {
	case err == nil:
		metrics.PasswordResetsTotal.WithLabelValues("complete", metrics.ResultSuccess).Inc()
		return redirectWithFlash(c, "/login", msgPasswordReset)
	case errors.Is(err, domain.ErrPasswordTooShort):
		metrics.PasswordResetsTotal.WithLabelValues("complete", metrics.ResultFailure).Inc()
		sess.AddFlash(msgPasswordTooShort)
		return render(c, http.StatusUnprocessableEntity, "reset_password", page)
	default:
		return h.resetLinkError(c, err)
	}
}

func (h *AuthHandler) resetLinkError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrResetLinkInvalid):
		metrics.PasswordResetsTotal.WithLabelValues("complete", metrics.ResultFailure).Inc()
		return redirectWithFlash(c, "/login", msgInvalidLink)
	case errors.Is(err, domain.ErrUserNotFound):
		metrics.PasswordResetsTotal.WithLabelValues("complete", metrics.ResultFailure).Inc()
		return redirectWithFlash(c, "/login", msgUserNotFound)
	default:
		metrics.PasswordResetsTotal.WithLabelValues("complete", metrics.ResultError).Inc()
		return err
	}
}
