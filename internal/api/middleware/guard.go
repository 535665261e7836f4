package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-portal/internal/core/ports"
)

// LoginPath is where unauthenticated visitors are sent.
const LoginPath = "/login"

// RequireAuthenticated lets through only sessions that completed 2FA. Others
// are redirected to the login page, with flash queued when non-empty.
func RequireAuthenticated(guard ports.AccessGuard, flash string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess := CurrentSession(c)
			if !guard.IsAuthenticated(sess) {
				if flash != "" {
					sess.AddFlash(flash)
				}
				return c.Redirect(http.StatusSeeOther, LoginPath)
			}
			return next(c)
		}
	}
}
