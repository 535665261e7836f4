package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-portal/internal/api/middleware"
	"github.com/99minutos/auth-portal/internal/core/domain"
)

// render pops the session's flashes into page and renders the named template.
func render(c echo.Context, status int, name string, page Page) error {
	sess := middleware.CurrentSession(c)
	page.Flashes = sess.PopFlashes()
	if p := sess.Principal; p != nil && p.TwoFactorValidated {
		page.Authenticated = true
		page.Username = p.Username
		page.Role = p.Role
	}
	return c.Render(status, name, page)
}

// redirectWithFlash queues msg and sends the client to path.
func redirectWithFlash(c echo.Context, path, msg string) error {
	if msg != "" {
		middleware.CurrentSession(c).AddFlash(msg)
	}
	return c.Redirect(http.StatusSeeOther, path)
}

func currentSession(c echo.Context) *domain.Session {
	return middleware.CurrentSession(c)
}

// ErrorPage renders the generic error template with status.
func ErrorPage(c echo.Context, status int, message string) error {
	return render(c, status, "error", Page{
		Title:   http.StatusText(status),
		Status:  status,
		Message: message,
	})
}
