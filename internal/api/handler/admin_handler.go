package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-portal/internal/api/metrics"
	"github.com/99minutos/auth-portal/internal/core/domain"
	"github.com/99minutos/auth-portal/internal/core/ports"
)

const (
	// MsgMustBeLoggedIn is queued when a protected page is hit anonymously.
	MsgMustBeLoggedIn = "You must be logged in."
	msgAdminRequired  = "Access denied. Admin role required."
)

// PortalHandler serves the pages behind the login.
type PortalHandler struct {
	guard ports.AccessGuard
}

func NewPortalHandler(guard ports.AccessGuard) *PortalHandler {
	return &PortalHandler{guard: guard}
}

// Index is the welcome page. Routing puts it behind RequireAuthenticated.
func (h *PortalHandler) Index(c echo.Context) error {
	return render(c, http.StatusOK, "welcome", Page{Title: "Welcome"})
}

func (h *PortalHandler) AdminPanel(c echo.Context) error {
	panel, err := h.guard.ViewAdminPanel(c.Request().Context(), currentSession(c))
	switch {
	case err == nil:
		metrics.AdminPanelAccessTotal.WithLabelValues(metrics.ResultSuccess).Inc()
		return render(c, http.StatusOK, "admin_panel", Page{
			Title: "Admin panel",
			Users: panel.Users,
			Logs:  panel.Logs,
		})
	case errors.Is(err, domain.ErrNotAuthenticated):
		return redirectWithFlash(c, "/login", MsgMustBeLoggedIn)
	case errors.Is(err, domain.ErrAccessDenied):
		metrics.AdminPanelAccessTotal.WithLabelValues(metrics.ResultDenied).Inc()
		return redirectWithFlash(c, "/", msgAdminRequired)
	default:
		metrics.AdminPanelAccessTotal.WithLabelValues(metrics.ResultError).Inc()
		return err
	}
}
