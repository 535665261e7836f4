package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-portal/internal/core/domain"
	"github.com/99minutos/auth-portal/internal/core/ports"
)

type stubGuard struct {
	authenticated bool
}

func (g stubGuard) IsAuthenticated(*domain.Session) bool { return g.authenticated }
func (g stubGuard) IsAdmin(*domain.Session) bool         { return false }
func (g stubGuard) ViewAdminPanel(context.Context, *domain.Session) (*ports.AdminPanel, error) {
	return nil, nil
}

func TestRequireAuthenticated_Allows(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	mw := RequireAuthenticated(stubGuard{authenticated: true}, "")
	handler := mw(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next handler not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRequireAuthenticated_RedirectsWithFlash(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/admin_panel", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	sess := domain.NewSession("s1")
	c.Set(sessionKey, sess)

	mw := RequireAuthenticated(stubGuard{}, "You must be logged in.")
	handler := mw(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusSeeOther || rec.Header().Get(echo.HeaderLocation) != LoginPath {
		t.Fatalf("expected redirect to login, got %d %q", rec.Code, rec.Header().Get(echo.HeaderLocation))
	}
	if len(sess.Flashes) != 1 || sess.Flashes[0] != "You must be logged in." {
		t.Fatalf("unexpected flashes %v", sess.Flashes)
	}
}

func TestRequireAuthenticated_SilentRedirect(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := RequireAuthenticated(stubGuard{}, "")(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if flashes := CurrentSession(c).Flashes; len(flashes) != 0 {
		t.Fatalf("expected no flash, got %v", flashes)
	}
}

func TestRateLimit_DeniesAfterBurst(t *testing.T) {
	e := echo.New()
	mw := RateLimit(1, 2)
	h := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		rec := httptest.NewRecorder()
		if err := h(e.NewContext(req, rec)); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes %v", codes)
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	e := echo.New()
	h := RateLimit(0, 0)(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		if err := h(e.NewContext(httptest.NewRequest(http.MethodPost, "/login", nil), rec)); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	}
}
