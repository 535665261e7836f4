package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-portal/internal/api/handler"
	"github.com/99minutos/auth-portal/internal/api/middleware"
	"github.com/99minutos/auth-portal/internal/core/ports"
)

// Deps carries everything the router needs. Registerer and Gatherer are
// optional; without them no /metrics route is mounted.
type Deps struct {
	Auth     ports.AuthService
	Guard    ports.AccessGuard
	Sessions middleware.SessionConfig
	Log      zerolog.Logger

	// Readiness lists the dependencies pinged by /health/ready.
	Readiness map[string]handler.Pinger

	RateLimitPerMinute float64
	RateLimitBurst     int

	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = handler.MustRenderer()
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	if d.Registerer != nil {
		e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
			Subsystem:  "http",
			Registerer: d.Registerer,
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/metrics" || c.Path() == "/health" || c.Path() == "/health/ready"
			},
		}))
	}
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XFrameOptions:      "DENY",
		ContentTypeNosniff: "nosniff",
		ReferrerPolicy:     "same-origin",
	}))

	// --- Health probes and metrics (no session) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Readiness)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)
	if d.Gatherer != nil {
		e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: d.Gatherer}))
	}

	// --- Pages ---
	d.Sessions.Log = d.Log
	pages := e.Group("", middleware.Session(d.Sessions))
	limited := middleware.RateLimit(d.RateLimitPerMinute, d.RateLimitBurst)

	authHandler := handler.NewAuthHandler(d.Auth, d.Log)
	portalHandler := handler.NewPortalHandler(d.Guard)

	pages.GET("/login", authHandler.LoginForm)
	pages.POST("/login", authHandler.Login, limited)
	pages.GET("/two_factor", authHandler.TwoFactorForm)
	pages.POST("/two_factor", authHandler.TwoFactor, limited)
	pages.GET("/logout", authHandler.Logout)
	pages.POST("/logout", authHandler.Logout)

	pages.GET("/forgot_password", authHandler.ForgotPasswordForm)
	pages.POST("/forgot_password", authHandler.ForgotPassword, limited)
	pages.GET("/reset_password/:token", authHandler.ResetPasswordForm)
	pages.POST("/reset_password/:token", authHandler.ResetPassword, limited)

	pages.GET("/", portalHandler.Index, middleware.RequireAuthenticated(d.Guard, ""))
	pages.GET("/admin_panel", portalHandler.AdminPanel)

	return e
}
