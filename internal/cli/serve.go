package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/99minutos/auth-portal/internal/api"
	"github.com/99minutos/auth-portal/internal/api/handler"
	"github.com/99minutos/auth-portal/internal/api/middleware"
	"github.com/99minutos/auth-portal/internal/core/domain"
	"github.com/99minutos/auth-portal/internal/core/service"
	"github.com/99minutos/auth-portal/internal/infrastructure/auditlog"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web portal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg, log := a.cfg, a.log
	if !cfg.IsDevelopment() && cfg.UsesDevSecret() {
		log.Warn().Msg("SESSION_SECRET is the development default; set a real secret in production")
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close(context.Background()) }()

	sessions, closeSessions, err := openSessions(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSessions()

	sink, err := auditlog.Open(auditlog.Config{
		Path:       cfg.Audit.File,
		MaxSizeMB:  cfg.Audit.MaxSizeMB,
		MaxBackups: cfg.Audit.MaxBackups,
		MaxAgeDays: cfg.Audit.MaxAgeDays,
	})
	if err != nil {
		return err
	}
	defer func() { _ = sink.Close() }()

	notifier, dispatcher, err := newNotifier(cfg, log)
	if err != nil {
		return err
	}
	if dispatcher != nil {
		// Workers stop after the server has drained, on every return path.
		workerCtx, stopWorkers := context.WithCancel(context.WithoutCancel(ctx))
		dispatcher.Start(workerCtx)
		defer func() {
			stopWorkers()
			dispatcher.Wait()
		}()
	}

	audit := service.NewAuditService(store, sink, log)
	auth := service.NewAuthService(store, audit, notifier, log, service.AuthOptions{BaseURL: cfg.BaseURL})
	guard := service.NewAccessGuard(store, store, audit)

	if err := audit.Record(ctx, "", domain.ActionServerStarted); err != nil {
		return err
	}

	e := api.NewRouter(api.Deps{
		Auth:  auth,
		Guard: guard,
		Sessions: middleware.SessionConfig{
			Store:  sessions,
			Secret: []byte(cfg.Session.Secret),
			TTL:    cfg.Session.TTL,
			Secure: !cfg.IsDevelopment(),
		},
		Log: log,
		Readiness: map[string]handler.Pinger{
			"store":    store,
			"sessions": sessions,
		},
		RateLimitPerMinute: cfg.RateLimit.PerMinute,
		RateLimitBurst:     cfg.RateLimit.Burst,
		Registerer:         prometheus.DefaultRegisterer,
		Gatherer:           prometheus.DefaultGatherer,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("store", cfg.Store.Driver).Str("sessions", cfg.Session.Backend).Msg("http server starting")
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
