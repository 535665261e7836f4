package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-portal/internal/core/ports"
	"github.com/99minutos/auth-portal/internal/infrastructure/db/mongo"
	redisdb "github.com/99minutos/auth-portal/internal/infrastructure/db/redis"
	"github.com/99minutos/auth-portal/internal/infrastructure/db/sqlite"
	"github.com/99minutos/auth-portal/internal/infrastructure/mail"
	"github.com/99minutos/auth-portal/internal/infrastructure/session"
	"github.com/99minutos/auth-portal/internal/pkg/config"
)

// openStore connects the credential store selected by STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config) (ports.CredentialStore, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		s, err := sqlite.Open(ctx, sqlite.Config{Path: cfg.Store.SQLitePath})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "mongo":
		s, err := mongo.Open(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Store.Driver)
	}
}

// openSessions returns the session backend and a function releasing it.
func openSessions(ctx context.Context, cfg *config.Config) (ports.SessionStore, func(), error) {
	switch cfg.Session.Backend {
	case "memory":
		return session.NewMemoryStore(), func() {}, nil
	case "redis", "":
		client, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		return redisdb.NewSessionStore(client), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown SESSION_BACKEND %q", cfg.Session.Backend)
	}
}

// newNotifier builds the mail driver. When MAIL_ASYNC is set the driver is
// wrapped in a Dispatcher, which the caller must Start.
func newNotifier(cfg *config.Config, log zerolog.Logger) (ports.Notifier, *mail.Dispatcher, error) {
	var n ports.Notifier
	switch cfg.Mail.Driver {
	case "log":
		n = mail.NewLogNotifier(cfg.Mail.From, log)
	case "smtp", "":
		smtp, err := mail.NewSMTPNotifier(mail.SMTPConfig{
			Host:       cfg.Mail.Host,
			Port:       cfg.Mail.Port,
			Username:   cfg.Mail.Username,
			Password:   cfg.Mail.Password,
			From:       cfg.Mail.From,
			RequireTLS: cfg.Mail.TLS,
		})
		if err != nil {
			return nil, nil, err
		}
		n = smtp
	default:
		return nil, nil, fmt.Errorf("unknown MAIL_DRIVER %q", cfg.Mail.Driver)
	}

	if !cfg.Mail.Async {
		return n, nil, nil
	}
	d := mail.NewDispatcher(cfg.Mail.Workers, n, log)
	return d, d, nil
}
