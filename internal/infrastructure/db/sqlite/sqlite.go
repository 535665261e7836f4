package sqlite

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/99minutos/auth-portal/internal/core/ports"
	"github.com/99minutos/auth-portal/internal/infrastructure/db/sqlite/migrations"
)

const (
	driverName     = "sqlite"
	defaultTimeout = 5 * time.Second

	// timeLayout is fixed width so stored timestamps compare correctly as text.
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

func init() {
	sqlx.BindDriver(driverName, sqlx.QUESTION)
}

// Config captures the settings for opening the SQLite database.
type Config struct {
	Path        string
	BusyTimeout time.Duration
}

// Store implements ports.CredentialStore on a single SQLite file.
type Store struct {
	db *sqlx.DB
}

// gooseMu serialises migrations because goose keeps its settings in globals.
var gooseMu sync.Mutex

// Open opens (creating if needed) the database at cfg.Path and applies the
// embedded migrations.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = defaultTimeout
	}

	db, err := sqlx.Open(driverName, dsn(cfg.Path, busy))
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func dsn(path string, busy time.Duration) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	return "file:" + path + "?" + q.Encode()
}

func runMigrations(ctx context.Context, db *sqlx.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db.DB, "."); err != nil {
		return fmt.Errorf("sqlite migrate: %w", err)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close(_ context.Context) error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

var _ ports.CredentialStore = (*Store)(nil)
