package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/99minutos/auth-portal/internal/core/domain"
)

type logRow struct {
	ID        int64          `db:"id"`
	Username  sql.NullString `db:"username"`
	Action    string         `db:"action"`
	Timestamp string         `db:"timestamp"`
}

// Insert appends entry and sets its ID. An empty username is stored as NULL.
func (s *Store) Insert(ctx context.Context, entry *domain.LogEntry) error {
	username := sql.NullString{String: entry.Username, Valid: entry.Username != ""}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO logs (username, action, timestamp) VALUES (?, ?, ?)`,
		username, entry.Action, formatTime(entry.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("insert log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert log: %w", err)
	}
	entry.ID = id
	return nil
}

// ListRecent returns at most limit entries, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]*domain.LogEntry, error) {
	if limit <= 0 {
		return []*domain.LogEntry{}, nil
	}
	var rows []logRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, username, action, timestamp FROM logs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}

	out := make([]*domain.LogEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, &domain.LogEntry{
			ID:        r.ID,
			Username:  r.Username.String,
			Action:    r.Action,
			Timestamp: parseTime(r.Timestamp),
		})
	}
	return out, nil
}
