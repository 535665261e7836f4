package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-portal/internal/core/domain"
	"github.com/99minutos/auth-portal/internal/core/ports"
)

// AuditService persists audit entries and mirrors them to a text sink.
//
// A failed insert into the repository fails the calling operation; a failed
// write to the text sink is only logged.
type AuditService struct {
	repo ports.AuditLogRepository
	sink ports.AuditSink
	log  zerolog.Logger
	now  func() time.Time
}

// NewAuditService returns an AuditService. sink may be nil.
func NewAuditService(repo ports.AuditLogRepository, sink ports.AuditSink, log zerolog.Logger) *AuditService {
	return &AuditService{repo: repo, sink: sink, log: log, now: time.Now}
}

// WithClock replaces the time source used to stamp entries.
func (a *AuditService) WithClock(now func() time.Time) *AuditService {
	a.now = now
	return a
}

// Record appends an audit entry. username may be empty.
func (a *AuditService) Record(ctx context.Context, username, action string) error {
	entry := &domain.LogEntry{
		Username:  username,
		Action:    action,
		Timestamp: a.now().UTC(),
	}
	if err := a.repo.Insert(ctx, entry); err != nil {
		a.log.Error().Err(err).Str("username", username).Str("action", action).Msg("failed to persist audit entry")
		return fmt.Errorf("%w: %w", domain.ErrAuditUnavailable, err)
	}

	if a.sink != nil {
		if err := a.sink.Write(username, action); err != nil {
			a.log.Warn().Err(err).Int64("entry_id", entry.ID).Msg("failed to mirror audit entry")
		}
	}
	return nil
}
