// Package auditlog mirrors audit entries into a size-rotated text file.
package auditlog

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/99minutos/auth-portal/internal/api/metrics"
	"github.com/99minutos/auth-portal/internal/core/ports"
)

// Config controls the rotation of the audit file.
type Config struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// captureWriter remembers the last write error, which zerolog would
// otherwise swallow.
type captureWriter struct {
	w   io.Writer
	err error
}

func (c *captureWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	if err != nil {
		c.err = err
	}
	return n, err
}

// Sink writes one line per audit entry, formatted as
// "<time> - INFO - <username> - <action>".
type Sink struct {
	mu     sync.Mutex
	out    *captureWriter
	log    zerolog.Logger
	closer io.Closer
}

var _ ports.AuditSink = (*Sink)(nil)

// Open creates the parent directory and returns a Sink rotating at cfg.Path.
func Open(cfg Config) (*Sink, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}
	lj := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	s := New(lj)
	s.closer = lj
	return s, nil
}

// New returns a Sink writing to w.
func New(w io.Writer) *Sink {
	out := &captureWriter{w: w}
	console := zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    true,
		TimeFormat: time.DateTime,
		PartsOrder: []string{zerolog.TimestampFieldName, zerolog.LevelFieldName, zerolog.MessageFieldName},
		FormatLevel: func(any) string { return "- INFO -" },
	}
	return &Sink{
		out: out,
		log: zerolog.New(console).With().Timestamp().Logger(),
	}
}

// Write appends a line for the entry. A failed write is counted and returned.
func (s *Sink) Write(username, action string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.out.err = nil
	msg := action
	if username != "" {
		msg = username + " - " + action
	}
	s.log.Info().Msg(msg)

	if s.out.err != nil {
		metrics.AuditSinkErrorsTotal.Inc()
		return s.out.err
	}
	return nil
}

// Close releases the underlying file, if any.
func (s *Sink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
