// Package session provides an in-process session store for single-instance
// and development deployments.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/99minutos/auth-portal/internal/core/domain"
	"github.com/99minutos/auth-portal/internal/core/ports"
)

type entry struct {
	data      []byte
	expiresAt time.Time
}

const sweepInterval = time.Minute

// MemoryStore keeps encoded sessions in a map. Expired entries are dropped
// on access, and Save sweeps the whole map at most once per sweepInterval so
// abandoned sessions do not accumulate.
type MemoryStore struct {
	mu        sync.Mutex
	entries   map[string]entry
	now       func() time.Time
	lastSweep time.Time
}

var _ ports.SessionStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]entry), now: time.Now}
}

// WithClock replaces the time source used for expiry.
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.now = now
	return m
}

func (m *MemoryStore) Load(_ context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	e, ok := m.entries[id]
	if ok && !m.now().Before(e.expiresAt) {
		delete(m.entries, id)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	sess := domain.NewSession(id)
	if err := json.Unmarshal(e.data, sess); err != nil {
		return nil, fmt.Errorf("session decode: %w", err)
	}
	return sess, nil
}

func (m *MemoryStore) Save(_ context.Context, sess *domain.Session, ttl time.Duration) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session encode: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if now.Sub(m.lastSweep) >= sweepInterval {
		m.sweep(now)
	}
	m.entries[sess.ID] = entry{data: data, expiresAt: now.Add(ttl)}
	return nil
}

// sweep drops every expired entry. The caller holds m.mu.
func (m *MemoryStore) sweep(now time.Time) {
	for id, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, id)
		}
	}
	m.lastSweep = now
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

// Len reports how many entries are held, expired ones not yet swept included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
