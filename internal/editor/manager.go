// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package editor

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"sitefoundry/internal/theme"
)

// DefaultIdle is how long a session may go untouched before Sweep closes it.
const DefaultIdle = 2 * time.Hour

// Manager keeps the open sessions. HTTP handlers call it concurrently.
type Manager struct {
	rewriter  Rewriter
	persister Persister
	idle      time.Duration
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a manager whose sessions use rw for AI edits and p
// for saves.
func NewManager(rw Rewriter, p Persister, idle time.Duration) *Manager {
	if idle <= 0 {
		idle = DefaultIdle
	}
	return &Manager{
		rewriter:  rw,
		persister: p,
		idle:      idle,
		now:       time.Now,
		sessions:  make(map[string]*Session),
	}
}

// Open starts a session on a copy of html and cfg.
func (m *Manager) Open(target Target, html string, cfg theme.Config) *Session {
	s := newSession(randomID(), randomID(), target, html, cfg, m.rewriter, m.persister, m.now)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	slog.Info("editor session opened", "session", s.ID, "kind", target.Kind, "target", target.ID)
	return s
}

// Get returns an open session, or nil.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

// Close closes and forgets a session. Unknown ids are ignored.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	s := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if s != nil {
		s.Close()
		slog.Info("editor session closed", "session", id)
	}
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep closes sessions idle for longer than the idle timeout.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.idle)

	m.mu.Lock()
	var stale []string
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	m.mu.Unlock()

	for _, id := range stale {
		m.Close(id)
	}
	return len(stale)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				slog.Debug("editor sessions swept", "closed", n)
			}
		}
	}
}

func randomID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
