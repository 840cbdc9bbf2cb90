package core

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"popcorn/internal/config"
	"popcorn/internal/search"
)

type sessionEntry struct {
	session *search.Session
	// polled sessions have no connection to tie their lifetime to and are
	// reaped once idle
	polled bool
}

// Search runs the whole pipeline once for query. Upstream failures produce an
// empty result, never an error.
func (m *Manager) Search(ctx context.Context, query string) search.Result {
	timeout := config.ParseDuration(m.Config().Search.PipelineTimeout, time.Minute)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return m.pipeline.Run(ctx, strings.TrimSpace(query))
}

// MaxQueryLength is the longest query accepted, 0 means unlimited.
func (m *Manager) MaxQueryLength() int {
	return m.Config().Search.MaxQueryLength
}

// NewSession starts a session whose snapshots are pushed to publish. The
// caller owns its lifetime and must call CloseSession.
func (m *Manager) NewSession(publish func(search.Snapshot)) *search.Session {
	return m.newSession(publish, false)
}

// NewPolledSession starts a session that is read through Snapshot and
// reaped after the configured idle timeout.
func (m *Manager) NewPolledSession() *search.Session {
	return m.newSession(nil, true)
}

func (m *Manager) newSession(publish func(search.Snapshot), polled bool) *search.Session {
	cfg := m.Config()
	session := search.NewSession(uuid.NewString(), search.SessionConfig{
		Debounce:        config.ParseDuration(cfg.Search.Debounce, 500*time.Millisecond),
		PipelineTimeout: config.ParseDuration(cfg.Search.PipelineTimeout, time.Minute),
	}, m.completion, m.resolver, publish, m.logger)

	m.sessionsMu.Lock()
	m.sessions[session.ID()] = &sessionEntry{session: session, polled: polled}
	m.sessionsMu.Unlock()

	m.logger.Debug("Search session opened:", session.ID())
	return session
}

func (m *Manager) GetSession(id string) (*search.Session, error) {
	m.sessionsMu.Lock()
	defer m.sessionsMu.Unlock()
	entry, ok := m.sessions[id]
	if !ok {
		return nil, search.ErrSessionNotFound
	}
	return entry.session, nil
}

// CloseSession shuts the session down and forgets it.
func (m *Manager) CloseSession(id string) error {
	m.sessionsMu.Lock()
	entry, ok := m.sessions[id]
	delete(m.sessions, id)
	m.sessionsMu.Unlock()

	if !ok {
		return search.ErrSessionNotFound
	}
	entry.session.Shutdown()
	m.logger.Debug("Search session closed:", id)
	return nil
}

func (m *Manager) ActiveSessions() int {
	m.sessionsMu.Lock()
	defer m.sessionsMu.Unlock()
	return len(m.sessions)
}

func (m *Manager) reapIdleSessions() {
	idle := config.ParseDuration(m.Config().Search.SessionIdleTimeout, 10*time.Minute)
	cutoff := time.Now().Add(-idle)

	var expired []*search.Session
	m.sessionsMu.Lock()
	for id, entry := range m.sessions {
		if entry.polled && entry.session.IdleSince().Before(cutoff) {
			expired = append(expired, entry.session)
			delete(m.sessions, id)
		}
	}
	m.sessionsMu.Unlock()

	for _, s := range expired {
		s.Shutdown()
	}
	if len(expired) > 0 {
		m.logger.Info("Reaped", len(expired), "idle search sessions")
	}
}

func (m *Manager) shutdownSessions() {
	m.sessionsMu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*sessionEntry)
	m.sessionsMu.Unlock()

	for _, entry := range sessions {
		entry.session.Shutdown()
	}
}
