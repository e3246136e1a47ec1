package manager

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sourcegraph/conc"
)

// StopSession terminates one session: SIGTERM, up to the stop grace, then kill.
// An id stopped earlier is a no-op; an unknown id leaves the registry untouched.
func (m *Manager) StopSession(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		_, gone := m.stopped[id]
		known := m.idsLocked()
		m.mu.Unlock()
		if gone {
			return nil
		}
		return ErrSessionNotFound(id, known)
	}
	if s.stopping {
		m.mu.Unlock()
		return nil
	}
	s.stopping = true
	m.mu.Unlock()

	log := m.log.With().Str("session", id).Logger()
	log.Info().Msg("stopping session")
	err := s.proc.Stop(m.stopGrace)

	m.mu.Lock()
	delete(m.sessions, id)
	m.stopped[id] = struct{}{}
	m.mu.Unlock()
	sessionsActive.Dec()
	m.publish(EventSessionStop, s)
	if err != nil {
		log.Warn().Err(err).Msg("session stop reported an error")
		return fmt.Errorf("stop session %s: %w", id, err)
	}
	log.Info().Msg("session stopped")
	return nil
}

// StopAll stops every tracked session concurrently. No sessions is not an error.
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	ids := m.idsLocked()
	m.mu.Unlock()
	if len(ids) == 0 {
		return nil
	}
	errs := make([]error, len(ids))
	var wg conc.WaitGroup
	for i, id := range ids {
		wg.Go(func() { errs[i] = m.StopSession(ctx, id) })
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (m *Manager) idsLocked() []string {
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
