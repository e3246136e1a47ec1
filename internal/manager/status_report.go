package manager

import (
	"context"
	"sort"

	"modelctl/pkg/types"
)

// Status reports the instance and every session. Sessions whose process has
// exited are included once and then dropped from the registry.
func (m *Manager) Status(ctx context.Context) types.StatusResponse {
	now := m.now()
	resp := types.StatusResponse{ServerTimeUnix: now.Unix(), Sessions: []types.SessionStatus{}}
	st, addr, err := m.inst.Status(ctx)
	resp.InstanceState = st
	resp.PublicAddress = addr
	if err != nil {
		resp.InstanceState = types.InstanceUnknown
		resp.ProviderError = err.Error()
	}
	if ic, ok := m.inst.(interface{ InstanceID() string }); ok {
		resp.InstanceID = ic.InstanceID()
	}

	var listening map[int]bool
	if err == nil && st == types.InstanceRunning && addr != "" {
		open, perr := m.ports.RemotePorts(ctx, addr)
		if perr != nil {
			resp.RemotePortsError = perr.Error()
		} else {
			resp.RemotePorts = open
			listening = make(map[int]bool, len(open))
			for _, p := range open {
				listening[p] = true
			}
		}
	}

	m.mu.Lock()
	snap := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		snap = append(snap, s)
	}
	m.mu.Unlock()
	sort.Slice(snap, func(i, j int) bool { return snap[i].ID < snap[j].ID })

	var dead []*Session
	for _, s := range snap {
		ss := types.SessionStatus{
			ID:            s.ID,
			ModelID:       s.ModelID,
			ModelName:     s.ModelName,
			Address:       s.Address,
			Port:          s.Port,
			URL:           s.URL(),
			StartedAt:     s.StartedAt,
			UptimeSeconds: int64(now.Sub(s.StartedAt).Seconds()),
			ProcessAlive:  s.proc.Alive(),
		}
		if listening != nil {
			l := listening[s.Port]
			ss.RemoteListening = &l
		}
		if !ss.ProcessAlive {
			dead = append(dead, s)
		}
		resp.Sessions = append(resp.Sessions, ss)
	}
	m.prune(dead)
	return resp
}

func (m *Manager) prune(dead []*Session) {
	for _, s := range dead {
		m.mu.Lock()
		cur, ok := m.sessions[s.ID]
		drop := ok && cur == s && !s.stopping
		if drop {
			delete(m.sessions, s.ID)
			m.stopped[s.ID] = struct{}{}
		}
		m.mu.Unlock()
		if drop {
			sessionsActive.Dec()
			m.log.Info().Str("session", s.ID).Msg("dead session removed")
			m.publish(EventSessionPruned, s)
		}
	}
}
