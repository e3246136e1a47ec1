package manager

import (
	"context"
	"fmt"

	"modelctl/internal/common/fsutil"
)

const maxReserveAttempts = 5

// StartSession launches a model server on the instance and registers it.
// On any failure after reservation no registry entry or reservation is left.
func (m *Manager) StartSession(ctx context.Context, req StartRequest) (string, error) {
	if m.ShuttingDown() {
		return "", ErrShuttingDown
	}
	md, err := m.resolveModel(ctx, req.ModelID, req.NonInteractive)
	if err != nil {
		sessionFailures.WithLabelValues("model").Inc()
		if m.ShuttingDown() {
			return "", ErrShuttingDown
		}
		return "", err
	}
	// instance polls and port probes run to their own bounds
	ctx = context.WithoutCancel(ctx)
	if m.ShuttingDown() {
		return "", ErrShuttingDown
	}
	addr, err := m.inst.EnsureRunning(ctx)
	if err != nil {
		sessionFailures.WithLabelValues("instance").Inc()
		return "", err
	}

	preferred := req.PreferredPort
	if preferred <= 0 {
		preferred = m.basePort
	}
	id, port, err := m.reserve(ctx, md.ID, preferred)
	if err != nil {
		sessionFailures.WithLabelValues("port").Inc()
		return "", err
	}
	registered := false
	defer func() {
		if !registered {
			m.mu.Lock()
			delete(m.reserved, id)
			m.mu.Unlock()
		}
	}()
	log := m.log.With().Str("session", id).Str("model", md.ID).Int("port", port).Logger()

	// the port may have been taken on the instance since allocation
	if m.ports.RemoteBusy(ctx, port) {
		log.Warn().Msg("port appears to be in use on the instance")
		if !req.NonInteractive && m.prompter.Interactive() {
			q := fmt.Sprintf("Port %d may already be in use on the instance. Launch anyway?", port)
			if !m.prompter.Confirm(ctx, q, true, m.confirmTimeout) {
				sessionFailures.WithLabelValues("canceled").Inc()
				return "", ErrLaunch(id, ErrLaunchCanceled)
			}
		}
	}

	if m.keyPath != "" {
		if _, err := fsutil.PrivateKeyFile(m.keyPath); err != nil {
			sessionFailures.WithLabelValues("ssh_key").Inc()
			return "", ErrLaunch(id, err)
		}
	}

	s := &Session{ID: id, ModelID: md.ID, ModelName: md.Name, Port: port, Address: addr}
	m.publish(EventSessionStart, s, "address", addr)
	proc, err := m.launcher.Launch(ctx, addr, LaunchCommand(m.workDir, md, port))
	if err != nil {
		sessionFailures.WithLabelValues("spawn").Inc()
		m.publish(EventSessionFailed, s, "error", err.Error())
		return "", ErrLaunch(id, err)
	}
	s.proc = proc
	s.StartedAt = m.now()

	m.mu.Lock()
	delete(m.reserved, id)
	if m.closed {
		m.mu.Unlock()
		registered = true
		_ = proc.Stop(m.stopGrace)
		sessionFailures.WithLabelValues("shutdown").Inc()
		log.Warn().Msg("shutdown began during launch, process stopped")
		return "", ErrShuttingDown
	}
	m.sessions[id] = s
	m.mu.Unlock()
	registered = true
	m.everStarted.Store(true)
	sessionsStarted.WithLabelValues(md.ID).Inc()
	sessionsActive.Inc()

	m.relays.Go(func() { m.relay(s) })

	log.Info().Str("url", s.URL()).Int("pid", proc.PID()).Msg("session started")
	m.publish(EventSessionReady, s, "url", s.URL())
	return id, nil
}

// reserve allocates a port and records it with a fresh id so concurrent
// starts cannot pick the same port.
func (m *Manager) reserve(ctx context.Context, model string, preferred int) (string, int, error) {
	m.mu.Lock()
	busy := m.busyPortsLocked()
	m.mu.Unlock()
	for attempt := 0; ; attempt++ {
		port, err := m.ports.Allocate(ctx, preferred, busy)
		if err != nil {
			return "", 0, err
		}
		m.mu.Lock()
		now := m.busyPortsLocked()
		if _, taken := now[port]; !taken {
			id := m.newSessionIDLocked(model, port)
			m.reserved[id] = port
			m.mu.Unlock()
			return id, port, nil
		}
		m.mu.Unlock()
		if attempt+1 >= maxReserveAttempts {
			return "", 0, fmt.Errorf("port %d taken concurrently %d times", port, maxReserveAttempts)
		}
		busy = now
	}
}
