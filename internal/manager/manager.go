package manager

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"modelctl/internal/prompt"
	"modelctl/pkg/types"
)

// Manager is the session registry. All fields behind mu.
type Manager struct {
	mu       sync.Mutex
	models   []types.ModelDescriptor
	sessions map[string]*Session
	// in-flight launches: id -> port
	reserved map[string]int
	// ids stopped or pruned, so a repeated stop is a no-op
	stopped   map[string]struct{}
	closed    bool
	publisher EventPublisher

	everStarted atomic.Bool
	relays      conc.WaitGroup

	workDir        string
	basePort       int
	keyPath        string
	inst           InstanceController
	ports          PortAllocator
	launcher       Launcher
	prompter       *prompt.Prompter
	log            zerolog.Logger
	stopGrace      time.Duration
	confirmTimeout time.Duration
	now            func() time.Time
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		sessions:  make(map[string]*Session),
		reserved:  make(map[string]int),
		stopped:   make(map[string]struct{}),
		publisher: noopPublisher{},
		workDir:   cfg.WorkDir,
		basePort:  cfg.BasePort,
		keyPath:   cfg.KeyPath,
		inst:      cfg.Instance,
		ports:     cfg.Ports,
		launcher:  cfg.Launcher,
		prompter:  cfg.Prompter,
		log:       cfg.Logger,
		now:       cfg.Now,
	}
	m.models = append(m.models, cfg.Models...)
	sort.Slice(m.models, func(i, j int) bool { return m.models[i].ID < m.models[j].ID })
	// Apply defaults if unset
	if cfg.StopGrace <= 0 {
		m.stopGrace = defaultStopGrace
	} else {
		m.stopGrace = cfg.StopGrace
	}
	if cfg.ConfirmTimeout <= 0 {
		m.confirmTimeout = defaultConfirmTimeout
	} else {
		m.confirmTimeout = cfg.ConfirmTimeout
	}
	if m.prompter == nil {
		m.prompter = prompt.NonInteractive(nil)
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Models returns the configured models sorted by id.
func (m *Manager) Models() []types.ModelDescriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	// return a shallow copy to avoid external mutation
	out := make([]types.ModelDescriptor, len(m.models))
	copy(out, m.models)
	return out
}

// SessionPorts maps live session ids to their ports.
func (m *Manager) SessionPorts() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.sessions))
	for id, s := range m.sessions {
		out[id] = s.Port
	}
	return out
}

// Len returns the number of tracked sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// HadSessions reports whether any session was ever registered in this process.
func (m *Manager) HadSessions() bool { return m.everStarted.Load() }

// BeginShutdown closes the registry to new sessions. It is idempotent.
func (m *Manager) BeginShutdown() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

// ShuttingDown reports whether BeginShutdown was called.
func (m *Manager) ShuttingDown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Wait blocks until every relay task has finished. A panic inside a relay is
// logged rather than propagated.
func (m *Manager) Wait() {
	if r := m.relays.WaitAndRecover(); r != nil {
		m.log.Error().Str("panic", r.String()).Msg("session relay panicked")
	}
}

// Lookup returns a snapshot of the session registered under id.
func (m *Manager) Lookup(id string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *s, true
}
