package manager

// Event represents a session lifecycle event.
// Minimal and stable: name + model ID and optional fields via key/values.
type Event struct {
	Name    string
	ModelID string
	Fields  map[string]any
}

// Event names.
const (
	EventSessionStart  = "session_start"
	EventSessionReady  = "session_ready"
	EventSessionFailed = "session_failed"
	EventSessionStop   = "session_stop"
	EventSessionExit   = "session_exit"
	EventSessionPruned = "session_pruned"
)

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// SetEventPublisher replaces the publisher; nil restores the no-op default.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	m.mu.Lock()
	m.publisher = p
	m.mu.Unlock()
}

func (m *Manager) publish(name string, s *Session, kv ...any) {
	m.mu.Lock()
	p := m.publisher
	m.mu.Unlock()
	e := Event{Name: name, ModelID: s.ModelID, Fields: map[string]any{"session": s.ID, "port": s.Port}}
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			e.Fields[k] = kv[i+1]
		}
	}
	p.Publish(e)
}
