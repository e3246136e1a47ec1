package manager

import (
	"time"

	"modelctl/internal/remote"
)

// Session is one running model server tracked by the registry.
type Session struct {
	ID        string
	ModelID   string
	ModelName string
	Port      int
	Address   string
	StartedAt time.Time

	proc     *remote.Process
	stopping bool
}

// URL is the public endpoint of the session's server.
func (s *Session) URL() string { return "http://" + s.Address + ":" + itoa(s.Port) }

// StartRequest describes a launch.
type StartRequest struct {
	// ModelID may be empty: a sole model is picked automatically, otherwise
	// the operator is asked.
	ModelID string
	// PreferredPort of 0 means the configured base port.
	PreferredPort int
	// NonInteractive never prompts; questions take their defaults.
	NonInteractive bool
}
