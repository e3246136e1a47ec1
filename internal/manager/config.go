package manager

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"modelctl/internal/prompt"
	"modelctl/internal/remote"
	"modelctl/pkg/types"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultStopGrace      = 3 * time.Second
	defaultConfirmTimeout = 15 * time.Second
)

// InstanceController is the part of the instance controller the registry needs.
type InstanceController interface {
	EnsureRunning(ctx context.Context) (string, error)
	Status(ctx context.Context) (types.InstanceState, string, error)
}

// PortAllocator chooses ports and inspects the remote listeners.
type PortAllocator interface {
	Allocate(ctx context.Context, preferred int, inProcessBusy map[int]struct{}) (int, error)
	RemoteBusy(ctx context.Context, port int) bool
	RemotePorts(ctx context.Context, host string) ([]int, error)
}

// Launcher starts a long-running command on the instance.
type Launcher interface {
	Launch(ctx context.Context, host, command string) (*remote.Process, error)
}

// ManagerConfig encapsulates all tunables and collaborators for Manager construction.
type ManagerConfig struct {
	Models   []types.ModelDescriptor
	WorkDir  string
	BasePort int
	// KeyPath is checked and tightened to 0600 before each launch; empty skips the check.
	KeyPath string

	Instance InstanceController
	Ports    PortAllocator
	Launcher Launcher
	Prompter *prompt.Prompter
	Logger   zerolog.Logger

	StopGrace      time.Duration
	ConfirmTimeout time.Duration
	Now            func() time.Time
}
