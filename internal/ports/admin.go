package ports

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// KillResult is the outcome of a forced cleanup for one remote port.
type KillResult struct {
	Port   int    `json:"port"`
	Output string `json:"output,omitempty"`
	Err    error  `json:"-"`
}

func killCommand(port int) string {
	return fmt.Sprintf("pkill -f -- '--port %d( |$)' || lsof -ti:%d | xargs -r kill -9", port, port)
}

// KillRemote force-terminates whatever listens on each port on the instance.
// It fails up front when the instance is not running.
func (a *Allocator) KillRemote(ctx context.Context, ports []int) ([]KillResult, error) {
	host := a.remoteHost(ctx)
	if host == "" {
		return nil, ErrInstanceNotRunning
	}
	out := make([]KillResult, 0, len(ports))
	for _, p := range ports {
		res := KillResult{Port: p}
		b, err := a.ssh.Run(ctx, host, killCommand(p))
		res.Output = strings.TrimSpace(string(b))
		// the pipeline exits 0 when nothing matched, so an error means ssh itself failed
		res.Err = err
		if err != nil {
			a.log.Warn().Err(err).Int("port", p).Str("host", host).Msg("remote port cleanup failed")
		} else {
			a.log.Info().Int("port", p).Str("host", host).Msg("remote port cleanup issued")
		}
		out = append(out, res)
	}
	return out, nil
}

// PortState is the observed local occupancy of one port.
type PortState struct {
	Port int  `json:"port"`
	Busy bool `json:"busy"`
}

// DebugReport gathers every view of port usage.
type DebugReport struct {
	Local       []PortState    `json:"local"`
	Sessions    map[string]int `json:"sessions"`
	RemoteHost  string         `json:"remote_host,omitempty"`
	RemotePorts []int          `json:"remote_ports,omitempty"`
	RemoteError string         `json:"remote_error,omitempty"`
}

// Debug range for local occupancy.
const (
	DebugFrom = 8080
	DebugTo   = 8090
)

// Debug reports local occupancy of the debug range, the in-memory session
// ports and the remote listening ports (or why they are unavailable).
func (a *Allocator) Debug(ctx context.Context, sessions map[string]int) DebugReport {
	rep := DebugReport{Sessions: map[string]int{}}
	for p := DebugFrom; p <= DebugTo; p++ {
		rep.Local = append(rep.Local, PortState{Port: p, Busy: a.localBusy(p)})
	}
	for id, p := range sessions {
		rep.Sessions[id] = p
	}
	host := a.remoteHost(ctx)
	if host == "" {
		rep.RemoteError = "instance not running or unreachable"
		return rep
	}
	rep.RemoteHost = host
	open, err := a.RemotePorts(ctx, host)
	if err != nil {
		rep.RemoteError = err.Error()
		return rep
	}
	rep.RemotePorts = open
	return rep
}

// SortedSessionIDs returns the ids of a session port map in order.
func SortedSessionIDs(m map[string]int) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
