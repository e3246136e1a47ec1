package manager

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"modelctl/internal/remote"
	"modelctl/pkg/types"
)

// resolveModel picks the descriptor for id. An empty id auto-selects a sole
// model or asks the operator to choose one.
func (m *Manager) resolveModel(ctx context.Context, id string, nonInteractive bool) (types.ModelDescriptor, error) {
	models := m.Models()
	known := make([]string, len(models))
	for i, md := range models {
		known[i] = md.ID
	}
	if id != "" {
		for _, md := range models {
			if md.ID == id {
				return md, nil
			}
		}
		return types.ModelDescriptor{}, ErrModelNotFound(id, known)
	}
	switch {
	case len(models) == 0:
		return types.ModelDescriptor{}, ErrModelNotFound("", nil)
	case len(models) == 1:
		m.log.Info().Str("model", models[0].ID).Msg("model selected automatically")
		return models[0], nil
	case nonInteractive || !m.prompter.Interactive():
		return types.ModelDescriptor{}, ErrModelNotFound("", known)
	}
	opts := make([]string, len(models))
	for i, md := range models {
		opts[i] = fmt.Sprintf("%s - %s (%s)", md.ID, md.Name, md.Kind())
	}
	i, err := m.prompter.Select(ctx, "Select a model:", opts)
	if err != nil {
		return types.ModelDescriptor{}, fmt.Errorf("%w: %v", ErrModelNotFound("", known), err)
	}
	return models[i], nil
}

// newSessionIDLocked derives <model>_<port>_<ms%100000>, bumping the suffix
// until the id is unused by any registered, reserved or stopped session.
// Callers hold m.mu.
func (m *Manager) newSessionIDLocked(model string, port int) string {
	n := m.now().UnixMilli() % 100000
	for {
		id := fmt.Sprintf("%s_%d_%d", model, port, n)
		_, live := m.sessions[id]
		_, res := m.reserved[id]
		_, gone := m.stopped[id]
		if !live && !res && !gone {
			return id
		}
		n = (n + 1) % 100000
	}
}

// busyPortsLocked returns ports of live sessions and in-flight reservations.
func (m *Manager) busyPortsLocked() map[int]struct{} {
	busy := make(map[int]struct{}, len(m.sessions)+len(m.reserved))
	for _, s := range m.sessions {
		busy[s.Port] = struct{}{}
	}
	for _, p := range m.reserved {
		busy[p] = struct{}{}
	}
	return busy
}

// LaunchCommand is the shell line run on the instance for one session.
func LaunchCommand(workDir string, md types.ModelDescriptor, port int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "cd %s && ./build/bin/llama-server -m %s --host 0.0.0.0 --port %d --n-gpu-layers %d --threads %d",
		remote.Quote(workDir), remote.Quote(md.Path), port, md.GPULayers, md.Threads)
	if md.Embedding {
		b.WriteString(" --embedding")
	}
	return b.String()
}

func itoa(n int) string { return strconv.Itoa(n) }
