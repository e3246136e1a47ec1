package manager

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"modelctl/internal/prompt"
	"modelctl/internal/remote"
	"modelctl/pkg/types"
)

type fakeInstance struct {
	mu      sync.Mutex
	addr    string
	state   types.InstanceState
	err     error
	ensures int
}

func (f *fakeInstance) EnsureRunning(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensures++
	if f.err != nil {
		return "", f.err
	}
	return f.addr, nil
}

func (f *fakeInstance) Status(context.Context) (types.InstanceState, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.addr, f.err
}

func (f *fakeInstance) InstanceID() string { return "i-test" }

// fakePorts hands out ports sequentially, skipping the in-process set.
type fakePorts struct {
	mu         sync.Mutex
	remoteBusy map[int]bool
	remote     []int
	remoteErr  error
	seen       []map[int]struct{}
}

func (f *fakePorts) Allocate(_ context.Context, preferred int, busy map[int]struct{}) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make(map[int]struct{}, len(busy))
	for p := range busy {
		cp[p] = struct{}{}
	}
	f.seen = append(f.seen, cp)
	for p := preferred; p < preferred+100; p++ {
		if _, ok := busy[p]; !ok {
			return p, nil
		}
	}
	return 0, errors.New("exhausted")
}

func (f *fakePorts) RemoteBusy(_ context.Context, port int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remoteBusy[port]
}

func (f *fakePorts) RemotePorts(context.Context, string) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remote, f.remoteErr
}

// shLauncher runs script locally in place of the remote server.
type shLauncher struct {
	mu       sync.Mutex
	script   string
	err      error
	commands []string
}

func (l *shLauncher) Launch(_ context.Context, host, command string) (*remote.Process, error) {
	l.mu.Lock()
	l.commands = append(l.commands, host+" "+command)
	script, err := l.script, l.err
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if script == "" {
		script = "echo listening; exec sleep 30"
	}
	return remote.Spawn(exec.Command("sh", "-c", script))
}

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

var testModels = []types.ModelDescriptor{
	{ID: "qwen3-embedding", Name: "Qwen3 Embedding", Path: "/models/q.gguf", GPULayers: 32, Threads: 4, Embedding: true},
}

type harness struct {
	m    *Manager
	inst *fakeInstance
	pa   *fakePorts
	l    *shLauncher
	logs *syncBuffer
	pub  *MemoryPublisher
}

func newHarness(t *testing.T, models []types.ModelDescriptor, p *prompt.Prompter) *harness {
	t.Helper()
	h := &harness{
		inst: &fakeInstance{addr: "10.0.0.5", state: types.InstanceRunning},
		pa:   &fakePorts{remoteBusy: map[int]bool{}},
		l:    &shLauncher{},
		logs: &syncBuffer{},
		pub:  NewMemoryPublisher(),
	}
	h.m = NewWithConfig(ManagerConfig{
		Models:    models,
		WorkDir:   "/home/ubuntu/llama.cpp",
		BasePort:  8080,
		Instance:  h.inst,
		Ports:     h.pa,
		Launcher:  h.l,
		Prompter:  p,
		Logger:    zerolog.New(h.logs),
		StopGrace: time.Second,
	})
	h.m.SetEventPublisher(h.pub)
	t.Cleanup(func() {
		_ = h.m.StopAll(context.Background())
		h.m.Wait()
	})
	return h
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func hasPrefix(s, p string) bool { return strings.HasPrefix(s, p) }
