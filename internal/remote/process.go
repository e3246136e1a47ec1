package remote

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// OutputDrain bounds how long Output stays open after exit when a detached
// child still holds the write end.
var OutputDrain = 2 * time.Second

// Process is the local handle of a spawned command whose stdout and stderr
// are merged into one stream.
type Process struct {
	cmd  *exec.Cmd
	out  *os.File
	done chan struct{}

	mu       sync.Mutex
	exitErr  error
	stopOnce sync.Once
}

// Spawn starts cmd with stdout and stderr merged into Output. The caller
// must drain Output; Stop and exit close it from the writer side.
func Spawn(cmd *exec.Cmd) (*Process, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	cmd.Stdout = w
	cmd.Stderr = w
	if err := cmd.Start(); err != nil {
		_ = r.Close()
		_ = w.Close()
		return nil, err
	}
	// the child holds its own copy of the write end
	_ = w.Close()
	p := &Process{cmd: cmd, out: r, done: make(chan struct{})}
	go func() {
		err := cmd.Wait()
		p.mu.Lock()
		p.exitErr = err
		p.mu.Unlock()
		close(p.done)
		time.AfterFunc(OutputDrain, func() { _ = r.Close() })
	}()
	return p, nil
}

// PID of the local process.
func (p *Process) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Output is the merged stdout/stderr stream; it reaches EOF once every
// writer (the process and its children) has gone.
func (p *Process) Output() io.Reader { return p.out }

// Done is closed when the process has exited.
func (p *Process) Done() <-chan struct{} { return p.done }

// Alive is a non-blocking liveness check.
func (p *Process) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// ExitErr returns the wait error once the process has exited.
func (p *Process) ExitErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitErr
}

// Stop sends SIGTERM, waits up to grace for exit, then kills. Calling Stop
// on an exited process is a no-op.
func (p *Process) Stop(grace time.Duration) error {
	var err error
	p.stopOnce.Do(func() {
		if !p.Alive() {
			return
		}
		if serr := p.cmd.Process.Signal(syscall.SIGTERM); serr != nil && !errors.Is(serr, os.ErrProcessDone) {
			err = serr
		}
		t := time.NewTimer(grace)
		defer t.Stop()
		select {
		case <-p.done:
		case <-t.C:
			_ = p.cmd.Process.Kill()
			<-p.done
		}
	})
	return err
}
