// Package shutdown runs the single cleanup pass of a controller process:
// close the registry, stop every session, then offer to stop the instance.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// State of the coordinator latch.
type State int32

const (
	Idle State = iota
	ShuttingDown
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ShuttingDown:
		return "shutting-down"
	case Terminated:
		return "terminated"
	}
	return "unknown"
}

// DefaultInstanceGrace is how long the operator gets to keep the instance running.
const DefaultInstanceGrace = 5 * time.Second

// Registry is the session registry as seen by cleanup.
type Registry interface {
	BeginShutdown()
	StopAll(ctx context.Context) error
	HadSessions() bool
}

// InstanceStopper offers to stop the instance.
type InstanceStopper interface {
	StopWithGrace(ctx context.Context, timeout time.Duration, auto bool) (bool, error)
}

// ErrShuttingDown is the cancellation cause of contexts bound with Bind.
var ErrShuttingDown = errors.New("shutdown in progress")

// Coordinator guarantees at most one cleanup pass per process.
type Coordinator struct {
	state atomic.Int32
	begun chan struct{}
	done  chan struct{}

	reg   Registry
	inst  InstanceStopper
	grace time.Duration
	log   zerolog.Logger
	exit  func(code int)
}

// New returns an idle coordinator. inst may be nil when no instance should be stopped.
func New(reg Registry, inst InstanceStopper, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		begun: make(chan struct{}),
		done:  make(chan struct{}),
		reg:   reg,
		inst:  inst,
		grace: DefaultInstanceGrace,
		log:   log,
		exit:  os.Exit,
	}
}

// State returns the current latch state.
func (c *Coordinator) State() State { return State(c.state.Load()) }

// Done is closed once the cleanup pass has completed.
func (c *Coordinator) Done() <-chan struct{} { return c.done }

// Bind returns a context that is canceled with ErrShuttingDown as soon as the
// cleanup pass starts, so work begun before a signal stops waiting on it.
func (c *Coordinator) Bind(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	go func() {
		select {
		case <-c.begun:
			cancel(ErrShuttingDown)
		case <-ctx.Done():
		}
	}()
	return ctx, func() { cancel(context.Canceled) }
}

// Shutdown runs the cleanup pass. Only the first caller performs it, gets
// ran=true and the joined cleanup error; every other caller waits for it to
// finish (or ctx) and gets false, nil.
func (c *Coordinator) Shutdown(ctx context.Context, reason string) (ran bool, err error) {
	if !c.state.CompareAndSwap(int32(Idle), int32(ShuttingDown)) {
		select {
		case <-c.done:
		case <-ctx.Done():
		}
		return false, nil
	}
	defer func() {
		c.state.Store(int32(Terminated))
		close(c.done)
	}()
	c.log.Info().Str("reason", reason).Msg("shutting down")
	// latch first so work canceled through Bind sees it
	c.reg.BeginShutdown()
	close(c.begun)
	var errs []error
	if err := c.reg.StopAll(ctx); err != nil {
		c.log.Warn().Err(err).Msg("some sessions did not stop cleanly")
		errs = append(errs, fmt.Errorf("stop sessions: %w", err))
	}
	if c.inst != nil {
		auto := c.reg.HadSessions()
		if _, err := c.inst.StopWithGrace(ctx, c.grace, auto); err != nil {
			c.log.Error().Err(err).Msg("instance stop failed")
			errs = append(errs, fmt.Errorf("stop instance: %w", err))
		}
	}
	c.log.Info().Msg("shutdown complete")
	return true, errors.Join(errs...)
}

// Install starts watching SIGINT and SIGTERM. The first signal runs the
// cleanup pass and exits the process with status 0; later signals are
// logged and ignored. The returned func stops watching.
func (c *Coordinator) Install() (stop func()) {
	sigs := make(chan os.Signal, 4)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	quit := make(chan struct{})
	go c.watch(sigs, quit)
	return func() {
		signal.Stop(sigs)
		close(quit)
	}
}

func (c *Coordinator) watch(sigs <-chan os.Signal, quit <-chan struct{}) {
	triggered := false
	for {
		select {
		case <-quit:
			return
		case sig := <-sigs:
			if triggered || c.State() != Idle {
				c.log.Warn().Str("signal", sig.String()).Msg("already shutting down, signal ignored")
				continue
			}
			triggered = true
			c.log.Info().Str("signal", sig.String()).Msg("signal received")
			go func() {
				_, _ = c.Shutdown(context.Background(), "signal "+sig.String())
				c.exit(0)
			}()
		}
	}
}
