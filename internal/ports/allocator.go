// Package ports chooses a TCP port that is free in-process, on the local
// machine and on the remote instance.
package ports

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"modelctl/pkg/types"
)

// listenCommand lists listening TCP sockets; column 4 is the local address in both outputs.
const listenCommand = "netstat -tln 2>/dev/null || ss -tln"

// InstanceStatus reports the instance state and public address.
type InstanceStatus interface {
	Status(ctx context.Context) (types.InstanceState, string, error)
}

// Runner executes a command on a remote host.
type Runner interface {
	Run(ctx context.Context, host, command string) ([]byte, error)
}

// Options controls the search.
type Options struct {
	BasePort           int
	SequentialAttempts int
	RandomAttempts     int
	RandomMin          int
	RandomMax          int
	LocalTimeout       time.Duration
	RemoteTimeout      time.Duration
}

// DefaultOptions returns the search parameters used in production.
func DefaultOptions(basePort int) Options {
	return Options{
		BasePort:           basePort,
		SequentialAttempts: 100,
		RandomAttempts:     20,
		RandomMin:          8100,
		RandomMax:          8999,
		LocalTimeout:       time.Second,
		RemoteTimeout:      10 * time.Second,
	}
}

// Allocator probes candidate ports.
type Allocator struct {
	inst InstanceStatus
	ssh  Runner
	opts Options
	log  zerolog.Logger

	localBusy func(port int) bool
	intn      func(n int) int
}

// New returns an allocator. ssh may be nil, in which case the remote scope is skipped.
func New(inst InstanceStatus, ssh Runner, opts Options, log zerolog.Logger) *Allocator {
	a := &Allocator{inst: inst, ssh: ssh, opts: opts, log: log, intn: rand.IntN}
	a.localBusy = a.dialLocal
	return a
}

// Allocate returns the first port, starting at preferred (base port when 0),
// that is not in inProcessBusy and is free locally and remotely. After the
// sequential range it samples random ports in the fallback range.
func (a *Allocator) Allocate(ctx context.Context, preferred int, inProcessBusy map[int]struct{}) (int, error) {
	if preferred <= 0 {
		preferred = a.opts.BasePort
	}
	host := a.remoteHost(ctx)
	free := func(p int) bool {
		if p < 1 || p > 65535 {
			return false
		}
		if _, ok := inProcessBusy[p]; ok {
			return false
		}
		if a.localBusy(p) {
			return false
		}
		return host == "" || !a.remoteBusyOn(ctx, host, p)
	}

	last := preferred + a.opts.SequentialAttempts - 1
	for p := preferred; p <= last; p++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if free(p) {
			allocationsTotal.WithLabelValues("sequential").Inc()
			a.log.Debug().Int("port", p).Msg("port allocated")
			return p, nil
		}
	}
	span := a.opts.RandomMax - a.opts.RandomMin + 1
	if span > 0 {
		for i := 0; i < a.opts.RandomAttempts; i++ {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
			p := a.opts.RandomMin + a.intn(span)
			if free(p) {
				allocationsTotal.WithLabelValues("random").Inc()
				a.log.Debug().Int("port", p).Msg("port allocated from random range")
				return p, nil
			}
		}
	}
	allocationsTotal.WithLabelValues("exhausted").Inc()
	return 0, ErrPortExhaustion(preferred, last, a.opts.RandomMin, a.opts.RandomMax)
}

// LocalBusy reports whether something accepts connections on 127.0.0.1:port.
func (a *Allocator) LocalBusy(port int) bool { return a.localBusy(port) }

func (a *Allocator) dialLocal(port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), a.opts.LocalTimeout)
	busy := err == nil
	if busy {
		_ = conn.Close()
	}
	observeProbe("local", busy)
	return busy
}

// remoteHost returns the instance address, or "" when remote probing should be skipped.
func (a *Allocator) remoteHost(ctx context.Context) string {
	if a.ssh == nil || a.inst == nil {
		return ""
	}
	st, addr, err := a.inst.Status(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("instance status unavailable, skipping remote port checks")
		return ""
	}
	if st != types.InstanceRunning || addr == "" {
		return ""
	}
	return addr
}

// RemoteBusy is a single conservative probe: any failure to check counts as busy.
// A stopped or unreachable instance has nothing listening, so the port is free.
func (a *Allocator) RemoteBusy(ctx context.Context, port int) bool {
	host := a.remoteHost(ctx)
	if host == "" {
		return false
	}
	return a.remoteBusyOn(ctx, host, port)
}

func (a *Allocator) remoteBusyOn(ctx context.Context, host string, port int) bool {
	open, err := a.RemotePorts(ctx, host)
	if err != nil {
		a.log.Debug().Err(err).Int("port", port).Msg("remote probe failed, treating port as busy")
		observeProbe("remote", true)
		return true
	}
	busy := false
	for _, p := range open {
		if p == port {
			busy = true
			break
		}
	}
	observeProbe("remote", busy)
	return busy
}

// RemotePorts lists the listening TCP ports on host, sorted and deduplicated.
func (a *Allocator) RemotePorts(ctx context.Context, host string) ([]int, error) {
	if a.ssh == nil {
		return nil, fmt.Errorf("no remote runner configured")
	}
	if a.opts.RemoteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.RemoteTimeout)
		defer cancel()
	}
	out, err := a.ssh.Run(ctx, host, listenCommand)
	if err != nil {
		return nil, err
	}
	return parseListening(string(out)), nil
}

func parseListening(out string) []int {
	seen := map[int]struct{}{}
	for _, line := range strings.Split(out, "\n") {
		f := strings.Fields(line)
		if len(f) < 4 {
			continue
		}
		local := f[3]
		i := strings.LastIndexByte(local, ':')
		if i < 0 {
			continue
		}
		p, err := strconv.Atoi(local[i+1:])
		if err != nil || p <= 0 {
			continue
		}
		seen[p] = struct{}{}
	}
	ports := make([]int, 0, len(seen))
	for p := range seen {
		ports = append(ports, p)
	}
	sort.Ints(ports)
	return ports
}
