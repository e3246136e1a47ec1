// Package instance controls the power state of the single remote GPU instance.
// State is always re-queried from the provider and never cached.
package instance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/rs/zerolog"

	"modelctl/internal/prompt"
	"modelctl/pkg/types"
)

// EC2API is the subset of the EC2 client used by the controller.
type EC2API interface {
	DescribeInstances(ctx context.Context, in *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	StartInstances(ctx context.Context, in *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error)
	StopInstances(ctx context.Context, in *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
}

// Options tunes the readiness poll.
type Options struct {
	PollInterval time.Duration
	PollAttempts uint
	// SettleDelay is waited after the instance reports running, giving its
	// services time to come up.
	SettleDelay time.Duration
}

// Default poll parameters.
const (
	DefaultPollInterval = 10 * time.Second
	DefaultPollAttempts = 30
	DefaultSettleDelay  = 30 * time.Second
)

// DefaultOptions returns the production poll parameters.
func DefaultOptions() Options {
	return Options{PollInterval: DefaultPollInterval, PollAttempts: DefaultPollAttempts, SettleDelay: DefaultSettleDelay}
}

// Controller queries, starts and stops one instance.
type Controller struct {
	api    EC2API
	id     string
	opts   Options
	log    zerolog.Logger
	prompt *prompt.Prompter
}

// New builds a controller for instanceID. A nil prompter never waits for input.
func New(api EC2API, instanceID string, opts Options, log zerolog.Logger, p *prompt.Prompter) *Controller {
	if opts.PollAttempts == 0 {
		opts.PollAttempts = DefaultPollAttempts
	}
	if p == nil {
		p = prompt.NonInteractive(nil)
	}
	return &Controller{api: api, id: instanceID, opts: opts, log: log, prompt: p}
}

// InstanceID returns the managed instance id.
func (c *Controller) InstanceID() string { return c.id }

// Status returns the current state and public address. Any API failure or a
// missing instance is returned as a provider error.
func (c *Controller) Status(ctx context.Context) (types.InstanceState, string, error) {
	out, err := c.api.DescribeInstances(ctx, &ec2.DescribeInstancesInput{InstanceIds: []string{c.id}})
	if err != nil {
		return types.InstanceUnknown, "", ErrProvider(c.id, "describe", err)
	}
	for _, r := range out.Reservations {
		for _, inst := range r.Instances {
			if aws.ToString(inst.InstanceId) != "" && aws.ToString(inst.InstanceId) != c.id {
				continue
			}
			st := types.InstanceUnknown
			if inst.State != nil && inst.State.Name != "" {
				st = types.InstanceState(inst.State.Name)
			}
			return st, aws.ToString(inst.PublicIpAddress), nil
		}
	}
	return types.InstanceUnknown, "", ErrProvider(c.id, "describe", errors.New("instance not found"))
}

// EnsureRunning makes sure the instance is running and reachable and returns
// its public address. A pending instance is waited for without a new start
// request. The poll gives up on terminal states or after PollAttempts checks.
func (c *Controller) EnsureRunning(ctx context.Context) (string, error) {
	st, addr, err := c.Status(ctx)
	if err != nil {
		return "", err
	}
	if st == types.InstanceRunning && addr != "" {
		c.log.Debug().Str("instance", c.id).Str("address", addr).Msg("instance already running")
		return addr, nil
	}
	if st.Terminal() {
		return "", ErrInstanceTimeout(c.id, st, 0, "instance is "+string(st))
	}
	if st != types.InstancePending && st != types.InstanceRunning {
		c.log.Info().Str("instance", c.id).Str("state", string(st)).Msg("starting instance")
		if _, err := c.api.StartInstances(ctx, &ec2.StartInstancesInput{InstanceIds: []string{c.id}}); err != nil {
			return "", ErrProvider(c.id, "start", err)
		}
	}

	last := st
	errNotReady := errors.New("not ready")
	addr, err = retry.DoWithData(func() (string, error) {
		st, a, err := c.Status(ctx)
		if err != nil {
			return "", err
		}
		last = st
		if st.Terminal() {
			return "", retry.Unrecoverable(ErrInstanceTimeout(c.id, st, 0, "instance is "+string(st)))
		}
		if st == types.InstanceRunning && a != "" {
			return a, nil
		}
		return "", errNotReady
	},
		retry.Attempts(c.opts.PollAttempts),
		retry.Delay(c.opts.PollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.log.Info().Str("instance", c.id).Str("state", string(last)).Uint("check", n+1).Uint("of", c.opts.PollAttempts).Msg("waiting for instance")
		}),
	)
	if err != nil {
		if IsInstanceTimeout(err) {
			return "", err
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", ErrInstanceTimeout(c.id, last, c.opts.PollAttempts, "")
	}

	c.log.Info().Str("instance", c.id).Str("address", addr).Dur("settle", c.opts.SettleDelay).Msg("instance running, waiting for services")
	if err := sleepCtx(ctx, c.opts.SettleDelay); err != nil {
		return "", err
	}
	return addr, nil
}

// Stop requests a stop when the instance is running. stopped is false when
// there was nothing to stop.
func (c *Controller) Stop(ctx context.Context) (bool, error) {
	st, _, err := c.Status(ctx)
	if err != nil {
		return false, err
	}
	if st != types.InstanceRunning {
		c.log.Info().Str("instance", c.id).Str("state", string(st)).Msg("instance not running, nothing to stop")
		return false, nil
	}
	out, err := c.api.StopInstances(ctx, &ec2.StopInstancesInput{InstanceIds: []string{c.id}})
	if err != nil {
		return false, ErrProvider(c.id, "stop", err)
	}
	next := ec2types.InstanceStateNameStopping
	for _, ch := range out.StoppingInstances {
		if ch.CurrentState != nil {
			next = ch.CurrentState.Name
		}
	}
	c.log.Info().Str("instance", c.id).Str("state", string(next)).Msg("instance stop requested")
	return true, nil
}

// StopWithGrace stops the instance, asking first unless auto is set. The
// instance keeps running only on an explicit "n"; a timeout, missing input or
// a read error all stop it.
func (c *Controller) StopWithGrace(ctx context.Context, timeout time.Duration, auto bool) (bool, error) {
	if !auto {
		q := fmt.Sprintf("Stop instance %s? Stopping in %s unless you answer n", c.id, timeout)
		if !c.prompt.Confirm(ctx, q, true, timeout) {
			c.log.Info().Str("instance", c.id).Msg("instance left running")
			return false, nil
		}
	}
	return c.Stop(ctx)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
