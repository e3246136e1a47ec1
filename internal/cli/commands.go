package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"modelctl/internal/config"
	"modelctl/internal/manager"
	"modelctl/internal/prompt"
	"modelctl/internal/shutdown"
	"modelctl/pkg/types"
)

// Command actions and the collaborators they construct; tests replace them.
var (
	fnStart       = runStart
	fnStopSession = runStopSession
	fnStopAll     = runStopAll
	fnStatus      = runStatus
	fnModels      = runModels
	fnDebugPorts  = runDebugPorts
	fnKillPorts   = runKillPorts
	fnAddModel    = runAddModel
	fnTemplate    = runTemplate

	fnLoadConfig       = loadConfig
	fnNewApp           = newApp
	fnControllerClient = controllerClient
	fnPrompter         = prompt.Stdio
	fnNow              = time.Now
)

func runStopSession(ctx context.Context, opts *Options, id string) error {
	cfg, err := fnLoadConfig(opts)
	if err != nil {
		return err
	}
	if c := fnControllerClient(ctx, opts, cfg); c != nil {
		if err := c.StopSession(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(opts.out(), "Session %s stopped\n", id)
		return nil
	}
	// Without a controller this process owns an empty registry.
	reg := manager.NewWithConfig(manager.ManagerConfig{Models: cfg.Descriptors(), Logger: newLogger(opts, cfg)})
	if err := reg.StopSession(ctx, id); err != nil {
		return fmt.Errorf("%w (no controller is running)", err)
	}
	return nil
}

func runStopAll(ctx context.Context, opts *Options) error {
	cfg, err := fnLoadConfig(opts)
	if err != nil {
		return err
	}
	if c := fnControllerClient(ctx, opts, cfg); c != nil {
		if err := c.StopAll(ctx); err != nil {
			return err
		}
		fmt.Fprintln(opts.out(), "All sessions stopped; the controller is exiting")
		return nil
	}
	a, err := fnNewApp(ctx, opts, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintln(opts.out(), "No controller is running, no sessions to stop")
	_, err = shutdown.New(a.mgr, a.inst, a.log).Shutdown(ctx, "stop-all")
	return err
}

func runStatus(ctx context.Context, opts *Options) error {
	cfg, err := fnLoadConfig(opts)
	if err != nil {
		return err
	}
	var st types.StatusResponse
	if c := fnControllerClient(ctx, opts, cfg); c != nil {
		if st, err = c.Status(ctx); err != nil {
			return err
		}
	} else {
		a, err := fnNewApp(ctx, opts, cfg)
		if err != nil {
			return err
		}
		st = a.mgr.Status(ctx)
	}
	return renderStatus(opts.out(), st, fnNow())
}

func runModels(_ context.Context, opts *Options) error {
	cfg, err := fnLoadConfig(opts)
	if err != nil {
		return err
	}
	return renderModels(opts.out(), cfg.Descriptors())
}

func runDebugPorts(ctx context.Context, opts *Options) error {
	cfg, err := fnLoadConfig(opts)
	if err != nil {
		return err
	}
	a, err := fnNewApp(ctx, opts, cfg)
	if err != nil {
		return err
	}
	sessions := a.mgr.SessionPorts()
	if c := fnControllerClient(ctx, opts, cfg); c != nil {
		st, err := c.Status(ctx)
		if err != nil {
			return err
		}
		for _, s := range st.Sessions {
			sessions[s.ID] = s.Port
		}
	}
	return renderDebug(opts.out(), a.ports.Debug(ctx, sessions))
}

func runKillPorts(ctx context.Context, opts *Options, ports []int) error {
	cfg, err := fnLoadConfig(opts)
	if err != nil {
		return err
	}
	a, err := fnNewApp(ctx, opts, cfg)
	if err != nil {
		return err
	}
	res, err := a.ports.KillRemote(ctx, ports)
	if err != nil {
		return err
	}
	if err := renderKill(opts.out(), res); err != nil {
		return err
	}
	failed := 0
	for _, r := range res {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("cleanup failed for %d of %d port(s)", failed, len(res))
	}
	return nil
}

func runAddModel(ctx context.Context, opts *Options) error {
	cfg, err := fnLoadConfig(opts)
	if err != nil {
		return err
	}
	id, err := addModel(ctx, fnPrompter(), cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(opts.out(), "Model %q added to %s\n", id, cfg.Path())
	return nil
}

func runTemplate(opts *Options, format string) error {
	p, err := config.WriteTemplate(filepath.Dir(opts.ConfigPath), format)
	if err != nil {
		return err
	}
	fmt.Fprintf(opts.out(), "Template written to %s\n", p)
	fmt.Fprintln(opts.out(), "Fill in the credentials, instance id and model paths, then rename it (drop .template).")
	return nil
}
