package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"modelctl/internal/config"
	"modelctl/internal/httpapi"
	"modelctl/internal/manager"
	"modelctl/internal/prompt"
	"modelctl/internal/shutdown"
	"modelctl/pkg/types"
)

// sessionRegistry is the part of the manager served over the control API.
type sessionRegistry interface {
	Models() []types.ModelDescriptor
	Status(ctx context.Context) types.StatusResponse
	StartSession(ctx context.Context, req manager.StartRequest) (string, error)
	StopSession(ctx context.Context, id string) error
}

// controlService adapts the registry to httpapi.Service. Launches requested over
// the API never prompt; stop-all runs the shutdown coordinator's single pass.
type controlService struct {
	reg      sessionRegistry
	shutdown func(ctx context.Context, reason string) (bool, error)
}

func (s controlService) Models() []types.ModelDescriptor { return s.reg.Models() }

func (s controlService) Status(ctx context.Context) types.StatusResponse { return s.reg.Status(ctx) }

func (s controlService) StartSession(ctx context.Context, req types.StartSessionRequest) (string, error) {
	return s.reg.StartSession(ctx, manager.StartRequest{ModelID: req.Model, PreferredPort: req.Port, NonInteractive: true})
}

func (s controlService) StopSession(ctx context.Context, id string) error {
	return s.reg.StopSession(ctx, id)
}

func (s controlService) StopAll(ctx context.Context) error {
	_, err := s.shutdown(ctx, "stop-all requested")
	return err
}

// serveControl listens on addr and serves h in the background.
func serveControl(addr string, h http.Handler, log zerolog.Logger) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("control API stopped")
		}
	}()
	log.Info().Str("addr", ln.Addr().String()).Msg("control API listening")
	return srv, nil
}

func runStart(ctx context.Context, opts *Options, modelID string, port int) error {
	cfg, err := fnLoadConfig(opts)
	if err != nil {
		return err
	}
	if c := fnControllerClient(ctx, opts, cfg); c != nil {
		return delegateStart(ctx, opts.out(), c, prompt.Stdio(), cfg, modelID, port)
	}
	a, err := fnNewApp(ctx, opts, cfg)
	if err != nil {
		return err
	}
	return runController(ctx, opts, a, modelID, port)
}

// delegateStart hands a launch to the running controller. The model is chosen
// here when several are configured, since the controller cannot ask.
func delegateStart(ctx context.Context, out io.Writer, c *httpapi.Client, p *prompt.Prompter, cfg *config.Config, modelID string, port int) error {
	if modelID == "" {
		models := cfg.Descriptors()
		if len(models) > 1 && p.Interactive() {
			names := make([]string, len(models))
			for i, m := range models {
				names[i] = fmt.Sprintf("%s - %s", m.ID, m.Name)
			}
			i, err := p.Select(ctx, "Available models:", names)
			if err != nil {
				return err
			}
			modelID = models[i].ID
		}
	}
	id, err := c.StartSession(ctx, types.StartSessionRequest{Model: modelID, Port: port})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Session %s started by the running controller; its logs appear in that terminal.\n", id)
	printHints(out)
	return nil
}

// runController makes this process the controller: it starts the first
// session, serves the control API and blocks until the cleanup pass ran.
func runController(ctx context.Context, opts *Options, a *app, modelID string, port int) error {
	coord := shutdown.New(a.mgr, a.inst, a.log)
	stop := coord.Install()
	defer stop()
	defer coord.Shutdown(context.Background(), "exit")

	sctx, cancel := coord.Bind(ctx)
	id, err := a.mgr.StartSession(sctx, manager.StartRequest{ModelID: modelID, PreferredPort: port, NonInteractive: !a.prompt.Interactive()})
	cancel()
	if err != nil {
		return err
	}
	out := opts.out()
	if s, ok := a.mgr.Lookup(id); ok {
		fmt.Fprintf(out, "\nSession %s started\n  model: %s (%s)\n  url:   %s\n", s.ID, s.ModelName, s.ModelID, s.URL())
	}
	printHints(out)

	if addr := controlAddr(opts, a.cfg); addr != "" {
		log := a.log.With().Str("component", "control").Logger()
		httpapi.SetLogger(log)
		httpapi.Configure(httpapi.ControlOptions{CORSOrigins: a.cfg.CORSOrigins})
		srv, err := serveControl(addr, httpapi.NewMux(controlService{reg: a.mgr, shutdown: coord.Shutdown}), log)
		if err != nil {
			a.log.Warn().Err(err).Str("addr", addr).Msg("control API unavailable, other modelctl invocations cannot reach this controller")
		} else {
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = srv.Shutdown(sctx)
			}()
		}
	}

	<-coord.Done()
	a.mgr.Wait()
	return nil
}

func printHints(out io.Writer) {
	fmt.Fprintln(out, "  - start another model: modelctl start [model_id]")
	fmt.Fprintln(out, "  - status:              modelctl status")
	fmt.Fprintln(out, "  - stop a session:      modelctl stop-session <session_id>")
	fmt.Fprintln(out, "  - debug ports:         modelctl debug-ports")
}
