package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jrsteele09/teamtrack/auth"
	"github.com/jrsteele09/teamtrack/dashboard"
	"github.com/jrsteele09/teamtrack/internal/config"
	"github.com/jrsteele09/teamtrack/metrics"
	"github.com/jrsteele09/teamtrack/projects"
	"github.com/jrsteele09/teamtrack/session"
	"github.com/jrsteele09/teamtrack/tasks"
	"github.com/jrsteele09/teamtrack/transport"
	"github.com/jrsteele09/teamtrack/users/userclient"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// app is everything a command needs for one invocation.
type app struct {
	logger   zerolog.Logger
	registry *prometheus.Registry
	in       io.Reader
	out      io.Writer
	errOut   io.Writer

	store     *session.Store
	api       *transport.Client
	auth      *auth.Service
	users     *userclient.Client
	projects  *projects.Client
	tasks     *tasks.Client
	dashboard *dashboard.Client
}

func newApp(c config.Config, logger zerolog.Logger, in io.Reader, out, errOut io.Writer) (*app, error) {
	backend, err := sessionBackend(c)
	if err != nil {
		return nil, err
	}
	store := session.NewStore(backend, session.WithLogger(logger))

	registry := prometheus.NewRegistry()
	options := []transport.Option{
		transport.WithTimeout(c.GetHTTPTimeout()),
		transport.WithMetrics(metrics.NewCollector(registry)),
		transport.WithLogger(logger),
	}
	if limit := c.GetRateLimit(); limit > 0 {
		options = append(options, transport.WithRateLimit(rate.Limit(limit), c.GetRateBurst()))
	}
	api := transport.New(c.GetAPIBaseURL(), store, options...)

	svc, err := auth.NewService(api, auth.WithLogger(logger))
	if err != nil {
		return nil, errors.Wrap(err, "[newApp] auth.NewService")
	}

	return &app{
		logger:    logger,
		registry:  registry,
		in:        in,
		out:       out,
		errOut:    errOut,
		store:     store,
		api:       api,
		auth:      svc,
		users:     userclient.NewClient(api),
		projects:  projects.NewClient(api),
		tasks:     tasks.NewClient(api),
		dashboard: dashboard.NewClient(api),
	}, nil
}

// sessionBackend stores the session under the configured directory, sealed
// when a session key is configured.
func sessionBackend(c config.SessionConfig) (session.Backend, error) {
	files, err := session.NewFileBackend(c.GetSessionDir())
	if err != nil {
		return nil, errors.Wrap(err, "[sessionBackend] NewFileBackend")
	}
	key := c.GetSessionKey()
	if key == "" {
		return files, nil
	}
	sealed, err := session.NewSealedBackend(files, key)
	if err != nil {
		return nil, errors.Wrap(err, "[sessionBackend] NewSealedBackend")
	}
	return sealed, nil
}

func (a *app) execute(ctx context.Context, cmd *command, args []string) error {
	switch cmd.access {
	case accessMember:
		if err := a.auth.Authorize(false); err != nil {
			return err
		}
	case accessAdmin:
		if err := a.auth.Authorize(true); err != nil {
			return err
		}
	}
	a.logger.Debug().Str("command", cmd.path).Msg("running command")
	return cmd.run(ctx, a, args)
}

// report prints err for the user and returns the exit code for it.
func (a *app) report(err error) int {
	code := exitCode(err)
	switch code {
	case exitOK:
		return code
	case exitUsage:
		fmt.Fprintf(a.errOut, "%v\n", err)
	case exitLogin:
		if errors.Is(err, auth.ErrLoginRequired) {
			fmt.Fprintln(a.errOut, "Not logged in. Run `teamtrack login` first.")
		} else {
			fmt.Fprintln(a.errOut, "Session expired. Please log in again.")
		}
	case exitForbidden:
		if errors.Is(err, auth.ErrAdminRequired) {
			fmt.Fprintln(a.errOut, "This command requires the Admin role.")
		} else {
			fmt.Fprintf(a.errOut, "Permission denied: %v\n", err)
		}
	default:
		printError(a.errOut, err)
	}
	a.logger.Debug().Err(err).Int("exit_code", code).Msg("command failed")
	return code
}

// logMetrics writes the request and refresh metrics gathered during the run
// at debug level.
func (a *app) logMetrics() {
	if a.logger.GetLevel() > zerolog.DebugLevel {
		return
	}
	families, err := a.registry.Gather()
	if err != nil {
		a.logger.Debug().Err(err).Msg("gather metrics")
		return
	}
	for _, family := range families {
		for _, m := range family.GetMetric() {
			event := a.logger.Debug().Str("metric", family.GetName())
			for _, label := range m.GetLabel() {
				event = event.Str(label.GetName(), label.GetValue())
			}
			switch {
			case m.GetCounter() != nil:
				event = event.Float64("value", m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				event = event.
					Uint64("count", m.GetHistogram().GetSampleCount()).
					Float64("sum", m.GetHistogram().GetSampleSum())
			}
			event.Msg("metric")
		}
	}
}
