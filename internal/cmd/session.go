package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/premerge/internal/config"
	"github.com/felixgeelhaar/premerge/internal/log"
	"github.com/felixgeelhaar/premerge/internal/phab"
	"github.com/felixgeelhaar/premerge/internal/telemetry"
	"github.com/felixgeelhaar/premerge/internal/version"
)

// session holds what every command needs: the merged configuration, the
// logger and the tracer shutdown hook.
type session struct {
	cfg      *config.Config
	logger   *log.Logger
	shutdown func(context.Context) error
}

// newSession loads the configuration for cmd and sets up logging and
// tracing. Callers must call close.
func newSession(cmd *cobra.Command) (*session, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logCfg := log.DefaultConfig()
	logCfg.Level = log.ParseLevel(cfg.Log.Level)
	logCfg.Format = log.ParseFormat(cfg.Log.Format)
	logCfg.Output = log.NewOutput(cmd.ErrOrStderr())
	logger := log.New(logCfg).With("command", cmd.Name())
	log.SetDefaultLogger(logger)

	tcfg := telemetry.ForEndpoint(cfg.Telemetry.Endpoint)
	tcfg.Insecure = cfg.Telemetry.Insecure
	tcfg.ServiceVersion = version.GetInfo().Version
	tcfg.Attributes = map[string]string{
		"buildkite.build_number": cfg.Buildkite.BuildNumber,
		"buildkite.job_id":       cfg.Buildkite.JobID,
		"buildkite.pipeline":     cfg.Buildkite.Pipeline,
		"phabricator.diff_id":    cfg.Target.DiffID,
	}
	shutdown, err := telemetry.InitProvider(cmd.Context(), tcfg)
	if err != nil {
		logger.WithError(err).Warn("tracing disabled")
		shutdown = func(context.Context) error { return nil }
	}

	return &session{cfg: cfg, logger: logger, shutdown: shutdown}, nil
}

// close flushes pending spans.
func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.shutdown(ctx); err != nil {
		s.logger.WithError(err).Warn("cannot flush traces")
	}
}

// conduit returns a Conduit client for the configured endpoint.
func (s *session) conduit() *phab.Client {
	if s.cfg.Conduit.Token == "" && !s.cfg.Conduit.DryRun {
		s.logger.Warn("CONDUIT_TOKEN is not set, Phabricator will reject the requests")
	}
	return phab.NewClient(phab.Options{
		BaseURL:   s.cfg.Conduit.URL,
		Token:     s.cfg.Conduit.Token,
		DryRun:    s.cfg.Conduit.DryRun,
		RetryMax:  s.cfg.Conduit.RetryMax,
		Timeout:   s.cfg.Conduit.Timeout,
		UserAgent: version.GetInfo().UserAgent(),
		Logger:    s.logger,
	})
}
