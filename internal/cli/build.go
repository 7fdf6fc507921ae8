package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"facsimilab/internal/config"
	"facsimilab/internal/docker"
	"facsimilab/internal/executil"
	"facsimilab/internal/lock"
	"facsimilab/internal/pipeline"
	"facsimilab/internal/runtime"
	"facsimilab/internal/version"
)

func (a *app) newBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build the base, main and full images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.Close()
			return s.build(cmd)
		},
	}
}

func (s *session) runner(cmd *cobra.Command) *executil.Exec {
	return &executil.Exec{
		DryRun: s.cfg.DryRun,
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
		Logf:   s.log.Infof,
	}
}

func credentials(cfg config.Config) docker.Credentials {
	return docker.Credentials{Server: cfg.Registry.Server, User: cfg.Registry.User, Password: cfg.Registry.Password}
}

func lockOptions(cfg config.Config) lock.Options {
	return lock.Options{
		Command:     cfg.Lock.Command,
		Environment: cfg.Paths.CondaEnv,
		Lockfile:    cfg.Paths.CondaLock,
		LogFile:     cfg.Paths.CondaLockLog,
		Platform:    cfg.Lock.Platform,
		CUDA:        cfg.Lock.CUDA,
		Dir:         cfg.Root,
	}
}

// build runs the pipeline and is the single place a failed run is reported:
// the error is logged at ERROR, the metrics and summary still get written.
func (s *session) build(cmd *cobra.Command) error {
	cfg := s.cfg
	settings := pipeline.LoadSettings(cfg, s.log)
	runner := s.runner(cmd)
	creds := credentials(cfg)

	inspector, err := docker.NewInspector(creds, cfg.DryRun)
	if err != nil {
		return s.fail("Build failed: %v", err)
	}

	p := &pipeline.Pipeline{
		Settings: settings,
		Log:      s.log,
		Builder:  &docker.Builder{Runner: runner, Logf: s.log.Debugf},
		Digests:  inspector,
		Versions: version.NewResolver(cfg.Root, cfg.Paths.VersionFile),
		Lock: func(ctx context.Context) (lock.Result, error) {
			return lock.Generate(ctx, runner, lockOptions(cfg))
		},
		Metrics: s.metrics,
	}
	if creds.Configured() {
		p.Login = func(ctx context.Context) error {
			return docker.Login(ctx, runner, creds)
		}
	}

	rc, runErr := p.Run(cmd.Context())
	if runErr != nil {
		s.log.Errorf("Build failed: %v", runErr)
	}

	runtime.PrintSummary(cmd.OutOrStdout(), runtime.LoadContext(cfg.DryRun), settings, rc, runErr)

	s.metrics.RunFinished(runErr == nil, time.Now())
	if err := s.metrics.WriteTextfile(cfg.Paths.MetricsFile); err != nil {
		s.log.Warnf("Could not write metrics: %v", err)
	}

	if runErr != nil {
		return loggedError{runErr}
	}
	return nil
}
