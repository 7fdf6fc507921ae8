package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"facsimilab/internal/docker"
	"facsimilab/internal/runtime"
	"facsimilab/internal/smoke"
	"facsimilab/internal/version"
)

func (a *app) newSmokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "smoke",
		Short: "Run the verification scripts inside the published images",
		Long: `Pull the published main and full images, run each verification script in
an ephemeral GPU container, write every script's output to the result
directory and append a markdown report to the CI job summary.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.Close()
			return s.smoke(cmd)
		},
	}
}

func (s *session) smoke(cmd *cobra.Command) error {
	cfg := s.cfg
	sc, err := smoke.LoadConfig(cfg.Paths.SmokeConfig, cfg.RepoPrefix)
	if err != nil {
		return s.fail("Smoke tests failed: %v", err)
	}
	if !filepath.IsAbs(sc.ScriptDir) {
		sc.ScriptDir = filepath.Join(cfg.Root, sc.ScriptDir)
	}

	if cfg.DryRun {
		for _, img := range sc.Images {
			for _, script := range sc.Scripts {
				s.log.Infof("[DRY RUN] would run %s in %s", script, img)
			}
		}
		return nil
	}

	containers, err := docker.NewContainerRunner()
	if err != nil {
		return s.fail("Smoke tests failed: %v", err)
	}
	r := &smoke.Runner{Containers: containers, ResultDir: cfg.Paths.SmokeResultDir, Logf: s.log.Infof}
	results, runErr := r.Run(cmd.Context(), sc)

	v, err := version.ReadFile(cfg.Paths.VersionFile)
	if err != nil || v == "" {
		v = version.Default
	}
	rt := runtime.LoadContext(cfg.DryRun)
	if err := smoke.AppendSummary(rt.StepSummary, cmd.OutOrStdout(), v, results); err != nil {
		s.log.Warnf("Could not write job summary: %v", err)
	}

	if runErr != nil {
		return s.fail("Smoke tests failed: %v", runErr)
	}
	s.log.Infof("Smoke tests passed (%d checks)", len(results))
	return nil
}
