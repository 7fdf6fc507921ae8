package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"facsimilab/internal/version"
)

func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Resolve and print the image version of the next build",
		Long: `Resolve the image version the way a build does: an automated release
computed from conventional commits since the last tag, else the version
file, else "dev". A release version is written to the version file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := version.NewResolver(s.cfg.Root, s.cfg.Paths.VersionFile).Resolve(cmd.Context())
			if err != nil {
				return s.fail("Version resolution failed: %v", err)
			}
			if res.ReleaseErr != nil {
				s.log.Warnf("Automated release failed, falling back to %s: %v", res.Source, res.ReleaseErr)
			}
			if res.Source == version.SourceRelease {
				if err := version.Persist(s.cfg.Paths.VersionFile, res.Version); err != nil {
					return s.fail("Version resolution failed: %v", err)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Version)
			return nil
		},
	}
}
