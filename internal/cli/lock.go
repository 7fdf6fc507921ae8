package cli

import (
	"github.com/spf13/cobra"

	"facsimilab/internal/lock"
)

func (a *app) newLockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lock",
		Short: "Pin the Python environment with conda-lock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := lock.Generate(cmd.Context(), s.runner(cmd), lockOptions(s.cfg))
			if err != nil {
				return s.fail("Lock generation failed: %v", err)
			}
			s.log.Infof("Locked %d conda and %d pip specs into %s (transcript %s)",
				res.CondaSpecs, res.PipSpecs, res.Lockfile, res.Transcript)
			return nil
		},
	}
}
