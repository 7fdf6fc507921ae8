package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"facsimilab/internal/logging"
)

func (a *app) newLogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "log LEVEL MESSAGE...",
		Short: "Write a line to the build log, notifying for WARN and above",
		Long: `Write one timestamped line to stdout and the build log. WARN, ERROR and
CRITICAL lines are also pushed to the notification endpoint. Unknown levels
are logged as UNKNOWN.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.Close()

			s.log.LogContext(cmd.Context(), logging.ParseLevel(args[0]), strings.Join(args[1:], " "))
			return nil
		},
	}
}
