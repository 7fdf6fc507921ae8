// Package cli wires configuration, logging and notifications into the
// facsimilab commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"facsimilab/internal/config"
	"facsimilab/internal/logging"
	"facsimilab/internal/metrics"
	"facsimilab/internal/params"
	"facsimilab/pkg/ntfy"
)

var (
	// These will be set by the build process
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// loggedError is an error the run's Logger has already reported at ERROR.
type loggedError struct{ err error }

func (e loggedError) Error() string { return e.err.Error() }
func (e loggedError) Unwrap() error { return e.err }

// Logged reports whether err was already written to the log, so the caller
// only has to set the exit status.
func Logged(err error) bool {
	var le loggedError
	return errors.As(err, &le)
}

type app struct {
	v       *viper.Viper
	cfgFile string
	noColor bool
}

// session is what every command gets once configuration is loaded.
type session struct {
	cfg     config.Config
	log     *logging.Logger
	metrics *metrics.Recorder
}

func (s *session) Close() error { return s.log.Close() }

// fail logs err at ERROR, which also notifies, and marks it as reported.
func (s *session) fail(format string, err error) error {
	s.log.Errorf(format, err)
	return loggedError{err}
}

// NewRootCmd builds the command tree. Each call returns an independent tree.
func NewRootCmd() *cobra.Command {
	a := &app{v: config.New("")}

	root := &cobra.Command{
		Use:   "facsimilab",
		Short: "Build, lock and smoke-test the FacsimiLab container images",
		Long: `facsimilab builds the base, main and full FacsimiLab images in order,
chaining each image's registry digest into the next build.

Use this CLI to:
- Build and push the image stages
- Resolve the next image version
- Pin the Python environment with conda-lock
- Smoke-test published images on a GPU runner`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if a.noColor {
				color.NoColor = true
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is <root>/facsimilab.yaml)")
	pf.String("root", ".", "project root directory")
	pf.Bool("dry-run", false, "print commands instead of running them")
	pf.String("repo-prefix", "facsimilab", "image repository prefix")
	pf.String("base-image", "", "upstream vendor image")
	pf.String("platform", "linux/amd64", "target platform")
	pf.Bool("push", true, "push images to the registry")
	pf.Bool("load", false, "also load images into the local image store")
	pf.Bool("tag-latest", true, "also tag images as latest")
	pf.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	// Bind flags to viper
	for key, flag := range map[string]string{
		"root":        "root",
		"dry_run":     "dry-run",
		"repo_prefix": "repo-prefix",
		"base_image":  "base-image",
		"platform":    "platform",
		"push":        "push",
		"load":        "load",
		"tag_latest":  "tag-latest",
	} {
		_ = a.v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(
		a.newBuildCmd(),
		a.newVersionCmd(),
		a.newLockCmd(),
		a.newSmokeCmd(),
		a.newLogCmd(),
	)
	return root
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// open loads the configuration and sets up logging to logOut and the log
// file. A missing token only warns: the notification is still attempted.
func (a *app) open(cmd *cobra.Command, logOut io.Writer) (*session, error) {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(a.v.GetString("root"))
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return nil, err
	}

	log, err := logging.Open(cfg.Paths.LogFile, logging.Options{
		Stdout: logOut,
		Stderr: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}
	rec := metrics.New()
	log.OnNotify = rec.Notification

	token, tokenErr := params.LoadToken(cfg.Paths.Secrets)
	client, err := ntfy.NewClient(ntfy.Options{
		URL:     cfg.Notify.URL,
		Token:   token,
		Title:   cfg.Notify.Title,
		Timeout: cfg.Notify.Timeout,
	})
	if err != nil {
		log.Warnf("Notifications disabled: %v", err)
	} else {
		log.SetNotifier(client)
	}
	if tokenErr != nil {
		log.Warnf("Notification token not loaded (%v); sending without it", tokenErr)
	}

	return &session{cfg: cfg, log: log, metrics: rec}, nil
}
