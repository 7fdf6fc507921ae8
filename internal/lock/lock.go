// Package lock pins the Python environment with conda-lock.
package lock

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"facsimilab/internal/executil"
)

// Options configure one conda-lock invocation.
type Options struct {
	Command     string // conda-lock executable
	Environment string // python-env/environment.yml
	Lockfile    string // python-env/conda-lock.yml
	LogFile     string // transcript of the resolver output
	Platform    string // e.g. linux-64
	CUDA        string // virtual __cuda package version
	Dir         string // working directory
}

// Args renders the conda-lock argument list.
func (o Options) Args() []string {
	args := []string{"lock", "--mamba",
		"--file", o.Environment,
		"--platform", o.Platform,
		"--lockfile", o.Lockfile,
	}
	if o.CUDA != "" {
		args = append(args, "--with-cuda", o.CUDA)
	}
	return args
}

// Result summarises a generated lock.
type Result struct {
	Lockfile   string
	CondaSpecs int
	PipSpecs   int
	Transcript string
}

// Generate validates the environment file and runs conda-lock, teeing its
// output to the transcript file.
func Generate(ctx context.Context, r executil.Runner, o Options) (Result, error) {
	res := Result{Lockfile: o.Lockfile, Transcript: o.LogFile}

	env, err := ReadEnvironment(o.Environment)
	if err != nil {
		return res, err
	}
	conda, pip, err := env.Packages()
	if err != nil {
		return res, err
	}
	res.CondaSpecs, res.PipSpecs = len(conda), len(pip)

	if o.Command == "" {
		o.Command = "conda-lock"
	}
	if err := os.MkdirAll(filepath.Dir(o.LogFile), 0o755); err != nil {
		return res, errors.Wrap(err, "create lock log directory")
	}
	transcript, err := os.Create(o.LogFile)
	if err != nil {
		return res, errors.Wrap(err, "create lock log")
	}
	defer transcript.Close()

	c := executil.Command(o.Command, o.Args()...)
	c.Dir = o.Dir
	c.Tee = transcript
	if err := r.Run(ctx, c); err != nil {
		return res, errors.Wrap(err, "conda-lock")
	}
	return res, nil
}
