package smoke

import (
	"bytes"
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"facsimilab/internal/docker"
)

// ContainerRunner is the part of the docker client the runner needs.
type ContainerRunner interface {
	Pull(ctx context.Context, ref string) error
	Run(ctx context.Context, spec docker.RunSpec, out io.Writer) (int, error)
}

// Result is the outcome of one script in one image.
type Result struct {
	Image    string
	Script   string
	File     string
	ExitCode int
	Output   string
}

// Name is the result's file stem, e.g. facsimilab-main-test_gpu.
func (r Result) Name() string {
	return resultName(r.Image, r.Script)
}

// Runner executes the configured scripts image by image.
type Runner struct {
	Containers ContainerRunner
	ResultDir  string
	Logf       func(format string, args ...any)
}

func (r *Runner) logf(format string, args ...any) {
	if r.Logf != nil {
		r.Logf(format, args...)
	}
}

// Run pulls every image and runs every script in it. The first pull error,
// container error or non-zero exit stops the run; results gathered so far
// are returned with the error.
func (r *Runner) Run(ctx context.Context, cfg Config) ([]Result, error) {
	scripts, err := filepath.Abs(cfg.ScriptDir)
	if err != nil {
		return nil, errors.Wrap(err, "resolve script directory")
	}
	if err := os.MkdirAll(r.ResultDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create result directory")
	}

	var results []Result
	for _, img := range cfg.Images {
		r.logf("Pulling %s", img)
		if err := r.Containers.Pull(ctx, img); err != nil {
			return results, err
		}
		for _, script := range cfg.Scripts {
			res, err := r.runScript(ctx, cfg, scripts, img, script)
			results = append(results, res)
			if err != nil {
				return results, err
			}
		}
	}
	return results, nil
}

func (r *Runner) runScript(ctx context.Context, cfg Config, scriptDir, img, script string) (Result, error) {
	res := Result{
		Image:  img,
		Script: script,
		File:   filepath.Join(r.ResultDir, resultName(img, script)+".txt"),
	}

	f, err := os.Create(res.File)
	if err != nil {
		return res, errors.Wrapf(err, "create result file %s", res.File)
	}
	defer f.Close()

	var buf bytes.Buffer
	spec := docker.RunSpec{
		Image:  img,
		Cmd:    []string{"bash", path.Join("/scripts", script)},
		GPUs:   cfg.gpus(),
		Mounts: [][2]string{{scriptDir, "/scripts"}},
	}
	r.logf("Running %s in %s", script, img)
	code, err := r.Containers.Run(ctx, spec, io.MultiWriter(f, &buf))
	res.ExitCode = code
	res.Output = strings.TrimRight(buf.String(), "\n")
	if err != nil {
		return res, errors.Wrapf(err, "%s in %s", script, img)
	}
	if code != 0 {
		return res, errors.Errorf("%s in %s exited with status %d", script, img, code)
	}
	return res, nil
}

// resultName derives a file stem from the image repository (without
// registry path or tag) and the script name (without extension).
func resultName(img, script string) string {
	repo := img
	if i := strings.LastIndex(repo, "/"); i >= 0 {
		repo = repo[i+1:]
	}
	if i := strings.IndexAny(repo, ":@"); i >= 0 {
		repo = repo[:i]
	}
	return repo + "-" + strings.TrimSuffix(path.Base(script), path.Ext(script))
}
