package lock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facsimilab/internal/executil"
)

const sampleEnv = `name: facsimilab
channels:
  - conda-forge
  - nvidia
dependencies:
  - python=3.11
  - numpy>=1.26
  - pytorch-gpu
  - pip
  - pip:
      - quartodoc
      - jupyterlab-quarto==0.3.*
`

type fakeRunner struct {
	cmds []executil.Cmd
	err  error
}

func (f *fakeRunner) Run(_ context.Context, c executil.Cmd) error {
	f.cmds = append(f.cmds, c)
	if c.Tee != nil {
		_, _ = c.Tee.Write([]byte("Locking dependencies for ['linux-64']...\n"))
	}
	return f.err
}

func setup(t *testing.T, env string) Options {
	t.Helper()
	dir := t.TempDir()
	envPath := filepath.Join(dir, "python-env", "environment.yml")
	require.NoError(t, os.MkdirAll(filepath.Dir(envPath), 0o755))
	require.NoError(t, os.WriteFile(envPath, []byte(env), 0o644))
	return Options{
		Environment: envPath,
		Lockfile:    filepath.Join(dir, "python-env", "conda-lock.yml"),
		LogFile:     filepath.Join(dir, "log", "conda-lock.log"),
		Platform:    "linux-64",
		CUDA:        "12.0",
		Dir:         dir,
	}
}

func TestReadEnvironmentPackages(t *testing.T) {
	o := setup(t, sampleEnv)
	env, err := ReadEnvironment(o.Environment)
	require.NoError(t, err)
	assert.Equal(t, "facsimilab", env.Name)
	assert.Equal(t, []string{"conda-forge", "nvidia"}, env.Channels)

	conda, pip, err := env.Packages()
	require.NoError(t, err)
	assert.Equal(t, []string{"python=3.11", "numpy>=1.26", "pytorch-gpu", "pip"}, conda)
	assert.Equal(t, []string{"quartodoc", "jupyterlab-quarto==0.3.*"}, pip)
}

func TestReadEnvironmentRejectsEmpty(t *testing.T) {
	o := setup(t, "name: x\nchannels: [conda-forge]\n")
	_, err := ReadEnvironment(o.Environment)
	assert.Error(t, err)

	o = setup(t, "name: x\ndependencies: [python]\n")
	_, err = ReadEnvironment(o.Environment)
	assert.Error(t, err)
}

func TestGenerateRunsCondaLock(t *testing.T) {
	o := setup(t, sampleEnv)
	r := &fakeRunner{}

	res, err := Generate(context.Background(), r, o)
	require.NoError(t, err)
	assert.Equal(t, 4, res.CondaSpecs)
	assert.Equal(t, 2, res.PipSpecs)

	require.Len(t, r.cmds, 1)
	assert.Equal(t, "conda-lock", r.cmds[0].Name)
	assert.Equal(t, []string{
		"lock", "--mamba",
		"--file", o.Environment,
		"--platform", "linux-64",
		"--lockfile", o.Lockfile,
		"--with-cuda", "12.0",
	}, r.cmds[0].Args)
	assert.Equal(t, o.Dir, r.cmds[0].Dir)

	transcript, err := os.ReadFile(o.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(transcript), "Locking dependencies")
}

func TestGeneratePropagatesFailure(t *testing.T) {
	o := setup(t, sampleEnv)
	r := &fakeRunner{err: errors.New("exit 1")}

	_, err := Generate(context.Background(), r, o)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conda-lock")
}
