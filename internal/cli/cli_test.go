package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ntfyRecorder struct {
	mu     sync.Mutex
	bodies []string
	auth   []string
}

func (n *ntfyRecorder) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.bodies)
}

func newNtfy(t *testing.T) *ntfyRecorder {
	t.Helper()
	rec := &ntfyRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.bodies = append(rec.bodies, string(body))
		rec.auth = append(rec.auth, r.Header.Get("Authorization"))
		rec.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	t.Setenv("FACSIMILAB_NOTIFY_URL", srv.URL+"/facsimilab-build")
	return rec
}

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func newProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	write(t, root, "token.secrets", "NTFY_DRPM_TOKEN=abc\n")
	write(t, root, "parameters/build_parameters", "build_base=true\nbuild_main=true\nbuild_full=true\ngenerate_conda_lock=false\nbuild_python_images=false\n")
	write(t, root, "parameters/quarto_version", "quarto_version=1.6.1\n")
	return root
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestLogCommandNotifiesOnWarn(t *testing.T) {
	ntfy := newNtfy(t)
	root := newProject(t)

	stdout, _, err := run(t, "--root", root, "log", "warning", "disk", "almost", "full")
	require.NoError(t, err)

	assert.Contains(t, stdout, "[WARN] disk almost full")
	require.Equal(t, 1, ntfy.count())
	assert.Contains(t, ntfy.bodies[0], "[WARN] disk almost full")
	assert.Equal(t, "Bearer abc", ntfy.auth[0])

	data, err := os.ReadFile(filepath.Join(root, "log", "docker-build.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[WARN] disk almost full")
}

func TestLogCommandInfoDoesNotNotify(t *testing.T) {
	ntfy := newNtfy(t)
	root := newProject(t)

	_, _, err := run(t, "--root", root, "log", "INFO", "starting")
	require.NoError(t, err)
	assert.Equal(t, 0, ntfy.count())
}

func TestMissingTokenWarnsAndStillNotifies(t *testing.T) {
	ntfy := newNtfy(t)
	root := t.TempDir()

	_, _, err := run(t, "--root", root, "log", "error", "boom")
	require.NoError(t, err)

	require.Equal(t, 2, ntfy.count())
	assert.Contains(t, ntfy.bodies[0], "[WARN] Notification token not loaded")
	assert.Contains(t, ntfy.bodies[1], "[ERROR] boom")
	assert.Equal(t, "Bearer", ntfy.auth[1][:6])
}

func TestVersionCommandPrintsFileVersion(t *testing.T) {
	newNtfy(t)
	root := newProject(t)
	write(t, root, "docker/image_version.txt", "v2.3.4\n")

	stdout, _, err := run(t, "--root", root, "version")
	require.NoError(t, err)
	assert.Equal(t, "v2.3.4\n", stdout)
}

func TestVersionCommandWritesRelease(t *testing.T) {
	newNtfy(t)
	root := newProject(t)

	repo, err := git.PlainInit(root, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("parameters")
	require.NoError(t, err)
	_, err = wt.Commit("feat: first images", &git.CommitOptions{
		Author: &object.Signature{Name: "builder", Email: "builder@example.com", When: time.Unix(1700000000, 0)},
	})
	require.NoError(t, err)

	stdout, _, err := run(t, "--root", root, "version")
	require.NoError(t, err)
	assert.Equal(t, "v1.0.0\n", stdout)

	data, err := os.ReadFile(filepath.Join(root, "docker", "image_version.txt"))
	require.NoError(t, err)
	assert.Equal(t, "v1.0.0", strings.TrimSpace(string(data)))
}

func TestBuildDryRun(t *testing.T) {
	ntfy := newNtfy(t)
	root := newProject(t)

	stdout, _, err := run(t, "--root", root, "--dry-run", "build")
	require.NoError(t, err)

	assert.Contains(t, stdout, "[DRY RUN] docker buildx build")
	assert.Contains(t, stdout, "FacsimiLab Build Summary")
	assert.Contains(t, stdout, "Status                : succeeded")
	assert.Equal(t, 0, ntfy.count())

	env, err := godotenv.Read(filepath.Join(root, "docker", ".env"))
	require.NoError(t, err)
	assert.Equal(t, "dev", env["IMAGE_VERSION"])
	assert.Equal(t, "sha256:dry-run", env["BASE_IMAGE_SHA"])
	assert.Equal(t, "sha256:dry-run", env["FACSIMILAB_FULL_SHA"])

	v, err := os.ReadFile(filepath.Join(root, "docker", "image_version.txt"))
	require.NoError(t, err)
	assert.Equal(t, "dev\n", string(v))

	prom, err := os.ReadFile(filepath.Join(root, "log", "build-metrics.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(prom), "facsimilab_last_run_success 1")
}

func TestBuildFailureIsLoggedOnce(t *testing.T) {
	ntfy := newNtfy(t)
	root := newProject(t)
	write(t, root, "blocker", "")
	t.Setenv("FACSIMILAB_PATHS_ENV_FILE", filepath.Join(root, "blocker", ".env"))

	stdout, _, err := run(t, "--root", root, "--dry-run", "build")
	require.Error(t, err)
	assert.True(t, Logged(err))

	assert.Contains(t, stdout, "[ERROR] Build failed: stage setup: env file")
	require.Equal(t, 1, ntfy.count())
	assert.Contains(t, ntfy.bodies[0], "[ERROR] Build failed")

	prom, err := os.ReadFile(filepath.Join(root, "log", "build-metrics.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(prom), "facsimilab_last_run_success 0")
}

func TestSmokeDryRun(t *testing.T) {
	newNtfy(t)
	root := newProject(t)

	stdout, _, err := run(t, "--root", root, "--dry-run", "smoke")
	require.NoError(t, err)
	assert.Contains(t, stdout, "[DRY RUN] would run test_gpu.sh in facsimilab/facsimilab-main:latest")
	assert.Contains(t, stdout, "[DRY RUN] would run test_python.sh in facsimilab/facsimilab-full:latest")
}

func TestConfigRejectsNoOutput(t *testing.T) {
	newNtfy(t)
	root := newProject(t)

	_, _, err := run(t, "--root", root, "--push=false", "build")
	require.Error(t, err)
	assert.False(t, Logged(err))
}

func TestBuildRejectsLoadOnly(t *testing.T) {
	newNtfy(t)
	root := newProject(t)

	_, _, err := run(t, "--root", root, "--push=false", "--load", "build")
	require.Error(t, err)
	assert.True(t, Logged(err))
	assert.Contains(t, err.Error(), "stage setup: outputs")
	assert.NoFileExists(t, filepath.Join(root, "docker", ".env"))
}
