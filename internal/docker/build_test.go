package docker

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/docker/docker/api/types/registry"
	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facsimilab/internal/executil"
)

type fakeRunner struct {
	cmds  []executil.Cmd
	stdin []string
	err   error
}

func (f *fakeRunner) Run(_ context.Context, c executil.Cmd) error {
	f.cmds = append(f.cmds, c)
	if c.Stdin != nil {
		b, _ := io.ReadAll(c.Stdin)
		f.stdin = append(f.stdin, string(b))
	}
	return f.err
}

func TestBuildArgs(t *testing.T) {
	from, to := CacheRefs("facsimilab/facsimilab-cache", "main")
	opts := &BuildOptions{
		Dockerfile:   "docker/main/Dockerfile",
		ContextPath:  "docker/main",
		FullRefs:     []string{"facsimilab/facsimilab-main:v1.2.0", "facsimilab/facsimilab-main:dev", "facsimilab/facsimilab-main:dev"},
		Platform:     "linux/amd64",
		CacheFrom:    []string{from},
		CacheTo:      []string{to},
		Push:         true,
		Load:         true,
		MetadataFile: "log/main-metadata.json",
		Labels:       [][2]string{{"org.opencontainers.image.version", "v1.2.0"}, {"empty", ""}},
		BuildArgs:    [][2]string{{"IMAGE_VERSION", "v1.2.0"}, {"BASE_IMAGE", "facsimilab/facsimilab-base@sha256:abc"}},
	}

	args, err := BuildArgs(opts)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"buildx", "build", "--progress=plain",
		"-t", "facsimilab/facsimilab-main:v1.2.0",
		"-t", "facsimilab/facsimilab-main:dev",
		"-f", "docker/main/Dockerfile",
		"--platform", "linux/amd64",
		"--cache-from", "type=registry,ref=facsimilab/facsimilab-cache:main",
		"--cache-to", "type=registry,ref=facsimilab/facsimilab-cache:main,mode=max",
		"--push",
		"--load",
		"--metadata-file", "log/main-metadata.json",
		"--label", "org.opencontainers.image.version=v1.2.0",
		"--build-arg", "IMAGE_VERSION=v1.2.0",
		"--build-arg", "BASE_IMAGE=facsimilab/facsimilab-base@sha256:abc",
		"docker/main",
	}, args)
}

func TestBuildArgsValidation(t *testing.T) {
	_, err := BuildArgs(nil)
	assert.Error(t, err)

	_, err = BuildArgs(&BuildOptions{Push: true})
	assert.Error(t, err)

	_, err = BuildArgs(&BuildOptions{FullRefs: []string{"a/b:c"}})
	assert.Error(t, err, "no outputs")

	_, err = BuildArgs(&BuildOptions{FullRefs: []string{"A/B:c"}, Push: true})
	assert.Error(t, err, "uppercase ref")
}

func TestBuilderBuildRunsBuildx(t *testing.T) {
	dir := t.TempDir()
	df := filepath.Join(dir, "Dockerfile")
	require.NoError(t, os.WriteFile(df, []byte("FROM scratch\n"), 0o644))

	r := &fakeRunner{}
	b := &Builder{Runner: r}
	err := b.Build(context.Background(), &BuildOptions{
		Dockerfile:  df,
		ContextPath: dir,
		FullRefs:    []string{"x/y:dev"},
		Push:        true,
		BuildArgs:   [][2]string{{"NTFY_TOKEN", "secret"}},
	})
	require.NoError(t, err)
	require.Len(t, r.cmds, 1)
	assert.Equal(t, "docker", r.cmds[0].Name)
	assert.Equal(t, []string{"buildx", "build"}, r.cmds[0].Args[:2])
	assert.Contains(t, r.cmds[0].Args, "NTFY_TOKEN=secret")
}

func TestBuilderBuildMissingDockerfile(t *testing.T) {
	r := &fakeRunner{}
	b := &Builder{Runner: r}
	err := b.Build(context.Background(), &BuildOptions{
		Dockerfile:  filepath.Join(t.TempDir(), "nope"),
		ContextPath: t.TempDir(),
		FullRefs:    []string{"x/y:dev"},
		Push:        true,
	})
	require.Error(t, err)
	assert.Empty(t, r.cmds)
}

func TestBuilderBuildDryRunSkipsFilesystemChecks(t *testing.T) {
	r := &fakeRunner{}
	b := &Builder{Runner: r}
	err := b.Build(context.Background(), &BuildOptions{
		Dockerfile: "does/not/exist",
		FullRefs:   []string{"x/y:dev"},
		Push:       true,
		DryRun:     true,
	})
	require.NoError(t, err)
	assert.Len(t, r.cmds, 1)
}

func TestRedactBuildArgs(t *testing.T) {
	in := []string{"--build-arg", "NTFY_TOKEN=abc", "--build-arg", "IMAGE_VERSION=v1", "--label", "TOKEN=x"}
	out := redactBuildArgs(in)
	assert.Equal(t, []string{"--build-arg", "NTFY_TOKEN=REDACTED", "--build-arg", "IMAGE_VERSION=v1", "--label", "TOKEN=x"}, out)
	assert.Equal(t, "NTFY_TOKEN=abc", in[1], "input must not be modified")
}

func TestPlanTags(t *testing.T) {
	img := ImageName("facsimilab/", "facsimilab-base")
	assert.Equal(t, "facsimilab/facsimilab-base", img)

	assert.Equal(t, []string{
		"facsimilab/facsimilab-base:v1.2.0",
		"facsimilab/facsimilab-base:dev",
		"facsimilab/facsimilab-base:latest",
	}, PlanTags(img, "v1.2.0", true))

	// version "dev" collapses into the dev tag
	assert.Equal(t, []string{"facsimilab/facsimilab-base:dev"}, PlanTags(img, "dev", false))
	assert.Equal(t, "facsimilab/facsimilab-base:dev", DevRef(img))
}

func TestCleanTag(t *testing.T) {
	assert.Equal(t, "feature-x", cleanTag(" Feature/X "))
	assert.Equal(t, "v1.0.0-build.1", cleanTag("v1.0.0+build.1"))
	assert.Equal(t, "a-b", cleanTag("a--/b"))
	assert.False(t, validateTag("bad:tag"))
}

func TestLogin(t *testing.T) {
	r := &fakeRunner{}
	err := Login(context.Background(), r, Credentials{Server: "ghcr.io", User: "bot", Password: "pw"})
	require.NoError(t, err)
	require.Len(t, r.cmds, 1)
	assert.Equal(t, []string{"login", "-u", "bot", "--password-stdin", "ghcr.io"}, r.cmds[0].Args)
	assert.Equal(t, []string{"pw"}, r.stdin)

	assert.Error(t, Login(context.Background(), r, Credentials{User: "bot"}))
	assert.Error(t, Login(context.Background(), r, Credentials{Password: "pw"}))
	assert.False(t, Credentials{}.Configured())
}

func TestReadMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "buildx.build.ref": "builder/builder0/abc",
  "containerimage.digest": "sha256:feed",
  "image.name": "facsimilab/facsimilab-base:v1,facsimilab/facsimilab-base:dev"
}`), 0o644))

	md, err := ReadMetadata(path)
	require.NoError(t, err)
	assert.Equal(t, "sha256:feed", md.Digest)
	assert.Equal(t, "builder/builder0/abc", md.BuildRef)

	_, err = ReadMetadata(filepath.Join(t.TempDir(), "none.json"))
	assert.Error(t, err)
}

type fakeDistribution struct {
	digest string
	err    error
	refs   []string
}

func (f *fakeDistribution) DistributionInspect(_ context.Context, ref, _ string) (registry.DistributionInspect, error) {
	f.refs = append(f.refs, ref)
	var info registry.DistributionInspect
	info.Descriptor.Digest = digest.Digest(f.digest)
	return info, f.err
}

func TestInspectorDigest(t *testing.T) {
	fd := &fakeDistribution{digest: "sha256:beef"}
	i := &Inspector{api: fd}

	d, err := i.Digest(context.Background(), "facsimilab/facsimilab-base:dev")
	require.NoError(t, err)
	assert.Equal(t, "sha256:beef", d)
	assert.Equal(t, []string{"facsimilab/facsimilab-base:dev"}, fd.refs)

	i = &Inspector{api: &fakeDistribution{err: errors.New("manifest unknown")}}
	_, err = i.Digest(context.Background(), "x/y:dev")
	assert.ErrorContains(t, err, "manifest unknown")

	i = &Inspector{api: &fakeDistribution{}}
	_, err = i.Digest(context.Background(), "x/y:dev")
	assert.ErrorContains(t, err, "no digest")
}

func TestInspectorDryRun(t *testing.T) {
	i, err := NewInspector(Credentials{}, true)
	require.NoError(t, err)
	d, err := i.Digest(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, DryRunDigest, d)
}
