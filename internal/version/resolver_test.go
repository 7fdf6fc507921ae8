package version

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReleaser struct {
	next  string
	err   error
	calls int
}

func (f *fakeReleaser) NextRelease(context.Context) (string, error) {
	f.calls++
	return f.next, f.err
}

func versionFile(t *testing.T, content *string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docker", "image_version.txt")
	if content != nil {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(*content), 0o644))
	}
	return path
}

func ptr(s string) *string { return &s }

func inRepo(b bool) func() bool { return func() bool { return b } }

func TestResolveAutomatedReleaseIsPrefixed(t *testing.T) {
	path := versionFile(t, ptr("v0.9.0\n"))
	rel := &fakeReleaser{next: "1.4.0"}

	res, err := Resolver{File: path, InRepo: inRepo(true), Releaser: rel}.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v1.4.0", res.Version)
	assert.Equal(t, SourceRelease, res.Source)

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "v0.9.0", got, "resolving must not touch the version file")
}

func TestResolveFallsBackToTrimmedFile(t *testing.T) {
	path := versionFile(t, ptr("  v1.2.3  "))
	rel := &fakeReleaser{}

	res, err := Resolver{File: path, InRepo: inRepo(true), Releaser: rel}.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v1.2.3", res.Version)
	assert.Equal(t, SourceFile, res.Source)
	assert.Equal(t, 1, rel.calls)
}

func TestResolveReleaserErrorFallsBack(t *testing.T) {
	path := versionFile(t, ptr("v2.0.0"))
	rel := &fakeReleaser{err: errors.New("no HEAD")}

	res, err := Resolver{File: path, InRepo: inRepo(true), Releaser: rel}.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v2.0.0", res.Version)
	assert.EqualError(t, res.ReleaseErr, "no HEAD")
}

func TestResolveOutsideRepoSkipsReleaser(t *testing.T) {
	path := versionFile(t, ptr("v3.1.0"))
	rel := &fakeReleaser{next: "9.9.9"}

	res, err := Resolver{File: path, InRepo: inRepo(false), Releaser: rel}.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v3.1.0", res.Version)
	assert.Zero(t, rel.calls)
}

func TestResolveDefaultsToDev(t *testing.T) {
	tests := []struct {
		name    string
		content *string
	}{
		{name: "no file", content: nil},
		{name: "whitespace only", content: ptr(" \n\t ")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := versionFile(t, tt.content)
			res, err := Resolver{File: path, InRepo: inRepo(true), Releaser: &fakeReleaser{}}.Resolve(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "dev", res.Version)
			assert.Equal(t, SourceDefault, res.Source)
		})
	}
}

func TestPersistOverwrites(t *testing.T) {
	path := versionFile(t, ptr("v0.1.0\nleftover\n"))
	require.NoError(t, Persist(path, "dev"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "dev\n", string(data))
}
