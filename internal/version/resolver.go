package version

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Default is the version used when nothing else is available.
const Default = "dev"

// Source names where a resolved version came from.
type Source string

const (
	SourceRelease Source = "release"
	SourceFile    Source = "file"
	SourceDefault Source = "default"
)

// Releaser computes an automated release version; "" means none.
type Releaser interface {
	NextRelease(ctx context.Context) (string, error)
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Version string
	Source  Source
	// ReleaseErr is set when automated resolution was attempted and failed;
	// resolution still fell back to the file or the default.
	ReleaseErr error
}

// Resolver picks the image version for a run.
type Resolver struct {
	File     string      // persisted version file, e.g. docker/image_version.txt
	InRepo   func() bool // nil means "not a repository"
	Releaser Releaser
}

// NewResolver wires the git-based analyzer for the working tree at root.
func NewResolver(root, file string) Resolver {
	return Resolver{
		File:     file,
		InRepo:   func() bool { return IsRepo(root) },
		Releaser: Analyzer{Dir: root},
	}
}

// Resolve prefers an automated release (prefixed with "v"), then the trimmed
// version file, then Default. A version file holding only whitespace counts
// as absent. Resolve never writes the file; callers Persist once they are
// done with the version.
func (r Resolver) Resolve(ctx context.Context) (Resolution, error) {
	var res Resolution

	if r.InRepo != nil && r.InRepo() && r.Releaser != nil {
		next, err := r.Releaser.NextRelease(ctx)
		if err != nil {
			res.ReleaseErr = err
		} else if next = strings.TrimSpace(next); next != "" {
			return Resolution{Version: "v" + next, Source: SourceRelease}, nil
		}
	}

	if v, err := ReadFile(r.File); err != nil {
		return res, err
	} else if v != "" {
		res.Version, res.Source = v, SourceFile
		return res, nil
	}

	res.Version, res.Source = Default, SourceDefault
	return res, nil
}

// ReadFile returns the trimmed content of the version file, "" if it is missing.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.Wrapf(err, "read version file %s", path)
	}
	return strings.TrimSpace(string(data)), nil
}

// Persist overwrites the version file with v and a trailing newline.
func Persist(path, v string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}
	if err := os.WriteFile(path, []byte(v+"\n"), 0o644); err != nil {
		return errors.Wrapf(err, "write version file %s", path)
	}
	return nil
}
