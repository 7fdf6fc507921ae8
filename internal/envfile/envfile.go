// Package envfile writes the run-scoped KEY=VALUE file consumed by the image
// build engine. The file is recreated at the start of every run and only
// appended to afterwards; repeated keys are kept, the consumer decides.
package envfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Keys written over a run.
const (
	KeyISODatetime     = "ISO_DATETIME"
	KeyImageVersion    = "IMAGE_VERSION"
	KeyBaseImageName   = "BASE_IMAGE_NAME"
	KeyImageRepoPrefix = "IMAGE_REPO_PREFIX"
	KeyBaseImageSHA    = "BASE_IMAGE_SHA"
	KeyBaseImageExact  = "BASE_IMAGE_EXACT"
	KeyMainEnvSHA      = "MAIN_ENV_SHA"
	KeyFullEnvSHA      = "FULL_ENV_SHA"
	KeyBaseSHA         = "FACSIMILAB_BASE_SHA"
	KeyMainSHA         = "FACSIMILAB_MAIN_SHA"
	KeyFullSHA         = "FACSIMILAB_FULL_SHA"
)

// Writer appends lines to the env file.
type Writer struct {
	mu   sync.Mutex
	path string
}

// Create truncates (or creates) the file at path and returns a Writer for it.
func Create(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "create directory for %s", path)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		return nil, errors.Wrapf(err, "truncate env file %s", path)
	}
	return &Writer{path: path}, nil
}

// Path returns the file being written.
func (w *Writer) Path() string { return w.path }

// Emit appends KEY=VALUE. Newlines in value are rejected since they would
// break the line format.
func (w *Writer) Emit(key, value string) error {
	if key == "" || strings.ContainsAny(key, "= \t\n") {
		return errors.Errorf("invalid env key %q", key)
	}
	if strings.ContainsAny(value, "\r\n") {
		return errors.Errorf("value for %s contains a newline", key)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "open env file %s", w.path)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%s=%s\n", key, value); err != nil {
		return errors.Wrapf(err, "append %s to %s", key, w.path)
	}
	return nil
}

// Pair is one key/value emission.
type Pair struct {
	Key   string
	Value string
}

// EmitAll emits pairs in order, stopping at the first failure.
func (w *Writer) EmitAll(pairs []Pair) error {
	for _, p := range pairs {
		if err := w.Emit(p.Key, p.Value); err != nil {
			return err
		}
	}
	return nil
}
