// Package smoke pulls published images, runs verification scripts inside
// them and renders the results as a CI job summary.
package smoke

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"facsimilab/internal/docker"
)

// Config lists what to test. Scripts are resolved inside ScriptDir, which is
// bind-mounted read-only at /scripts.
type Config struct {
	Images    []string `yaml:"images"`
	Scripts   []string `yaml:"scripts"`
	ScriptDir string   `yaml:"script_dir"`
	GPUs      *bool    `yaml:"gpus"`
}

// DefaultConfig tests the latest main and full images with the GPU and
// Python checks.
func DefaultConfig(repoPrefix string) Config {
	gpus := true
	return Config{
		Images: []string{
			docker.ImageName(repoPrefix, "facsimilab-main") + ":latest",
			docker.ImageName(repoPrefix, "facsimilab-full") + ":latest",
		},
		Scripts:   []string{"test_gpu.sh", "test_python.sh"},
		ScriptDir: "scripts",
		GPUs:      &gpus,
	}
}

// LoadConfig reads path over the defaults. A missing file yields the
// defaults; keys left out of the file keep theirs.
func LoadConfig(path, repoPrefix string) (Config, error) {
	cfg := DefaultConfig(repoPrefix)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrapf(err, "read smoke config %s", path)
	}

	var file Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return cfg, errors.Wrapf(err, "parse smoke config %s", path)
	}

	if len(file.Images) > 0 {
		cfg.Images = file.Images
	}
	if len(file.Scripts) > 0 {
		cfg.Scripts = file.Scripts
	}
	if file.ScriptDir != "" {
		cfg.ScriptDir = file.ScriptDir
	}
	if file.GPUs != nil {
		cfg.GPUs = file.GPUs
	}
	return cfg, nil
}

func (c Config) gpus() bool { return c.GPUs == nil || *c.GPUs }
