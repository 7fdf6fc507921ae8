package lock

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Environment is the part of a conda environment.yml the generator checks.
type Environment struct {
	Name         string      `yaml:"name"`
	Channels     []string    `yaml:"channels"`
	Dependencies []yaml.Node `yaml:"dependencies"`
}

// Packages returns the conda package specs and, separately, the pip specs
// nested under a `- pip:` entry.
func (e Environment) Packages() (conda, pip []string, err error) {
	for _, n := range e.Dependencies {
		switch n.Kind {
		case yaml.ScalarNode:
			conda = append(conda, strings.TrimSpace(n.Value))
		case yaml.MappingNode:
			var sub map[string][]string
			if err := n.Decode(&sub); err != nil {
				return nil, nil, errors.Wrapf(err, "line %d: decode nested dependencies", n.Line)
			}
			pip = append(pip, sub["pip"]...)
		default:
			return nil, nil, errors.Errorf("line %d: unexpected dependency entry", n.Line)
		}
	}
	return conda, pip, nil
}

// ReadEnvironment parses and sanity-checks an environment.yml.
func ReadEnvironment(path string) (Environment, error) {
	var env Environment
	data, err := os.ReadFile(path)
	if err != nil {
		return env, errors.Wrap(err, "read conda environment")
	}
	if err := yaml.Unmarshal(data, &env); err != nil {
		return env, errors.Wrapf(err, "parse %s", path)
	}
	if len(env.Dependencies) == 0 {
		return env, errors.Errorf("%s: no dependencies listed", path)
	}
	if len(env.Channels) == 0 {
		return env, errors.Errorf("%s: no channels listed", path)
	}
	return env, nil
}
