package pipeline

import (
	"time"

	"facsimilab/internal/envfile"
	"facsimilab/internal/logging"
	"facsimilab/internal/version"
)

// RunContext is the mutable state of one run, threaded through every stage.
type RunContext struct {
	StartedAt     time.Time
	Version       string
	VersionSource version.Source

	// Env mirrors what has been written to the env file so far.
	Env envfile.BuildEnv

	// Digests holds the resolved digest of every image by stage name
	// ("base", "main-env", ...).
	Digests map[string]string

	// Built and Skipped list image names in the order they were handled.
	Built   []string
	Skipped []string
}

func newRunContext(now time.Time) *RunContext {
	return &RunContext{
		StartedAt: now,
		Env:       envfile.BuildEnv{ISODatetime: now.Format(logging.TimeLayout)},
		Digests:   make(map[string]string),
	}
}

// upstream returns the pinned reference and digest feeding spec.
func (rc *RunContext) upstream(spec StageSpec, images map[string]string) (ref, digest string) {
	if spec.Upstream == "" {
		return rc.Env.BaseImageExact(), rc.Env.BaseImageSHA
	}
	d := rc.Digests[spec.Upstream]
	if d == "" {
		return "", ""
	}
	return images[spec.Upstream] + "@" + d, d
}

func (rc *RunContext) setDigest(spec StageSpec, d string) (envfile.Pair, error) {
	rc.Digests[spec.Name] = d
	return rc.Env.SetDigest(spec.EnvKey, d)
}
