// Package pipeline drives a build run: version resolution, the env file,
// the optional lock step and the base, main and full stages in order.
package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"facsimilab/internal/docker"
	"facsimilab/internal/envfile"
	"facsimilab/internal/lock"
	"facsimilab/internal/logging"
	"facsimilab/internal/metrics"
	"facsimilab/internal/version"
)

// Builder builds and publishes one image.
type Builder interface {
	Build(ctx context.Context, opts *docker.BuildOptions) error
}

// DigestResolver returns the registry digest of a reference.
type DigestResolver interface {
	Digest(ctx context.Context, ref string) (string, error)
}

// VersionResolver picks the image version of a run.
type VersionResolver interface {
	Resolve(ctx context.Context) (version.Resolution, error)
}

// Pipeline is assembled once per run. Lock, Login and Metrics are optional.
type Pipeline struct {
	Settings Settings
	Log      *logging.Logger
	Builder  Builder
	Digests  DigestResolver
	Versions VersionResolver
	Lock     func(ctx context.Context) (lock.Result, error)
	Login    func(ctx context.Context) error
	Metrics  *metrics.Recorder
	Now      func() time.Time
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Run executes the whole pipeline and stops at the first failing step.
// The returned RunContext describes everything done up to that point.
func (p *Pipeline) Run(ctx context.Context) (*RunContext, error) {
	cfg := p.Settings.Config
	rc := newRunContext(p.now())

	// Digests are read back from the registry :dev tags, so a load-only
	// build would record whatever was pushed last.
	if !cfg.Push && !cfg.DryRun {
		return rc, fail("setup", "outputs", errors.New("build requires push; stage digests are read from the registry"))
	}

	res, err := p.Versions.Resolve(ctx)
	if err != nil {
		return rc, fail("setup", "resolve version", err)
	}
	if res.ReleaseErr != nil {
		p.Log.Warnf("Automated release failed, falling back to %s: %v", res.Source, res.ReleaseErr)
	}
	rc.Version, rc.VersionSource = res.Version, res.Source
	p.Log.Infof("Image version: %s (%s)", rc.Version, rc.VersionSource)

	rc.Env.ImageVersion = rc.Version
	rc.Env.BaseImageName = cfg.BaseImage
	rc.Env.ImageRepoPrefix = cfg.RepoPrefix

	w, err := envfile.Create(cfg.Paths.EnvFile)
	if err != nil {
		return rc, fail("setup", "env file", err)
	}
	if err := w.EmitAll(rc.Env.HeaderPairs()); err != nil {
		return rc, fail("setup", "env file", err)
	}

	d, err := p.Digests.Digest(ctx, cfg.BaseImage)
	if err != nil {
		return rc, fail("setup", "inspect "+cfg.BaseImage, err)
	}
	rc.Env.BaseImageSHA = d
	if err := w.EmitAll(rc.Env.UpstreamPairs()); err != nil {
		return rc, fail("setup", "env file", err)
	}
	p.Log.Infof("Upstream image: %s", rc.Env.BaseImageExact())

	if p.Settings.Flags.GenerateCondaLock {
		if err := p.generateLock(ctx); err != nil {
			return rc, err
		}
	} else {
		p.Log.Infof("Skipping conda-lock generation")
	}

	if p.Login != nil {
		if err := p.Login(ctx); err != nil {
			return rc, fail("setup", "registry login", err)
		}
	}

	stages := Stages(p.Settings)
	images := make(map[string]string, len(stages))
	for _, s := range stages {
		images[s.Name] = s.Image
	}
	for _, s := range stages {
		if s.Env != nil && s.Env.Enabled {
			if err := p.runImage(ctx, *s.Env, rc, w, images); err != nil {
				return rc, err
			}
		}
		if err := p.runImage(ctx, s, rc, w, images); err != nil {
			return rc, err
		}
	}

	if err := version.Persist(cfg.Paths.VersionFile, rc.Version); err != nil {
		return rc, fail("finish", "persist version", err)
	}
	p.Log.Infof("Build finished in %s", p.now().Sub(rc.StartedAt).Round(time.Second))
	return rc, nil
}

func (p *Pipeline) generateLock(ctx context.Context) error {
	if p.Lock == nil {
		return fail("lock", "conda-lock", errors.New("no lock generator configured"))
	}
	start := p.now()
	res, err := p.Lock(ctx)
	if err != nil {
		p.observe("lock", metrics.OutcomeFailed, start)
		return fail("lock", "conda-lock", err)
	}
	p.observe("lock", metrics.OutcomeBuilt, start)
	p.Log.Infof("Locked %d conda and %d pip specs into %s", res.CondaSpecs, res.PipSpecs, res.Lockfile)
	return nil
}

// runImage builds spec when enabled, then resolves and records the digest
// of its dev tag. A skipped image is expected to exist in the registry.
func (p *Pipeline) runImage(ctx context.Context, spec StageSpec, rc *RunContext, w *envfile.Writer, images map[string]string) (err error) {
	start := p.now()
	outcome := metrics.OutcomeSkipped
	defer func() {
		if err != nil {
			outcome = metrics.OutcomeFailed
		}
		p.observe(spec.Name, outcome, start)
	}()

	if spec.Enabled {
		if err := p.build(ctx, spec, rc, images); err != nil {
			return err
		}
		outcome = metrics.OutcomeBuilt
		rc.Built = append(rc.Built, spec.Name)
	} else {
		p.Log.Infof("Skipping %s build; using %s", spec.Name, docker.DevRef(spec.Image))
		rc.Skipped = append(rc.Skipped, spec.Name)
	}

	d, err := p.Digests.Digest(ctx, docker.DevRef(spec.Image))
	if err != nil {
		return fail(spec.Name, "inspect "+docker.DevRef(spec.Image), err)
	}
	pair, err := rc.setDigest(spec, d)
	if err != nil {
		return fail(spec.Name, "env file", err)
	}
	if err := w.Emit(pair.Key, pair.Value); err != nil {
		return fail(spec.Name, "env file", err)
	}
	p.Log.Infof("%s digest: %s", spec.Name, d)
	return nil
}

func (p *Pipeline) build(ctx context.Context, spec StageSpec, rc *RunContext, images map[string]string) error {
	cfg := p.Settings.Config

	upstreamRef, upstreamDigest := rc.upstream(spec, images)
	if upstreamDigest == "" {
		name := spec.Upstream
		if name == "" {
			name = cfg.BaseImage
		}
		return fail(spec.Name, "upstream", errors.Errorf("no digest recorded for %s", name))
	}

	args := [][2]string{
		{"IMAGE_VERSION", rc.Version},
		{"ISO_DATETIME", rc.Env.ISODatetime},
		{"BASE_IMAGE", upstreamRef},
		{"BASE_IMAGE_SHA", upstreamDigest},
	}
	if spec.Env != nil && spec.Env.Enabled {
		envDigest := rc.Digests[spec.Env.Name]
		if envDigest == "" {
			return fail(spec.Name, "upstream", errors.Errorf("no digest recorded for %s", spec.Env.Name))
		}
		args = append(args, [2]string{"ENV_IMAGE", spec.Env.Image + "@" + envDigest})
	}
	args = append(args, spec.BuildArgs...)

	opts := &docker.BuildOptions{
		Dockerfile:  spec.Dockerfile,
		ContextPath: spec.Context,
		BuildArgs:   args,
		Labels: [][2]string{
			{"org.opencontainers.image.title", "facsimilab-" + spec.Name},
			{"org.opencontainers.image.version", rc.Version},
			{"org.opencontainers.image.created", rc.Env.ISODatetime},
			{"org.opencontainers.image.base.name", upstreamRef},
			{"org.opencontainers.image.base.digest", upstreamDigest},
		},
		FullRefs:     docker.PlanTags(spec.Image, rc.Version, cfg.TagLatest),
		Platform:     cfg.Platform,
		CacheFrom:    []string{spec.CacheFrom},
		CacheTo:      []string{spec.CacheTo},
		Push:         spec.Push,
		Load:         spec.Load,
		MetadataFile: spec.MetadataFile,
		DryRun:       cfg.DryRun,
	}

	p.Log.Infof("Building %s from %s", spec.Name, upstreamRef)
	if err := p.Builder.Build(ctx, opts); err != nil {
		return fail(spec.Name, "build", err)
	}

	if !cfg.DryRun {
		if md, err := docker.ReadMetadata(spec.MetadataFile); err != nil {
			p.Log.Debugf("No build metadata for %s: %v", spec.Name, err)
		} else {
			p.Log.Debugf("%s build ref %s pushed %s", spec.Name, md.BuildRef, md.Digest)
		}
	}
	return nil
}

func (p *Pipeline) observe(stage, outcome string, start time.Time) {
	if p.Metrics != nil {
		p.Metrics.ObserveStage(stage, outcome, p.now().Sub(start))
	}
}
