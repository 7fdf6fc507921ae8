// internal/docker/build.go
package docker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"facsimilab/internal/executil"
)

// Builder runs image builds through docker buildx.
type Builder struct {
	Runner executil.Runner
	Logf   func(format string, args ...any)
}

func (b *Builder) logf(format string, args ...any) {
	if b.Logf != nil {
		b.Logf(format, args...)
	}
}

// Build validates opts and runs the buildx build.
func (b *Builder) Build(ctx context.Context, opts *BuildOptions) error {
	args, err := BuildArgs(opts)
	if err != nil {
		return err
	}

	// Only validate filesystem when not in dry-run
	if !opts.DryRun {
		if st, err := os.Stat(dockerfile(opts)); err != nil || st.IsDir() {
			return fmt.Errorf("BuildImage: Dockerfile %q not found or not a file", dockerfile(opts))
		}
		if st, err := os.Stat(contextPath(opts)); err != nil || !st.IsDir() {
			return fmt.Errorf("BuildImage: context %q not found or not a directory", contextPath(opts))
		}
	}

	b.logf("build plan: tags=%s dockerfile=%s context=%s",
		strings.Join(dedupRefs(opts.FullRefs), ","),
		absPath(dockerfile(opts)),
		absPath(contextPath(opts)))
	b.logf("executing: docker %s", executil.ShellQuoteArgs(redactBuildArgs(args)))

	return b.Runner.Run(ctx, executil.Command("docker", args...))
}

func dockerfile(opts *BuildOptions) string {
	if df := strings.TrimSpace(opts.Dockerfile); df != "" {
		return df
	}
	return "Dockerfile"
}

func contextPath(opts *BuildOptions) string {
	if p := strings.TrimSpace(opts.ContextPath); p != "" {
		return p
	}
	return "."
}

// BuildArgs renders opts as the argument list for `docker buildx build`.
func BuildArgs(opts *BuildOptions) ([]string, error) {
	if opts == nil {
		return nil, errors.New("BuildImage: opts is nil")
	}
	if len(opts.FullRefs) == 0 {
		return nil, errors.New("BuildImage: FullRefs must have at least one repo:tag")
	}
	if !opts.Push && !opts.Load {
		return nil, errors.New("BuildImage: at least one output (push or load) is required")
	}

	refs := dedupRefs(opts.FullRefs)
	for _, r := range refs {
		// Docker tags must be lowercase & no spaces
		if strings.ToLower(r) != r || strings.ContainsAny(r, " \t\n") {
			return nil, fmt.Errorf("BuildImage: invalid ref %q (must be lowercase, no spaces)", r)
		}
	}

	args := []string{"buildx", "build", "--progress=plain"}
	for _, r := range refs {
		args = append(args, "-t", r)
	}
	args = append(args, "-f", dockerfile(opts))
	if opts.Platform != "" {
		args = append(args, "--platform", opts.Platform)
	}
	if opts.Pull {
		args = append(args, "--pull")
	}
	if opts.NoCache {
		args = append(args, "--no-cache")
	}
	if opts.Target != "" {
		args = append(args, "--target", opts.Target)
	}
	for _, c := range opts.CacheFrom {
		args = append(args, "--cache-from", c)
	}
	for _, c := range opts.CacheTo {
		args = append(args, "--cache-to", c)
	}
	if opts.Push {
		args = append(args, "--push")
	}
	if opts.Load {
		args = append(args, "--load")
	}
	if opts.MetadataFile != "" {
		args = append(args, "--metadata-file", opts.MetadataFile)
	}

	for _, kv := range opts.Labels {
		if kv[0] != "" && kv[1] != "" {
			args = append(args, "--label", kv[0]+"="+kv[1])
		}
	}
	for _, kv := range opts.BuildArgs {
		if kv[0] != "" {
			args = append(args, "--build-arg", kv[0]+"="+kv[1])
		}
	}
	args = append(args, contextPath(opts))
	return args, nil
}
