package runtime

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"facsimilab/internal/config"
	"facsimilab/internal/params"
	"facsimilab/internal/pipeline"
	"facsimilab/internal/version"
)

func clearGitHubEnv(t *testing.T) {
	for _, k := range []string{
		"GITHUB_ACTIONS", "GITHUB_EVENT_NAME", "GITHUB_WORKFLOW", "GITHUB_RUN_ID",
		"GITHUB_RUN_NUMBER", "GITHUB_REPOSITORY", "GITHUB_REF_NAME", "GITHUB_REF_TYPE",
		"GITHUB_SHA", "GITHUB_ACTOR", "RUNNER_NAME", "GITHUB_STEP_SUMMARY", "GITHUB_SERVER_URL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadContextGitHubActions(t *testing.T) {
	clearGitHubEnv(t)
	t.Setenv("GITHUB_ACTIONS", "true")
	t.Setenv("GITHUB_EVENT_NAME", "workflow_dispatch")
	t.Setenv("GITHUB_REPOSITORY", "lab/facsimilab")
	t.Setenv("GITHUB_RUN_ID", "42")
	t.Setenv("GITHUB_SHA", "0123456789abcdef")
	t.Setenv("GITHUB_REF_NAME", "main")

	c := LoadContext(false)

	assert.True(t, c.CI)
	assert.True(t, c.IsManual)
	assert.Equal(t, "01234567", c.ShortSHA)
	assert.Equal(t, "https://github.com/lab/facsimilab/actions/runs/42", c.RunURL)
	assert.Equal(t, FlowDispatch, ResolveFlow(c))
	assert.Equal(t, "Manual dispatch (main)", c.describeContext())
}

func TestResolveFlow(t *testing.T) {
	tests := []struct {
		name string
		ctx  Context
		want Flow
	}{
		{"local", Context{}, FlowLocal},
		{"dry run wins", Context{CI: true, IsTag: true, DryRun: true}, FlowDryRun},
		{"tag", Context{CI: true, IsTag: true}, FlowTag},
		{"event", Context{CI: true, Event: "push"}, FlowEvent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveFlow(tt.ctx))
		})
	}
}

func TestPrintSummary(t *testing.T) {
	color.NoColor = true

	flags := params.DefaultFlags()
	flags.BuildBase = false
	s := pipeline.Settings{
		Config:        config.Config{RepoPrefix: "facsimilab", BaseImage: "nvidia/cuda:12.4.1-base", CacheRegistry: "facsimilab/facsimilab-cache", Push: true},
		Flags:         flags,
		QuartoVersion: "1.6.1",
	}
	rc := &pipeline.RunContext{
		Version:       "v1.2.0",
		VersionSource: version.SourceRelease,
		Digests:       map[string]string{"base": "sha256:aaa", "main": "sha256:bbb"},
		Built:         []string{"main"},
		Skipped:       []string{"base"},
	}
	runErr := &pipeline.StageError{Stage: "full", Step: "build", Err: errors.New("boom")}

	var buf bytes.Buffer
	PrintSummary(&buf, Context{}, s, rc, runErr)
	out := buf.String()

	assert.Contains(t, out, "Context               : Local run")
	assert.Contains(t, out, "Image Version         : v1.2.0 (release)")
	assert.Contains(t, out, "Build Base            : ❌")
	assert.Contains(t, out, "  base                  : skipped     sha256:aaa")
	assert.Contains(t, out, "  main                  : built       sha256:bbb")
	assert.Contains(t, out, "  full                  : failed      <none>")
	assert.Contains(t, out, "Status                : failed (stage full: build: boom)")
	assert.NotContains(t, out, "main-env")
}
