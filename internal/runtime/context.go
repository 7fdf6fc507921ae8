package runtime

import (
	"fmt"
	"os"
	"strings"
)

// Context captures the CI environment a run executes in. Outside GitHub
// Actions every field except DryRun is empty.
type Context struct {
	CI          bool
	Event       string
	Workflow    string
	RunID       string
	RunNumber   string
	RunURL      string
	Repository  string
	RefName     string
	SHA         string
	ShortSHA    string
	Actor       string
	RunnerName  string
	StepSummary string

	// Derived booleans
	IsManual bool
	IsTag    bool
	DryRun   bool
}

// LoadContext reads the GitHub Actions environment.
func LoadContext(dryRun bool) Context {
	sha := os.Getenv("GITHUB_SHA")
	short := sha
	if len(sha) >= 8 {
		short = sha[:8]
	}

	c := Context{
		CI:          os.Getenv("GITHUB_ACTIONS") == "true",
		Event:       os.Getenv("GITHUB_EVENT_NAME"),
		Workflow:    os.Getenv("GITHUB_WORKFLOW"),
		RunID:       os.Getenv("GITHUB_RUN_ID"),
		RunNumber:   os.Getenv("GITHUB_RUN_NUMBER"),
		Repository:  os.Getenv("GITHUB_REPOSITORY"),
		RefName:     strings.TrimSpace(os.Getenv("GITHUB_REF_NAME")),
		SHA:         sha,
		ShortSHA:    short,
		Actor:       os.Getenv("GITHUB_ACTOR"),
		RunnerName:  os.Getenv("RUNNER_NAME"),
		StepSummary: os.Getenv("GITHUB_STEP_SUMMARY"),
		IsTag:       os.Getenv("GITHUB_REF_TYPE") == "tag",
		DryRun:      dryRun,
	}
	c.IsManual = c.Event == "workflow_dispatch"

	if server := firstNonEmpty(os.Getenv("GITHUB_SERVER_URL"), "https://github.com"); c.Repository != "" && c.RunID != "" {
		c.RunURL = fmt.Sprintf("%s/%s/actions/runs/%s", strings.TrimRight(server, "/"), c.Repository, c.RunID)
	}
	return c
}

func (c Context) describeContext() string {
	switch ResolveFlow(c) {
	case FlowDryRun:
		return "Dry run"
	case FlowLocal:
		return "Local run"
	case FlowDispatch:
		return fmt.Sprintf("Manual dispatch (%s)", orNone(c.RefName))
	case FlowTag:
		return fmt.Sprintf("Tag push (%s)", c.RefName)
	}
	return fmt.Sprintf("Workflow event: %s (%s)", orNone(c.Event), orNone(c.RefName))
}
