package runtime

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/fatih/color"

	"facsimilab/internal/pipeline"
)

var heading = color.New(color.Bold)

// PrintSummary emits a scannable report of a build run with logical
// sections. rc may describe a partial run when runErr is set.
func PrintSummary(w io.Writer, c Context, s pipeline.Settings, rc *pipeline.RunContext, runErr error) {
	cfg := s.Config

	heading.Fprintln(w, "FacsimiLab Build Summary")
	fmt.Fprintln(w, "------------------------")

	// ── Run ─────────────────────────────────────────────────────────────────────
	heading.Fprintln(w, "Run")
	fmt.Fprintf(w, "  Context               : %s\n", c.describeContext())
	if c.CI {
		fmt.Fprintf(w, "  Workflow              : %s #%s\n", orNone(c.Workflow), orNone(c.RunNumber))
		fmt.Fprintf(w, "  Run URL               : %s\n", orNone(c.RunURL))
		fmt.Fprintf(w, "  Commit                : %s\n", orNone(c.ShortSHA))
		fmt.Fprintf(w, "  Runner                : %s\n", orNone(c.RunnerName))
	}
	fmt.Fprintln(w)

	// ── Version ────────────────────────────────────────────────────────────────
	heading.Fprintln(w, "Version")
	if rc != nil {
		fmt.Fprintf(w, "  Image Version         : %s (%s)\n", orNone(rc.Version), orNone(string(rc.VersionSource)))
		fmt.Fprintf(w, "  Build Time            : %s\n", rc.Env.ISODatetime)
		if rc.Env.BaseImageSHA != "" {
			fmt.Fprintf(w, "  Upstream              : %s\n", rc.Env.BaseImageExact())
		} else {
			fmt.Fprintf(w, "  Upstream              : %s\n", cfg.BaseImage)
		}
	}
	fmt.Fprintf(w, "  Quarto                : %s\n", orNone(s.QuartoVersion))
	fmt.Fprintln(w)

	// ── Flags ───────────────────────────────────────────────────────────────────
	heading.Fprintln(w, "Flags")
	fmt.Fprintf(w, "  Build Base            : %s\n", mark(s.Flags.BuildBase))
	fmt.Fprintf(w, "  Build Main            : %s\n", mark(s.Flags.BuildMain))
	fmt.Fprintf(w, "  Build Full            : %s\n", mark(s.Flags.BuildFull))
	fmt.Fprintf(w, "  Python Images         : %s\n", mark(s.Flags.BuildPythonImages))
	fmt.Fprintf(w, "  Conda Lock            : %s\n", mark(s.Flags.GenerateCondaLock))
	fmt.Fprintf(w, "  Push                  : %s\n", mark(cfg.Push))
	fmt.Fprintf(w, "  Load                  : %s\n", mark(cfg.Load))
	fmt.Fprintf(w, "  Tag Latest            : %s\n", mark(cfg.TagLatest))
	fmt.Fprintf(w, "  Dry Run Mode          : %s\n", mark(cfg.DryRun))
	fmt.Fprintln(w)

	// ── Images ──────────────────────────────────────────────────────────────────
	heading.Fprintln(w, "Images")
	var failed string
	var se *pipeline.StageError
	if errors.As(runErr, &se) {
		failed = se.Stage
	}
	for _, st := range pipeline.Stages(s) {
		if st.Env != nil && st.Env.Enabled {
			printImage(w, *st.Env, rc, failed)
		}
		printImage(w, st, rc, failed)
	}
	fmt.Fprintln(w)

	// ── Result ──────────────────────────────────────────────────────────────────
	heading.Fprintln(w, "Result")
	fmt.Fprintf(w, "  Env File              : %s\n", cfg.Paths.EnvFile)
	if runErr != nil {
		color.New(color.FgRed).Fprintf(w, "  Status                : failed (%v)\n", runErr)
	} else {
		color.New(color.FgGreen).Fprintln(w, "  Status                : succeeded")
	}
	fmt.Fprintln(w)
}

func printImage(w io.Writer, st pipeline.StageSpec, rc *pipeline.RunContext, failed string) {
	status := "not reached"
	var digest string
	switch {
	case st.Name == failed:
		status = "failed"
	case rc == nil:
	case slices.Contains(rc.Built, st.Name):
		status = "built"
	case slices.Contains(rc.Skipped, st.Name):
		status = "skipped"
	}
	if rc != nil {
		digest = rc.Digests[st.Name]
	}
	fmt.Fprintf(w, "  %-21s : %-11s %s\n", st.Name, status, orNone(digest))
}
