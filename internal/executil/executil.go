// internal/executil/executil.go
package executil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
)

// Cmd describes one external command invocation.
type Cmd struct {
	Name  string
	Args  []string
	Dir   string
	Env   map[string]string // appended to the inherited environment
	Stdin io.Reader
	Tee   io.Writer // optional extra sink for stdout+stderr (e.g. a transcript file)
}

// Command is shorthand for Cmd{Name: name, Args: args}.
func Command(name string, args ...string) Cmd {
	return Cmd{Name: name, Args: args}
}

// String renders the command the way it is printed in logs.
func (c Cmd) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + ShellQuoteArgs(c.Args)
}

// Runner runs external tools. Every blocking call takes a context so a
// signal on the driver cancels the child process.
type Runner interface {
	Run(ctx context.Context, c Cmd) error
}

// Exec is the os/exec backed Runner.
type Exec struct {
	DryRun bool
	Stdout io.Writer // default os.Stdout
	Stderr io.Writer // default os.Stderr
	Logf   func(format string, args ...any)
}

// Run executes the command with stdout/stderr streamed through.
// In dry-run mode the command is only logged.
func (e *Exec) Run(ctx context.Context, c Cmd) error {
	fullCmd := c.String()
	prefix := ""
	if c.Dir != "" {
		prefix = " in " + c.Dir
	}

	if e.DryRun {
		e.logf("[DRY RUN%s] %s", prefix, fullCmd)
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	stdout := e.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := e.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdin = c.Stdin
	cmd.Env = os.Environ()
	for k, v := range c.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	cmd.Stdout, cmd.Stderr = stdout, stderr
	if c.Tee != nil {
		tee := &lockedWriter{w: c.Tee}
		cmd.Stdout = io.MultiWriter(stdout, tee)
		cmd.Stderr = io.MultiWriter(stderr, tee)
	}

	e.logf("Running%s: %s", prefix, fullCmd)
	if err := cmd.Run(); err != nil {
		return wrapRunError(ctx, fullCmd, err)
	}
	return nil
}

func (e *Exec) logf(format string, args ...any) {
	if e.Logf != nil {
		e.Logf(format, args...)
		return
	}
	fmt.Printf(format+"\n", args...)
}

func wrapRunError(ctx context.Context, fullCmd string, err error) error {
	// context cancellations/timeouts show clearly
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return fmt.Errorf("command timed out: %s", fullCmd)
		}
		return fmt.Errorf("command canceled: %s: %w", fullCmd, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			return &ExitError{Cmd: fullCmd, Code: status.ExitStatus(), Err: err}
		}
	}
	return fmt.Errorf("failed to run command: %s: %w", fullCmd, err)
}

// lockedWriter serializes writes; exec copies stdout and stderr concurrently.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// ExitError reports a command that ran and returned a non-zero status.
type ExitError struct {
	Cmd  string
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command failed (exit=%d): %s: %v", e.Code, e.Cmd, e.Err)
}

func (e *ExitError) Unwrap() error { return e.Err }

// ShellQuoteArgs returns a printable, shell-safe representation of args.
func ShellQuoteArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		if a == "" || strings.ContainsAny(a, " \t\n\"'`$\\*?[]{}()<>|&;") {
			a = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
		}
		quoted[i] = a
	}
	return strings.Join(quoted, " ")
}
