// facsimilab main entrypoint
//
// Runs the FacsimiLab image pipeline locally or inside a GitHub Actions job.
// Keep this file simple: load local overrides, hook signals, run the command
// tree, turn a failure into a non-zero exit. Every command that can fail has
// already logged (and notified) its error by the time it returns here.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"facsimilab/internal/cli"
)

func main() {
	// Local overrides for dev runs; harmless in CI.
	_ = godotenv.Load(".env.local")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx, os.Args[1:]); err != nil {
		if !cli.Logged(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}
