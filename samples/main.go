package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"facsimilab/internal/version"
)

func main() {
	dir := "."
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}
	if !version.IsRepo(dir) {
		log.Fatalf("[git] %s is not inside a repository", dir)
	}

	// Same analysis a build runs: conventional commits since the last tag.
	next, err := version.Analyzer{Dir: dir}.NextRelease(context.Background())
	if err != nil {
		log.Fatalf("[git] release analysis failed: %v", err)
	}
	if next == "" {
		fmt.Println("next release: none (no releasable commits)")
	} else {
		fmt.Printf("next release: v%s\n", next)
	}

	current, err := version.ReadFile("docker/image_version.txt")
	if err != nil {
		log.Fatalf("read version file: %v", err)
	}
	if current == "" {
		fmt.Printf("version file: <none> (builds use %q)\n", version.Default)
		return
	}
	// Show what each bump would make of the persisted version.
	for _, bump := range []version.VersionType{version.Patch, version.Minor, version.Major} {
		forecast, err := version.ForecastNext(current, bump)
		if err != nil {
			log.Fatalf("forecast %s from %q: %v", bump, current, err)
		}
		fmt.Printf("current=%s next=%s (bump=%s)\n", current, forecast, bump.String())
	}
}
