// Package main provides the entry point for the calsync CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/caremesh/calsync/cmd/calsync/app"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	application, err := app.New(version, commit, date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := app.Context()
	defer cancel()

	// A failed run construction exits non-zero; per-task failures do not.
	// The scheduler re-invokes on its own cadence either way.
	if err := application.Execute(ctx, os.Args[1:]); err != nil {
		application.Logger().Error().Err(err).Msg("Run aborted")
		os.Exit(1)
	}
}
