// Package main is the entry point for the soundscene CLI.
//
// Usage:
//
//	soundscene [flags] <command> [subcommand] [args]
//
// Commands:
//
//	structure  - Build, validate and describe scenario structures
//	scene      - Generate and query timed segment lists
//	render     - Render a scene into multichannel audio
//	babble     - Synthesize multitalker babble noise
//	clips      - Manage the clip metadata index
//	version    - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/soundscene/soundscene/cmd/soundscene/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
