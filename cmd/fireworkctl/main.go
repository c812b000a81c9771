// Package main is the entry point for fireworkctl, the demo shell that
// exercises the lifecycle orchestrator and the command-line analyzer.
package main

import (
	"os"

	"firework/pkg/logging"
)

// version can be set during build with -ldflags.
var version = "dev"

func main() {
	logging.InitForCLI(logging.LevelInfo, os.Stderr)
	rootCmd.Version = version
	Execute()
}
