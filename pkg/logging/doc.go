// Package logging provides a structured logging system that supports both
// CLI and TUI execution modes with unified log handling and flexible output
// formatting.
//
// # Execution Modes
//   - CLI Mode: logs are written directly to the configured io.Writer via a
//     slog.TextHandler, subject to level filtering.
//   - TUI Mode: logs are sent over a buffered channel for a terminal UI to
//     consume and render on its own schedule; a full channel falls back to
//     stderr rather than blocking the caller.
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stdout)
//	logging.Info("Lifecycle", "starting layer %d", layerIndex)
//	logging.Error("Cmdline", err, "rejected token %q", tok)
//
// # Subsystems
//
// Log lines are tagged with a subsystem identifier for filtering:
//   - "Lifecycle": dependency resolution and service lifecycle transitions
//   - "Cmdline": argument analyzer state machine
package logging
