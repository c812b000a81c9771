package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is the base command for fireworkctl. It carries no behavior of its
// own; every demo lives under a subcommand.
var rootCmd = &cobra.Command{
	Use:   "fireworkctl",
	Short: "Demo shell for the firework lifecycle orchestrator and command analyzer",
	Long: `fireworkctl drives the two packages in this module end to end:

  lifecycle demo   runs a small diamond-shaped dependency graph through the
                   orchestrator and prints its PREPARE/ONLINE/CLEANUP timeline.

  cmdline repl     feeds typed lines through a sample subcommand pattern and
                   prints the resulting assignment map or rejection reason.`,
	SilenceUsage: true,
}

// Execute runs the root command and converts a returned error into a
// non-zero exit code.
func Execute() {
	rootCmd.SetVersionTemplate("fireworkctl version {{.Version}}\n")
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newLifecycleCmd())
	rootCmd.AddCommand(newCmdlineCmd())
}
