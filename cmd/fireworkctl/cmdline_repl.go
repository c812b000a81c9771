package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"firework/pkg/cmdline"
	fwstrings "firework/pkg/strings"
)

func newCmdlineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cmdline",
		Short: "Exercise the command-line argument analyzer",
	}
	cmd.AddCommand(newCmdlineReplCmd())
	return cmd
}

func newCmdlineReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactively feed lines into a sample git-like pattern",
		Long: `repl reads one line at a time and analyzes it against a fixed pattern
equivalent to:

  !remote add <name> <url> [--fetch]

the leading "!" is required and stripped by the PREFIX step before header
matching runs, the way a chat bot strips its command prefix. Prints either
the resulting assignment map or the reason the line was rejected (a
missing/wrong prefix rejects with prefix_mismatch). Ctrl-D exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCmdlineRepl(cmd)
		},
	}
}

func buildRemotePattern() (*cmdline.SubcommandPattern, error) {
	root := &cmdline.SubcommandPattern{
		Prefixes: []string{"!"},
		Subcommands: []*cmdline.SubcommandPattern{
			{
				Header: "remote",
				Subcommands: []*cmdline.SubcommandPattern{
					{
						Header: "add",
						Fragments: []cmdline.Fragment{
							{Name: "name"},
							{Name: "url"},
						},
						Options: []*cmdline.OptionPattern{
							{Keyword: "--fetch"},
						},
					},
				},
			},
		},
	}
	if err := root.Build(); err != nil {
		return nil, err
	}
	return root, nil
}

func runCmdlineRepl(cmd *cobra.Command) error {
	pattern, err := buildRemotePattern()
	if err != nil {
		return fmt.Errorf("cmdline repl: %w", err)
	}

	historyFile := filepath.Join(os.TempDir(), ".fireworkctl_cmdline_history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          text.Colors{text.FgHiMagenta, text.Bold}.Sprint("firework» "),
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("cmdline repl: %w", err)
	}
	defer rl.Close()

	fmt.Fprintln(cmd.OutOrStdout(), "Try: !remote add origin https://example.com/repo.git --fetch")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				continue
			}
			continue
		} else if err == io.EOF {
			return nil
		} else if err != nil {
			return fmt.Errorf("cmdline repl: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		buf := cmdline.NewSliceBuffer(strings.Fields(line)...)
		res, err := cmdline.Analyze(pattern, buf)
		if err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), text.FgRed.Sprint("error: "+err.Error()))
			continue
		}
		if res.Rejected {
			fmt.Fprintln(cmd.OutOrStdout(), text.FgRed.Sprintf("rejected: %s", res.Reason))
			continue
		}

		fmt.Fprintln(cmd.OutOrStdout(), text.FgGreen.Sprint("parsed:"))
		keys := make([]string, 0, len(res.Assignments))
		for k := range res.Assignments {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v := fmt.Sprintf("%v", res.Assignments[k])
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", k, fwstrings.TruncateValue(v, fwstrings.DefaultValueMaxLen))
		}
	}
}
