package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"firework/pkg/lifecycle"
)

func newLifecycleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lifecycle",
		Short: "Exercise the service lifecycle orchestrator",
	}
	cmd.AddCommand(newLifecycleDemoCmd())
	return cmd
}

func newLifecycleDemoCmd() *cobra.Command {
	var useSpinner bool
	var runFor time.Duration

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Bring up a diamond dependency graph (A -> B,C -> D) and tear it down",
		Long: `demo launches four toy services through the orchestrator: B and C both
depend on A, and D depends on both B and C. It records every PREPARE/ONLINE/
CLEANUP transition, lets the graph run online for --for, then cancels and
lets the teardown unwind in reverse dependency order, and finally prints the
recorded transitions as a timeline table.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLifecycleDemo(cmd, useSpinner, runFor)
		},
	}
	cmd.Flags().BoolVar(&useSpinner, "spinner", false, "show a spinner while the PREPARE barrier is in flight")
	cmd.Flags().DurationVar(&runFor, "for", 300*time.Millisecond, "how long to hold the graph online before tearing it down")
	return cmd
}

// demoEvent is one recorded lifecycle transition, timestamped relative to
// the start of the run, for the final summary table.
type demoEvent struct {
	service string
	event   string
	elapsed time.Duration
}

// demoService is a toy Service: it spends a few milliseconds in PREPARE,
// reports itself online, blocks until Exit is called, then spends a few
// milliseconds in CLEANUP. Every transition is appended to a shared,
// mutex-guarded event log for the closing table.
type demoService struct {
	lifecycle.Base
	start  time.Time
	mu     *sync.Mutex
	events *[]demoEvent
	onPrepared func()
}

func (s *demoService) record(event string) {
	s.mu.Lock()
	*s.events = append(*s.events, demoEvent{service: s.ID(), event: event, elapsed: time.Since(s.start)})
	s.mu.Unlock()
}

func (s *demoService) Launch(ctx context.Context, sc *lifecycle.ServiceContext) error {
	if err := sc.Prepare(ctx, func(ctx context.Context) error {
		time.Sleep(20 * time.Millisecond)
		s.record("PREPARE")
		return nil
	}); err != nil {
		return err
	}
	if s.onPrepared != nil {
		s.onPrepared()
	}

	if err := sc.Online(ctx, func(ctx context.Context) error {
		s.record("ONLINE")
		return sc.WaitForExit(ctx)
	}); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return sc.Cleanup(context.Background(), func(context.Context) error {
		time.Sleep(10 * time.Millisecond)
		s.record("CLEANUP")
		return nil
	})
}

func runLifecycleDemo(cmd *cobra.Command, useSpinner bool, runFor time.Duration) error {
	start := time.Now()
	var mu sync.Mutex
	var events []demoEvent

	var prepareWG sync.WaitGroup
	prepareWG.Add(4)
	onPrepared := func() { prepareWG.Done() }

	newSvc := func(id string, deps ...string) lifecycle.Service {
		return &demoService{
			Base:       lifecycle.Base{IDValue: id, DependsOnIDs: deps},
			start:      start,
			mu:         &mu,
			events:     &events,
			onPrepared: onPrepared,
		}
	}

	services := []lifecycle.Service{
		newSvc("A"),
		newSvc("B", "A"),
		newSvc("C", "A"),
		newSvc("D", "B", "C"),
	}

	var sp *spinner.Spinner
	if useSpinner {
		sp = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		sp.Suffix = " waiting for PREPARE barrier..."
		sp.Start()
		go func() {
			prepareWG.Wait()
			sp.Stop()
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), runFor)
	defer cancel()

	controller := lifecycle.NewController()
	if err := controller.Launch(ctx, services); err != nil {
		return fmt.Errorf("lifecycle demo: %w", err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.Colors{text.FgHiBlue, text.Bold}.Sprint("SERVICE"),
		text.Colors{text.FgHiBlue, text.Bold}.Sprint("EVENT"),
		text.Colors{text.FgHiBlue, text.Bold}.Sprint("ELAPSED"),
	})
	for _, ev := range events {
		t.AppendRow(table.Row{ev.service, ev.event, ev.elapsed.Round(time.Millisecond)})
	}
	t.Render()
	return nil
}
