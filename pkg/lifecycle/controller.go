package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"golang.org/x/sync/errgroup"

	"firework/pkg/logging"
)

// Controller is the Lifespan Controller: it resolves a batch of services
// into dependency layers and walks every layer through PREPARE in lockstep,
// then lets each service run its own ONLINE body freely, and tears
// everything back down through CLEANUP in reverse-layer order.
type Controller struct {
	Graph *ServiceGraph
}

// NewController returns a Controller with an empty graph.
func NewController() *Controller {
	return &Controller{Graph: NewServiceGraph()}
}

// waitLayerBarrier blocks until every context named in layer has reached
// (stage, phase), or returns the first Daemon observed to terminate before
// that happened. A nil, nil result means the barrier was reached cleanly.
func (c *Controller) waitLayerBarrier(ctx context.Context, layer []string, stage Stage, phase Phase) (*Daemon, error) {
	n := len(layer)
	ready := make(chan struct{}, n)
	term := make(chan *Daemon, n)
	stop := make(chan struct{})
	defer close(stop)

	for _, id := range layer {
		sc, _ := c.Graph.Context(id)
		d, _ := c.Graph.Daemon(id)
		go func(sc *ServiceContext, d *Daemon) {
			reached := make(chan struct{})
			go func() {
				_ = sc.WaitFor(ctx, stage, phase)
				close(reached)
			}()
			select {
			case <-reached:
				select {
				case ready <- struct{}{}:
				case <-stop:
				}
			case <-d.Done():
				select {
				case term <- d:
				case <-stop:
				}
			}
		}(sc, d)
	}

	got := 0
	for got < n {
		select {
		case <-ready:
			got++
		case d := <-term:
			return d, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, nil
}

// bringUp resolves newServices into layers (excluding whatever is already
// live) and walks each layer through PREPARE. On success it returns the
// layers that were brought up, in order, so the caller can hand them to the
// Task Group for ONLINE supervision or roll them back. A layer counts as
// brought up once every service in it has completed PREPARE and entered
// (ONLINE, WAITING). On the first daemon termination before that (including
// a service whose PREPARE body failed), bringUp stops and returns the layers
// successfully completed so far plus the terminated Daemon.
func (c *Controller) bringUp(ctx context.Context, newServices []Service) (completed [][]string, failed *Daemon, err error) {
	svcByID := make(map[string]Service, len(newServices))
	for _, s := range newServices {
		svcByID[s.ID()] = s
	}

	live := map[string]struct{}{}
	for _, s := range c.Graph.Services() {
		live[s.ID()] = struct{}{}
	}

	var reqs []Requirement
	for _, s := range newServices {
		reqs = append(reqs, Requirement{ID: s.ID(), Dependencies: s.Dependencies(), Before: s.Before(), After: s.After()})
	}
	layers, err := Resolve(reqs, live, false)
	if err != nil {
		return nil, nil, err
	}

	bind, previous, next, err := c.Graph.Subgraph(newServices)
	if err != nil {
		return nil, nil, err
	}
	c.Graph.Apply(bind, previous, next)

	for _, layer := range layers {
		for _, id := range layer {
			sc := NewServiceContext()
			c.Graph.SetContext(id, sc)
			d := newDaemon(ctx, svcByID[id], sc)
			c.Graph.SetDaemon(id, d)
		}

		logging.Debug("Lifecycle", "layer %v entering PREPARE barrier", layer)
		if d, werr := c.waitLayerBarrier(ctx, layer, StagePrepare, PhaseWaiting); werr != nil {
			return completed, nil, werr
		} else if d != nil {
			return completed, d, nil
		}

		for _, id := range layer {
			sc, _ := c.Graph.Context(id)
			sc.forward(StagePrepare, PhasePending)
		}

		if d, werr := c.waitLayerBarrier(ctx, layer, StagePrepare, PhaseCompleted); werr != nil {
			return completed, nil, werr
		} else if d != nil {
			return completed, d, nil
		}

		// A failed PREPARE body still completes its scope; a service that
		// never enters ONLINE ends at EXIT instead, which marks the failure.
		if d, werr := c.waitLayerBarrier(ctx, layer, StageOnline, PhaseWaiting); werr != nil {
			return completed, nil, werr
		} else if d != nil {
			return completed, d, nil
		}
		for _, id := range layer {
			if sc, _ := c.Graph.Context(id); sc.Status().Stage == StageExit {
				d, _ := c.Graph.Daemon(id)
				<-d.Done()
				return completed, d, nil
			}
		}

		logging.Info("Lifecycle", "layer %v completed PREPARE", layer)
		completed = append(completed, layer)
	}
	return completed, nil, nil
}

// teardown walks the ids (already-registered services) through CLEANUP in
// reverse dependency order, always setting Exit on every context first, then
// dispatching CLEANUP and waiting for (EXIT, COMPLETED). An early daemon exit
// observed while waiting for the CLEANUP barrier is not itself a failure as
// long as the daemon finished without error; a non-nil daemon error is
// recorded and included in the returned slice.
func (c *Controller) teardown(ctx context.Context, ids []string) []error {
	idSet := map[string]struct{}{}
	for _, id := range ids {
		idSet[id] = struct{}{}
	}
	var reqs []Requirement
	for _, id := range ids {
		if s, ok := c.Graph.Service(id); ok {
			reqs = append(reqs, Requirement{ID: s.ID(), Dependencies: s.Dependencies(), Before: s.Before(), After: s.After()})
		}
	}
	// Prerequisites outside ids stay up, so they count as already resolved.
	exclude := map[string]struct{}{}
	for _, r := range reqs {
		for _, dep := range append(append([]string(nil), r.Dependencies...), r.After...) {
			if _, ok := idSet[dep]; !ok {
				exclude[dep] = struct{}{}
			}
		}
	}
	layers, err := Resolve(reqs, exclude, true)
	if err != nil {
		return []error{err}
	}

	var errs []error
	var errsMu sync.Mutex
	addErr := func(err error) {
		errsMu.Lock()
		errs = append(errs, err)
		errsMu.Unlock()
	}

	type cleanupEntry struct {
		id string
		sc *ServiceContext
		d  *Daemon
		ok bool
	}

	for _, layer := range layers {
		for _, id := range layer {
			if sc, ok := c.Graph.Context(id); ok {
				sc.Exit()
				// A service never activated (rollback) is released into its
				// ONLINE body, which returns at once now that Exit is set.
				if sc.Status() == (Status{Stage: StageOnline, Phase: PhaseWaiting}) {
					sc.forward(StageOnline, PhasePending)
				}
			}
		}

		// ServiceGraph itself is not safe for concurrent access (see
		// ServiceGraph's doc comment), so every lookup and the eventual Drop
		// happen here on the Controller's own goroutine. Only the
		// ServiceContext/Daemon handles resolved from those lookups -- both
		// already safe for concurrent use -- are handed to the per-id
		// goroutines below.
		entries := make([]cleanupEntry, len(layer))
		for i, id := range layer {
			sc, ok := c.Graph.Context(id)
			d, _ := c.Graph.Daemon(id)
			entries[i] = cleanupEntry{id: id, sc: sc, d: d, ok: ok}
		}

		// Every id in a layer is independent of the others, so their CLEANUP
		// dispatch runs concurrently rather than one at a time.
		var g errgroup.Group
		for _, e := range entries {
			e := e
			g.Go(func() error {
				if !e.ok {
					return nil
				}

				// Wait for the service to reach (CLEANUP, WAITING) on its own,
				// or for its daemon to finish first. An early finish here is
				// not fatal: the service may never have needed a CLEANUP scope.
				reached := make(chan struct{})
				go func() {
					_ = e.sc.WaitFor(ctx, StageCleanup, PhaseWaiting)
					close(reached)
				}()
				select {
				case <-reached:
					if e.sc.Status().Stage != StageExit {
						e.sc.forward(StageCleanup, PhasePending)
					}
				case <-e.d.Done():
				case <-ctx.Done():
				}

				select {
				case <-e.d.Done():
					if err := e.d.Err(); err != nil {
						addErr(err)
					}
				case <-ctx.Done():
					addErr(ctx.Err())
				}
				return nil
			})
		}
		_ = g.Wait()

		for _, e := range entries {
			if e.ok {
				c.Graph.Drop(e.id)
			}
		}
		logging.Info("Lifecycle", "layer %v completed CLEANUP", layer)
	}
	return errs
}

// Launch brings services up (with rollback on bring-up failure), activates
// ONLINE once every service is past PREPARE, then blocks until every service
// has completed ONLINE, ctx is cancelled, or any daemon terminates
// unexpectedly, then tears every service
// started by this call back down. It returns a *LaunchError if anything
// failed at any stage, or nil on a clean run to completion.
func (c *Controller) Launch(ctx context.Context, services []Service) error {
	completed, failedDaemon, err := c.bringUp(ctx, services)
	ids := flattenLayers(completed)

	if err != nil {
		return &LaunchError{BringUp: []error{err}}
	}
	if failedDaemon != nil {
		bringUpErr := daemonError(failedDaemon)
		teardownErrs := c.teardown(context.Background(), ids)
		return &LaunchError{BringUp: []error{bringUpErr}, Teardown: teardownErrs}
	}

	c.activateOnline(ids)
	waitErr := c.awaitOnline(ctx, ids)
	// Cleanup always runs to completion on its own schedule: the original ctx
	// may already be cancelled (that is usually why we are here), so a fresh
	// background context drives the teardown wait instead.
	teardownErrs := c.teardown(context.Background(), ids)
	if waitErr == nil && len(teardownErrs) == 0 {
		return nil
	}
	le := &LaunchError{Teardown: teardownErrs}
	if waitErr != nil {
		le.BringUp = []error{waitErr}
	}
	return le
}

// activateOnline dispatches (ONLINE, PENDING) to every id, once every brought
// up layer has completed PREPARE. Per spec this happens once across the whole
// batch, not per layer: once dispatched, a service's online() body runs
// without any further barrier, unlike PREPARE's layer-by-layer lockstep.
func (c *Controller) activateOnline(ids []string) {
	for _, id := range ids {
		if sc, ok := c.Graph.Context(id); ok {
			sc.forward(StageOnline, PhasePending)
		}
	}
}

// awaitOnline records one wait-task per id for (ONLINE, COMPLETED) on a
// TaskGroup, so the main wait loop observes all services' eventual
// completion, and returns as soon as either the group finishes, ctx is done,
// or any daemon terminates before reaching (ONLINE, COMPLETED).
func (c *Controller) awaitOnline(ctx context.Context, ids []string) error {
	group := NewTaskGroup()
	var handles []*Handle
	for _, id := range ids {
		sc, ok := c.Graph.Context(id)
		d, dok := c.Graph.Daemon(id)
		if !ok || !dok {
			continue
		}
		h := group.Spawn(ctx, func(taskCtx context.Context) error {
			reached := make(chan struct{})
			go func() {
				_ = sc.WaitFor(taskCtx, StageOnline, PhaseCompleted)
				close(reached)
			}()
			select {
			case <-reached:
				return nil
			case <-d.Done():
				return daemonError(d)
			case <-taskCtx.Done():
				return nil
			}
		})
		handles = append(handles, h)
	}

	failed := make(chan error, 1)
	for _, h := range handles {
		h := h
		go func() {
			<-h.done
			if err := h.Err(); err != nil {
				select {
				case failed <- err:
				default:
				}
			}
		}()
	}

	waitDone := make(chan error, 1)
	go func() { waitDone <- group.Wait(ctx) }()

	select {
	case err := <-failed:
		return err
	case err := <-waitDone:
		if err == context.Canceled || err == context.DeadlineExceeded {
			return nil
		}
		return err
	}
}

// LaunchBlocking is Launch plus SIGINT/SIGTERM handling and systemd
// readiness notification: it installs a signal handler that cancels a
// derived context on the first SIGINT/SIGTERM, notifies systemd once all
// services are online, and notifies systemd that it is stopping as soon as
// shutdown begins.
func (c *Controller) LaunchBlocking(ctx context.Context, services []Service) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logging.Info("Lifecycle", "received interrupt, shutting down")
			cancel()
		case <-runCtx.Done():
		}
	}()

	completed, failedDaemon, err := c.bringUp(runCtx, services)
	ids := flattenLayers(completed)
	if err != nil {
		return &LaunchError{BringUp: []error{err}}
	}
	if failedDaemon != nil {
		bringUpErr := daemonError(failedDaemon)
		// Teardown always runs to completion regardless of what triggered it.
		teardownErrs := c.teardown(context.Background(), ids)
		return &LaunchError{BringUp: []error{bringUpErr}, Teardown: teardownErrs}
	}

	c.activateOnline(ids)
	if _, nerr := daemon.SdNotify(false, daemon.SdNotifyReady); nerr != nil {
		logging.Debug("Lifecycle", "sd_notify ready skipped: %v", nerr)
	}

	waitErr := c.awaitOnline(runCtx, ids)

	if _, nerr := daemon.SdNotify(false, daemon.SdNotifyStopping); nerr != nil {
		logging.Debug("Lifecycle", "sd_notify stopping skipped: %v", nerr)
	}

	teardownErrs := c.teardown(context.Background(), ids)
	if waitErr == nil && len(teardownErrs) == 0 {
		return nil
	}
	le := &LaunchError{Teardown: teardownErrs}
	if waitErr != nil {
		le.BringUp = []error{waitErr}
	}
	return le
}

// Remove validates that dropping ids would not strand a live dependent, tears
// them down, and returns the result. It fails fast with a
// *DependencyBrokenError without touching anything if the removal is unsafe.
func (c *Controller) Remove(ctx context.Context, ids ...string) error {
	remove := map[string]struct{}{}
	for _, id := range ids {
		remove[id] = struct{}{}
	}
	if err := ValidateRemoval(c.Graph.Requirements(), remove); err != nil {
		return err
	}
	errs := c.teardown(ctx, ids)
	if len(errs) == 0 {
		return nil
	}
	return &LaunchError{Teardown: errs}
}

func daemonError(d *Daemon) error {
	if err := d.Err(); err != nil {
		return err
	}
	return &UnhandledExitError{ServiceID: d.ServiceID}
}

func flattenLayers(layers [][]string) []string {
	var out []string
	for _, layer := range layers {
		out = append(out, layer...)
	}
	sort.Strings(out)
	return out
}
