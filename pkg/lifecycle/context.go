package lifecycle

import (
	"context"
	"sync"
)

// ServiceContext tracks one service's position in the PREPARE/ONLINE/CLEANUP/
// EXIT lifecycle and lets callers block until a target Status is reached, or
// until the context is asked to exit. It mirrors the asyncio.Event set/clear
// dance from the Python original with a channel that is closed then replaced
// on every transition: anyone blocked on the old channel wakes up, re-checks
// the status, and either returns or waits on the fresh channel.
type ServiceContext struct {
	mu      sync.Mutex
	status  Status
	notify  chan struct{}
	sigexit chan struct{}
	exited  bool
}

// NewServiceContext constructs a ServiceContext positioned before PREPARE has
// begun. Exported for tests and for callers composing their own daemons
// outside of a Controller.
func NewServiceContext() *ServiceContext {
	return &ServiceContext{
		status:  Status{Stage: stageUnstarted, Phase: PhaseWaiting},
		notify:  make(chan struct{}),
		sigexit: make(chan struct{}),
	}
}

// stageUnstarted sorts before StagePrepare so the very first forward call (to
// (PREPARE, WAITING)) is accepted rather than rejected as a non-advancing
// transition.
const stageUnstarted Stage = -1

// Status returns the current (Stage, Phase).
func (c *ServiceContext) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// forward advances the context to (stage, phase). Moving to an earlier stage,
// or to an equal-or-earlier phase within the same stage, panics with
// *IllegalTransitionError: these are invariant violations in the caller, not
// recoverable runtime errors.
func (c *ServiceContext) forward(stage Stage, phase Phase) {
	c.mu.Lock()
	prev := c.status
	if stage < prev.Stage {
		c.mu.Unlock()
		panic(&IllegalTransitionError{From: prev, To: Status{Stage: stage, Phase: phase}})
	}
	if stage == prev.Stage {
		if phase <= prev.Phase {
			c.mu.Unlock()
			panic(&IllegalTransitionError{From: prev, To: Status{Stage: stage, Phase: phase}})
		}
	}
	c.status = Status{Stage: stage, Phase: phase}
	old := c.notify
	c.notify = make(chan struct{})
	c.mu.Unlock()
	close(old)
}

// WaitFor blocks until the context reaches or passes (stage, phase), or ctx is
// done, whichever comes first.
func (c *ServiceContext) WaitFor(ctx context.Context, stage Stage, phase Phase) error {
	target := Status{Stage: stage, Phase: phase}
	for {
		c.mu.Lock()
		cur := c.status
		ch := c.notify
		c.mu.Unlock()
		if cur.AtLeast(target) {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ShouldExit reports whether Exit has been called on this context.
func (c *ServiceContext) ShouldExit() bool {
	select {
	case <-c.sigexit:
		return true
	default:
		return false
	}
}

// WaitForExit blocks until Exit is called, or ctx is done.
func (c *ServiceContext) WaitForExit(ctx context.Context) error {
	select {
	case <-c.sigexit:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Exit sets the sticky should-exit flag. Safe to call more than once and
// concurrently with everything else on the context.
func (c *ServiceContext) Exit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.exited {
		c.exited = true
		close(c.sigexit)
	}
}

// ExitComplete marks the context as having reached (EXIT, COMPLETED) directly,
// bypassing the forward ordering check: it is called once, by the daemon
// wrapper, after a service's Launch returns regardless of outcome.
func (c *ServiceContext) ExitComplete() {
	c.mu.Lock()
	target := Status{Stage: StageExit, Phase: PhaseCompleted}
	old := c.notify
	c.notify = make(chan struct{})
	c.status = target
	c.mu.Unlock()
	close(old)
}

// Prepare runs fn as the PREPARE scope: it forwards to (PREPARE, WAITING),
// waits for the controller to dispatch (PREPARE, PENDING), runs fn, then
// forwards to (PREPARE, COMPLETED) even if fn returns an error.
func (c *ServiceContext) Prepare(ctx context.Context, fn func(context.Context) error) error {
	return c.scope(ctx, StagePrepare, fn)
}

// Online runs fn as the ONLINE scope, the same way Prepare runs it for PREPARE.
func (c *ServiceContext) Online(ctx context.Context, fn func(context.Context) error) error {
	return c.scope(ctx, StageOnline, fn)
}

// Cleanup runs fn as the CLEANUP scope, the same way Prepare runs it for PREPARE.
func (c *ServiceContext) Cleanup(ctx context.Context, fn func(context.Context) error) error {
	return c.scope(ctx, StageCleanup, fn)
}

func (c *ServiceContext) scope(ctx context.Context, stage Stage, fn func(context.Context) error) error {
	c.forward(stage, PhaseWaiting)
	if err := c.WaitFor(ctx, stage, PhasePending); err != nil {
		return err
	}
	defer c.forward(stage, PhaseCompleted)
	return fn(ctx)
}
