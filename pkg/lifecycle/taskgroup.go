package lifecycle

import (
	"context"
	"sync"
)

// Handle identifies one task spawned into a TaskGroup, returned by Spawn so
// the caller can later Drop it.
type Handle struct {
	done chan struct{}
	err  error
	mu   *sync.Mutex
}

func (h *Handle) finished() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Err returns the error the task completed with, if it has finished.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// TaskGroup tracks a dynamic set of goroutines and lets a caller wait until
// every currently-tracked task has finished, re-observing the set each time
// it changes (spawn, drop, or stop) rather than snapshotting it once. This
// mirrors firework's util.TaskGroup: Wait races "all tracked tasks are done"
// against "the tracked set changed," and loops until every tracked task has
// finished with no change to the set in between (an empty set counts as
// finished), or Stop is called.
type TaskGroup struct {
	mu      sync.Mutex
	tasks   []*Handle
	notify  chan struct{}
	stopped bool
}

// NewTaskGroup returns an empty, running TaskGroup.
func NewTaskGroup() *TaskGroup {
	return &TaskGroup{notify: make(chan struct{})}
}

func (g *TaskGroup) flush() {
	old := g.notify
	g.notify = make(chan struct{})
	close(old)
}

// Spawn runs fn on a new goroutine and starts tracking it. The returned
// Handle can be passed to Drop to stop tracking it (without cancelling fn).
func (g *TaskGroup) Spawn(ctx context.Context, fn func(ctx context.Context) error) *Handle {
	h := &Handle{done: make(chan struct{}), mu: &sync.Mutex{}}
	go func() {
		err := fn(ctx)
		h.mu.Lock()
		h.err = err
		h.mu.Unlock()
		close(h.done)
		g.mu.Lock()
		g.flush()
		g.mu.Unlock()
	}()

	g.mu.Lock()
	g.tasks = append(g.tasks, h)
	g.flush()
	g.mu.Unlock()
	return h
}

// Drop stops tracking the given handles. It does not cancel or wait for the
// underlying goroutines; callers that need that should cancel their own ctx.
func (g *TaskGroup) Drop(handles ...*Handle) {
	g.mu.Lock()
	defer g.mu.Unlock()
	drop := make(map[*Handle]struct{}, len(handles))
	for _, h := range handles {
		drop[h] = struct{}{}
	}
	kept := g.tasks[:0:0]
	for _, h := range g.tasks {
		if _, ok := drop[h]; !ok {
			kept = append(kept, h)
		}
	}
	g.tasks = kept
	g.flush()
}

// Stop marks the group stopped: a concurrent or future Wait call returns as
// soon as it next observes the set, rather than blocking for completion.
func (g *TaskGroup) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopped = true
	g.flush()
}

// Wait blocks until every currently-tracked task has finished and no new
// task was added in the meantime, until Stop is called, or until ctx is done.
// A group with no tracked tasks returns nil at once.
func (g *TaskGroup) Wait(ctx context.Context) error {
	for {
		g.mu.Lock()
		tasks := append([]*Handle(nil), g.tasks...)
		ch := g.notify
		stopped := g.stopped
		g.mu.Unlock()

		if stopped {
			return nil
		}

		if len(tasks) == 0 {
			return nil
		}

		allDone := make(chan struct{})
		go func() {
			for _, t := range tasks {
				<-t.done
			}
			close(allDone)
		}()

		select {
		case <-allDone:
			g.mu.Lock()
			changed := len(g.tasks) != len(tasks)
			g.mu.Unlock()
			if !changed {
				return nil
			}
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
