package lifecycle

import "context"

// Daemon wraps the single goroutine running one service's Launch. It always
// drives the context's ExitComplete once Launch returns, regardless of
// outcome, so the Controller's tear-down wait can rely on (EXIT, COMPLETED)
// being reachable for every daemon it ever spawned.
type Daemon struct {
	ServiceID string
	done      chan struct{}
	err       error
}

func newDaemon(ctx context.Context, svc Service, sc *ServiceContext) *Daemon {
	d := &Daemon{ServiceID: svc.ID(), done: make(chan struct{})}
	go func() {
		defer close(d.done)
		d.err = svc.Launch(ctx, sc)
		sc.ExitComplete()
	}()
	return d
}

// Done returns a channel closed once the daemon's Launch has returned.
func (d *Daemon) Done() <-chan struct{} {
	return d.done
}

// Finished reports whether the daemon has already terminated.
func (d *Daemon) Finished() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}

// Err returns the error Launch returned. Only meaningful once Finished is true.
func (d *Daemon) Err() error {
	return d.err
}
