package lifecycle

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// RequirementResolveFailedError is returned by Resolve when the remaining
// unresolved requirements form a cycle (or reference an id that never
// resolves), so no further layer can be produced.
type RequirementResolveFailedError struct {
	Unresolved []string
}

func (e *RequirementResolveFailedError) Error() string {
	ids := append([]string(nil), e.Unresolved...)
	sort.Strings(ids)
	return fmt.Sprintf("lifecycle: could not resolve requirements, cycle or missing dependency among: %s", strings.Join(ids, ", "))
}

// DependencyBrokenError is returned when removing a set of services would
// leave a live service depending on something no longer present.
type DependencyBrokenError struct {
	Node      string
	Dependent string
}

func (e *DependencyBrokenError) Error() string {
	return fmt.Sprintf("lifecycle: cannot remove %q, %q still depends on it", e.Node, e.Dependent)
}

// IllegalTransitionError indicates a service (or the controller driving it)
// attempted to move a ServiceContext backward, or re-enter a phase it has
// already completed. This is a programmer error in the service's own Launch
// implementation, not a runtime condition a caller can recover from; forward
// panics with this value instead of returning it.
type IllegalTransitionError struct {
	From Status
	To   Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("lifecycle: illegal transition from %s to %s", e.From, e.To)
}

// UnhandledExitError is used as a placeholder when a daemon's goroutine
// terminates without an error while the controller still expected it to be
// alive (e.g. it returned during bring-up before reaching the barrier it was
// waiting on).
type UnhandledExitError struct {
	ServiceID string
}

func (e *UnhandledExitError) Error() string {
	return fmt.Sprintf("lifecycle: service %q exited without error while still expected to be running", e.ServiceID)
}

// LaunchError aggregates every failure observed while bringing a batch of
// services up and, if rollback ran, while tearing them back down. Bring-up
// failures are appended first in layer order, then tear-down failures in
// reverse-layer order, matching the policy fixed in SPEC_FULL.md.
type LaunchError struct {
	BringUp  []error
	Teardown []error
}

func (e *LaunchError) Error() string {
	agg := new(multierror.Error)
	for _, err := range e.BringUp {
		agg = multierror.Append(agg, err)
	}
	for _, err := range e.Teardown {
		agg = multierror.Append(agg, err)
	}
	return agg.Error()
}

func (e *LaunchError) Unwrap() []error {
	all := make([]error, 0, len(e.BringUp)+len(e.Teardown))
	all = append(all, e.BringUp...)
	all = append(all, e.Teardown...)
	return all
}

// HasFailures reports whether any bring-up or tear-down error was recorded.
func (e *LaunchError) HasFailures() bool {
	return len(e.BringUp) > 0 || len(e.Teardown) > 0
}
