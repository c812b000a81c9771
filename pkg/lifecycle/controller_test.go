package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingService runs through PREPARE/ONLINE/CLEANUP immediately, appending
// its id to a shared, mutex-guarded trace each time it enters a stage.
type recordingService struct {
	Base
	mu    *sync.Mutex
	trace *[]string
	fail  bool
}

func (s *recordingService) record(tag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.trace = append(*s.trace, s.IDValue+":"+tag)
}

func (s *recordingService) Launch(ctx context.Context, sc *ServiceContext) error {
	if err := sc.Prepare(ctx, func(context.Context) error {
		s.record("prepare")
		if s.fail {
			return assert.AnError
		}
		return nil
	}); err != nil {
		return err
	}
	if err := sc.Online(ctx, func(ctx context.Context) error {
		s.record("online")
		return sc.WaitForExit(ctx)
	}); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return sc.Cleanup(context.Background(), func(context.Context) error {
		s.record("cleanup")
		return nil
	})
}

func newRecordingService(id string, mu *sync.Mutex, trace *[]string, deps ...string) *recordingService {
	return &recordingService{Base: Base{IDValue: id, DependsOnIDs: deps}, mu: mu, trace: trace}
}

func TestControllerLaunchDiamondBringUpAndTeardown(t *testing.T) {
	var mu sync.Mutex
	var trace []string

	a := newRecordingService("A", &mu, &trace)
	b := newRecordingService("B", &mu, &trace, "A")
	c := newRecordingService("C", &mu, &trace, "A")
	d := newRecordingService("D", &mu, &trace, "B", "C")

	ctl := NewController()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := ctl.Launch(ctx, []Service{a, b, c, d})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	aPrepareIdx := indexOf(trace, "A:prepare")
	bPrepareIdx := indexOf(trace, "B:prepare")
	cPrepareIdx := indexOf(trace, "C:prepare")
	dPrepareIdx := indexOf(trace, "D:prepare")
	require.GreaterOrEqual(t, bPrepareIdx, 0)
	require.GreaterOrEqual(t, cPrepareIdx, 0)
	assert.Less(t, aPrepareIdx, bPrepareIdx)
	assert.Less(t, aPrepareIdx, cPrepareIdx)
	assert.Less(t, bPrepareIdx, dPrepareIdx)
	assert.Less(t, cPrepareIdx, dPrepareIdx)

	for _, id := range []string{"A", "B", "C", "D"} {
		assert.Contains(t, trace, id+":online")
		assert.Contains(t, trace, id+":cleanup")
	}

	dCleanupIdx := indexOf(trace, "D:cleanup")
	aCleanupIdx := indexOf(trace, "A:cleanup")
	assert.Less(t, dCleanupIdx, aCleanupIdx)
}

func TestControllerRollsBackOnBringUpFailure(t *testing.T) {
	var mu sync.Mutex
	var trace []string

	a := newRecordingService("A", &mu, &trace)
	a.fail = true
	b := newRecordingService("B", &mu, &trace, "A")

	ctl := NewController()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := ctl.Launch(ctx, []Service{a, b})
	require.Error(t, err)
	var lerr *LaunchError
	require.ErrorAs(t, err, &lerr)
	require.True(t, lerr.HasFailures())

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, trace, "A:prepare")
	assert.NotContains(t, trace, "B:prepare")
}

// failOnlineService reaches ONLINE and then returns a genuine (non-context)
// error from its online body, simulating steady-state work that fails on its
// own rather than being asked to exit.
type failOnlineService struct {
	Base
	mu    *sync.Mutex
	trace *[]string
}

func (s *failOnlineService) Launch(ctx context.Context, sc *ServiceContext) error {
	if err := sc.Prepare(ctx, func(context.Context) error { return nil }); err != nil {
		return err
	}
	return sc.Online(ctx, func(context.Context) error {
		s.mu.Lock()
		*s.trace = append(*s.trace, s.IDValue+":online")
		s.mu.Unlock()
		return assert.AnError
	})
}

func TestControllerSurfacesGenuineOnlineFailure(t *testing.T) {
	var mu sync.Mutex
	var trace []string

	a := newRecordingService("A", &mu, &trace)
	b := &failOnlineService{Base: Base{IDValue: "B", DependsOnIDs: []string{"A"}}, mu: &mu, trace: &trace}

	ctl := NewController()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := ctl.Launch(ctx, []Service{a, b})
	require.Error(t, err)
	var lerr *LaunchError
	require.ErrorAs(t, err, &lerr)
	require.True(t, lerr.HasFailures())

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, trace, "B:online")
}

func TestControllerRemoveRejectsBreakingLiveDependent(t *testing.T) {
	var mu sync.Mutex
	var trace []string

	a := newRecordingService("A", &mu, &trace)
	d := newRecordingService("D", &mu, &trace, "A")

	ctl := NewController()
	ctx := context.Background()

	completed, failed, err := ctl.bringUp(ctx, []Service{a, d})
	require.NoError(t, err)
	require.Nil(t, failed)
	require.Len(t, completed, 2)
	ctl.activateOnline(flattenLayers(completed))

	err = ctl.Remove(ctx, "A")
	require.Error(t, err)
	var derr *DependencyBrokenError
	require.ErrorAs(t, err, &derr)

	require.NoError(t, ctl.Remove(ctx, "A", "D"))
}

func indexOf(haystack []string, needle string) int {
	for i, v := range haystack {
		if v == needle {
			return i
		}
	}
	return -1
}
