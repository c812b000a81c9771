package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskGroupWaitReturnsWhenEmpty(t *testing.T) {
	g := NewTaskGroup()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	// an empty group has nothing to wait for, so Wait returns at once; the
	// later Stop from another goroutine is harmless.
	go func() {
		time.Sleep(5 * time.Millisecond)
		g.Stop()
	}()
	require.NoError(t, g.Wait(ctx))
}

func TestTaskGroupWaitsForAllSpawned(t *testing.T) {
	g := NewTaskGroup()
	ctx := context.Background()
	done := make(chan struct{})
	g.Spawn(ctx, func(ctx context.Context) error {
		close(done)
		return nil
	})
	g.Spawn(ctx, func(ctx context.Context) error {
		<-done
		time.Sleep(5 * time.Millisecond)
		return nil
	})

	waitCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, g.Wait(waitCtx))
}

func TestTaskGroupDropStopsTracking(t *testing.T) {
	g := NewTaskGroup()
	ctx := context.Background()
	block := make(chan struct{})
	h := g.Spawn(ctx, func(ctx context.Context) error {
		<-block
		return nil
	})
	g.Drop(h)

	waitCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, g.Wait(waitCtx))
	close(block)
}

func TestTaskGroupSpawnAfterWaitStartedWakesBarrier(t *testing.T) {
	g := NewTaskGroup()
	ctx := context.Background()
	waitDone := make(chan error, 1)
	waitCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go func() {
		waitDone <- g.Wait(waitCtx)
	}()

	time.Sleep(5 * time.Millisecond)
	g.Spawn(ctx, func(ctx context.Context) error { return nil })

	select {
	case err := <-waitDone:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Wait did not observe the newly spawned task")
	}
}
