package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestNewFixed_ZeroPanics(t *testing.T) {
	require.Panics(t, func() { NewFixed(0) })
}

func TestFixed_RunsEverything(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := NewFixed(3)
	var ran atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		require.NoError(t, f.Go(context.Background(), func() {
			defer wg.Done()
			ran.Add(1)
		}))
	}
	wg.Wait()
	require.NoError(t, f.Close())
	require.EqualValues(t, 20, ran.Load())
}

func TestFixed_NeverExceedsWorkerCount(t *testing.T) {
	f := NewFixed(2)
	defer func() { require.NoError(t, f.Close()) }()

	var cur, peak atomic.Int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		require.NoError(t, f.Go(context.Background(), func() {
			defer wg.Done()
			v := cur.Add(1)
			for {
				p := peak.Load()
				if v <= p || peak.CompareAndSwap(p, v) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			cur.Add(-1)
		}))
	}
	wg.Wait()
	require.LessOrEqual(t, peak.Load(), int32(2))
}

func TestFixed_GoBlocksWhileWorkersBusy(t *testing.T) {
	f := NewFixed(1)
	release := make(chan struct{})
	require.NoError(t, f.Go(context.Background(), func() { <-release }))

	accepted := make(chan struct{})
	go func() {
		_ = f.Go(context.Background(), func() {})
		close(accepted)
	}()

	select {
	case <-accepted:
		t.Fatalf("Go returned while the only worker was busy")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-accepted:
	case <-time.After(time.Second):
		t.Fatalf("Go did not return after the worker became idle")
	}
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
}

func TestDynamic_RunsOnNewGoroutine(t *testing.T) {
	done := make(chan struct{})
	require.NoError(t, NewDynamic().Go(context.Background(), func() { close(done) }))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("function did not run")
	}
}

func TestFixed_GoGivesUpOnDoneContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := NewFixed(1)
	release := make(chan struct{})
	require.NoError(t, f.Go(context.Background(), func() { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	var ran atomic.Bool
	err := f.Go(ctx, func() { ran.Store(true) })
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, f.Close())
	require.False(t, ran.Load())
}

func TestDynamic_RefusesDoneContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, NewDynamic().Go(ctx, func() { t.Error("ran") }), context.Canceled)
}
