package scheduler

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Fixed is a Scheduler backed by a fixed number of long-lived worker goroutines.
// Go blocks while every worker is busy. A Fixed scheduler must be sized at least
// at the max concurrency of the operators using it; otherwise operations queue
// behind in-flight ones.
type Fixed struct {
	tasks     chan func()
	group     errgroup.Group
	closeOnce sync.Once
}

// NewFixed starts n workers. It panics if n == 0.
func NewFixed(n uint) *Fixed {
	if n == 0 {
		panic("scheduler: NewFixed requires n > 0")
	}
	f := &Fixed{tasks: make(chan func())}
	for range n {
		f.group.Go(f.work)
	}
	return f
}

func (f *Fixed) work() error {
	for fn := range f.tasks {
		fn()
	}
	return nil
}

// Go hands fn to the next idle worker, or gives up when ctx is done first.
// Calling Go after Close panics.
func (f *Fixed) Go(ctx context.Context, fn func()) error {
	select {
	case f.tasks <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting functions and waits for the workers to finish the ones
// already handed over. It is idempotent.
func (f *Fixed) Close() error {
	f.closeOnce.Do(func() { close(f.tasks) })
	return f.group.Wait()
}
