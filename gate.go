package asyncq

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Gate bounds the number of simultaneously in-flight operations.
type Gate interface {
	// Enter blocks until a slot is available. It fails with ErrCancelled if ctx
	// is done before or while waiting; in that case no slot is held.
	Enter(ctx context.Context) error
	// Exit releases a slot obtained by a successful Enter.
	Exit()
}

// NewGate returns a Gate admitting at most limit holders. A limit <= 0 returns
// the unbounded gate, which never blocks.
func NewGate(limit int) Gate {
	if limit <= 0 {
		return unboundedGate{}
	}
	return &boundedGate{sem: semaphore.NewWeighted(int64(limit))}
}

type boundedGate struct {
	sem *semaphore.Weighted
}

func (g *boundedGate) Enter(ctx context.Context) error {
	// Weighted.Acquire may succeed on a done context when a slot is free.
	if err := ctx.Err(); err != nil {
		return cancelled(ctx)
	}
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return cancelled(ctx)
	}
	return nil
}

func (g *boundedGate) Exit() { g.sem.Release(1) }

type unboundedGate struct{}

func (unboundedGate) Enter(ctx context.Context) error {
	if ctx.Err() != nil {
		return cancelled(ctx)
	}
	return nil
}

func (unboundedGate) Exit() {}

func cancelled(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrCancelled, context.Cause(ctx))
}
