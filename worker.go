package asyncq

import (
	"context"
	"time"
)

// launch runs the evaluator for one item on the scheduler. The gate slot taken
// by the driver is released after the completion has been posted. If the
// scheduler gives up because the collection was cancelled, the slot is
// released at once and the cancellation is returned.
func (c *collector[T, R]) launch(index int, item T) error {
	c.evaluators.Add(1)
	c.inflight.Add(1)
	scheduled := false
	defer func() {
		// refused, or the scheduler panicked (e.g. a closed fixed scheduler)
		if !scheduled {
			c.inflight.Add(-1)
			c.gate.Exit()
			c.evaluators.Done()
		}
	}()

	err := c.sched.Go(c.ctx, func() {
		defer c.evaluators.Done()
		defer c.gate.Exit()

		start := time.Now()
		v, err := Task[R](func(ctx context.Context) (R, error) { return c.eval(ctx, item) }).Run(c.ctx)
		c.seconds.Record(time.Since(start).Seconds())
		c.inflight.Add(-1)
		if err != nil {
			c.faults.Add(1)
		}

		c.post(resultNotice[T, R]{item: item, completion: Completion[R]{Index: index, Value: v, Err: err}}, err)
	})
	if err != nil {
		return cancelled(c.ctx)
	}
	scheduled = true
	c.started.Add(1)
	return nil
}
