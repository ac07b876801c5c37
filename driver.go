package asyncq

import (
	"fmt"
)

// drive enumerates the source on its own goroutine and launches one evaluator
// per item, each after entering the gate. Items are indexed in dequeue order.
// Once the source is exhausted and every evaluator has finished it posts a
// single endNotice. A cancelled gate, a refused launch or a panicking source
// posts an errorNotice right away instead. drive never touches the order
// restorer or the consumer's state.
func (c *collector[T, R]) drive() {
	defer close(c.driverDone)
	defer func() {
		if p := recover(); p != nil {
			// Posted at once; teardown cancels and drains the evaluators.
			err := fmt.Errorf("%w: %v", ErrSourcePanicked, p)
			c.post(errorNotice{err: err}, err)
		}
	}()

	index := 0
	for item := range c.items {
		if err := c.gate.Enter(c.ctx); err != nil {
			c.post(errorNotice{err: err}, err)
			return
		}
		if err := c.launch(index, item); err != nil {
			c.post(errorNotice{err: err}, err)
			return
		}
		index++
	}

	c.evaluators.Wait()
	c.post(endNotice{}, nil)
}
