package asyncq

import (
	"context"
	"fmt"
)

// Task is a unit of asynchronous work producing an R.
// Use TaskValue / TaskError to adapt other function shapes.
type Task[R any] func(context.Context) (R, error)

// TaskValue adapts func(ctx) R to Task[R].
func TaskValue[R any](fn func(context.Context) R) Task[R] {
	return func(ctx context.Context) (R, error) { return fn(ctx), nil }
}

// TaskError adapts func(ctx) error to Task[R]; the result is the zero R.
func TaskError[R any](fn func(context.Context) error) Task[R] {
	return func(ctx context.Context) (R, error) { var zero R; return zero, fn(ctx) }
}

// Run executes the task on the calling goroutine. A panic is recovered and
// reported as an error wrapping ErrEvaluatorPanicked.
func (t Task[R]) Run(ctx context.Context) (result R, err error) {
	defer func() {
		if p := recover(); p != nil {
			var zero R
			result, err = zero, fmt.Errorf("%w: %v", ErrEvaluatorPanicked, p)
		}
	}()
	return t(ctx)
}

// Completion is the outcome of evaluating one source item.
type Completion[R any] struct {
	// Index is the zero-based position of the item in the source.
	Index int
	Value R
	// Err is the evaluator's error, a recovered panic, or a cancellation.
	Err error
}

// Succeeded reports whether the evaluation returned without error.
func (c Completion[R]) Succeeded() bool { return c.Err == nil }
