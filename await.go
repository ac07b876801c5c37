package asyncq

import (
	"context"
	"errors"
	"iter"
)

// AwaitCompletion evaluates every item of items concurrently and streams
// resultSelector(item, completion) as evaluations complete. At most
// opts.MaxConcurrency evaluations are in flight; with opts.PreserveOrder the
// stream follows the order of items.
//
// Evaluator faults, including panics, are delivered as Completion.Err and do
// not end the stream. The stream ends with a fatal error when the context is
// cancelled, the source panics, or completions can no longer be delivered. A
// panic in resultSelector propagates to the consumer after teardown.
//
// Whatever ends the stream, including a break by the consumer, it returns only
// after every launched evaluation has finished.
func AwaitCompletion[T, R, V any](
	ctx context.Context,
	items iter.Seq[T],
	evaluator func(context.Context, T) (R, error),
	resultSelector func(T, Completion[R]) V,
	opts Options,
) (iter.Seq2[V, error], error) {
	switch {
	case items == nil:
		return nil, invalidArgument("items")
	case evaluator == nil:
		return nil, invalidArgument("evaluator")
	case resultSelector == nil:
		return nil, invalidArgument("resultSelector")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return collectStream(ctx, items, evaluator, func(item T, c Completion[R]) (V, error) {
		return resultSelector(item, c), nil
	}, opts), nil
}

// SelectAsync is the projection form of AwaitCompletion: it streams the
// selector results. A selector fault is fatal; it ends the stream, tagged with
// the item index (see ExtractIndex), where that item's result would have been
// delivered.
func SelectAsync[T, R any](
	ctx context.Context,
	items iter.Seq[T],
	selector func(context.Context, T) (R, error),
	opts Options,
) (iter.Seq2[R, error], error) {
	switch {
	case items == nil:
		return nil, invalidArgument("items")
	case selector == nil:
		return nil, invalidArgument("selector")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return collectStream(ctx, items, selector, valueOrFault[T, R], opts), nil
}

// Await runs a sequence of tasks concurrently and streams their results.
// Faults are handled as in SelectAsync; a nil task is an ErrInvalidArgument fault.
func Await[R any](ctx context.Context, tasks iter.Seq[Task[R]], opts Options) (iter.Seq2[R, error], error) {
	if tasks == nil {
		return nil, invalidArgument("tasks")
	}
	return SelectAsync(ctx, tasks, func(ctx context.Context, t Task[R]) (R, error) {
		if t == nil {
			var zero R
			return zero, invalidArgument("task")
		}
		return t(ctx)
	}, opts)
}

func valueOrFault[T, R any](_ T, c Completion[R]) (R, error) {
	if c.Err != nil {
		var zero R
		return zero, newIndexTaggedError(c.Err, c.Index)
	}
	return c.Value, nil
}

func collectStream[T, R, V any](
	ctx context.Context,
	items iter.Seq[T],
	eval func(context.Context, T) (R, error),
	project func(T, Completion[R]) (V, error),
	opts Options,
) iter.Seq2[V, error] {
	return func(yield func(V, error) bool) {
		c := newCollector(ctx, items, eval, opts)
		err := c.run(func(item T, comp Completion[R]) error {
			v, err := project(item, comp)
			if err != nil {
				return err
			}
			if !yield(v, nil) {
				return errStopped
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStopped) {
			var zero V
			yield(zero, err)
		}
	}
}
