package asyncq

import (
	"context"
	"errors"
	"slices"
)

// ForEach applies fn to each item concurrently. Unlike Map, a failing item does
// not stop the others: every item is processed and the item errors, tagged with
// their indexes, are joined (errors.Join). Cancellation of ctx ends the run early.
func ForEach[T any](ctx context.Context, items []T, fn func(context.Context, T) error, opts Options) error {
	if fn == nil {
		return invalidArgument("fn")
	}
	if len(items) == 0 {
		return opts.validate()
	}
	stream, err := AwaitCompletion(ctx, slices.Values(items),
		func(ctx context.Context, item T) (struct{}, error) { return struct{}{}, fn(ctx, item) },
		func(_ T, c Completion[struct{}]) error { return newIndexTaggedError(c.Err, c.Index) },
		opts,
	)
	if err != nil {
		return err
	}
	var errs []error
	for itemErr, err := range stream {
		if err != nil {
			errs = append(errs, err)
			break
		}
		if itemErr != nil {
			errs = append(errs, itemErr)
		}
	}
	return errors.Join(errs...)
}
