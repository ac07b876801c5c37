package asyncq

import (
	"context"
	"slices"
)

// Map applies fn to every item concurrently and returns the results.
// Semantics:
//   - Results follow completion order by default; input order with WithPreserveOrder.
//   - The first fault (tagged with its item index) cancels the remaining work and is
//     returned once every started evaluation has finished; the results gathered so far
//     are returned alongside it.
func Map[T, R any](
	ctx context.Context,
	items []T,
	fn func(context.Context, T) (R, error),
	opts Options,
) ([]R, error) {
	if fn == nil {
		return nil, invalidArgument("fn")
	}
	if len(items) == 0 {
		return nil, opts.validate()
	}
	stream, err := SelectAsync(ctx, slices.Values(items), fn, opts)
	if err != nil {
		return nil, err
	}
	results := make([]R, 0, len(items))
	for r, err := range stream {
		if err != nil {
			return results, err
		}
		results = append(results, r)
	}
	return results, nil
}
