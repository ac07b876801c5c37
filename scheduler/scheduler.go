// Package scheduler provides the execution contexts asyncq operators run their
// asynchronous operations on.
package scheduler

import "context"

// Scheduler runs functions asynchronously.
type Scheduler interface {
	// Go arranges for fn to run on some goroutine. It may block until the
	// scheduler has capacity to accept fn; it returns ctx.Err() without
	// running fn if ctx is done first.
	Go(ctx context.Context, fn func()) error
}
