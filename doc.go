// Package asyncq coordinates concurrent asynchronous sequences.
//
// It provides two families of operators:
//   - Merge / MergeSeq / FlatMap: interleave the elements of many asynchronous
//     iterators into a single stream, as each becomes ready.
//   - AwaitCompletion / SelectAsync / Await: run one asynchronous evaluation per
//     source item and stream the completions back, optionally in input order.
//
// Streams
// Every operator returns an iter.Seq2[V, error]. Ranging over it drives the
// coordination; breaking out of the loop abandons the stream. A fatal fault is
// delivered as a single final (zero, err) pair. In all cases the operator tears
// down before the range statement returns: outstanding work is cancelled and
// waited for, and every iterator that was opened is closed exactly once, never
// while a read against it is still in flight.
//
// Defaults
// The zero Options value is ready to use:
//   - MaxConcurrency: unbounded
//   - PreserveOrder: false
//   - Scheduler: one goroutine per operation (scheduler.NewDynamic)
//   - Logger: discards all records
//   - Metrics: no-op provider
//
// Validation
// Arguments are checked when the operator is called, before anything is opened
// or evaluated. Nothing observable happens until the returned stream is ranged over.
package asyncq
