package asyncq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"slices"
	"strconv"
	"sync"

	"github.com/ygrebnov/asyncq/metrics"
	"github.com/ygrebnov/asyncq/scheduler"
)

// Merge interleaves the elements of all sources into one stream, in the order
// they become ready. At most opts.MaxConcurrency sources are open at a time;
// the next source is opened when an open one is exhausted. With a bound of 1
// the sources are drained one after another, in order.
//
// Any error from opening, reading or closing a source is fatal: the merge tears
// down and the error (tagged with the source index, see ExtractIndex) is the
// final element of the stream.
//
// Iterators must honour cancellation of the context passed to Next; teardown
// waits for every outstanding Next to return before closing its iterator.
func Merge[T any](ctx context.Context, sources []Source[T], opts Options) (iter.Seq2[T, error], error) {
	for i, s := range sources {
		if s == nil {
			return nil, invalidArgument("sources[" + strconv.Itoa(i) + "]")
		}
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return mergeStream(ctx, slices.Values(sources), opts.limit(len(sources)), opts), nil
}

// MergeSeq is like Merge but pulls sources lazily from a sequence, only when a
// concurrency slot is free.
func MergeSeq[T any](ctx context.Context, sources iter.Seq[Source[T]], opts Options) (iter.Seq2[T, error], error) {
	if sources == nil {
		return nil, invalidArgument("sources")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return mergeStream(ctx, sources, opts.limit(-1), opts), nil
}

// FlatMap projects every item to a Source and merges the results (async SelectMany).
func FlatMap[T, U any](
	ctx context.Context, items iter.Seq[T], fn func(T) Source[U], opts Options,
) (iter.Seq2[U, error], error) {
	if items == nil {
		return nil, invalidArgument("items")
	}
	if fn == nil {
		return nil, invalidArgument("fn")
	}
	sources := func(yield func(Source[U]) bool) {
		for item := range items {
			if !yield(fn(item)) {
				return
			}
		}
	}
	return MergeSeq[U](ctx, sources, opts)
}

func mergeStream[T any](ctx context.Context, sources iter.Seq[Source[T]], limit int, opts Options) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		m := newMerger(ctx, sources, limit, opts)
		m.run(yield)
	}
}

// cursor is one opened source. The control loop is its only mutator.
type cursor[T any] struct {
	key     int
	it      Iterator[T]
	reading bool
	closed  bool
	// settled is released when the outstanding Next returns.
	settled sync.WaitGroup
}

type readResult[T any] struct {
	c   *cursor[T]
	val T
	err error
}

type merger[T any] struct {
	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc

	sources   iter.Seq[Source[T]]
	next      func() (Source[T], bool)
	stop      func()
	exhausted bool
	nextKey   int

	limit  int
	active []*cursor[T]
	reads  chan readResult[T]
	done   chan struct{}

	sched    scheduler.Scheduler
	log      *slog.Logger
	opened   metrics.Counter
	inflight metrics.UpDownCounter
}

func newMerger[T any](parent context.Context, sources iter.Seq[Source[T]], limit int, opts Options) *merger[T] {
	ctx, cancel := context.WithCancel(parent)
	mp := opts.meter()
	return &merger[T]{
		parent:   parent,
		ctx:      ctx,
		cancel:   cancel,
		sources:  sources,
		limit:    limit,
		reads:    make(chan readResult[T], limit),
		done:     make(chan struct{}),
		sched:    opts.Scheduler(),
		log:      opts.log(),
		opened:   mp.Counter(metrics.MergeSourcesOpened),
		inflight: mp.UpDownCounter(metrics.MergeReadsInflight),
	}
}

// run is the control loop. It returns after teardown has completed.
func (m *merger[T]) run(yield func(T, error) bool) {
	m.log.Debug("merge started", slog.Int("limit", m.limit))

	// canYield is false once yield returned false, panicked, or got the final error.
	canYield := true
	emit := func(v T) bool {
		canYield = false
		if !yield(v, nil) {
			return false
		}
		canYield = true
		return true
	}
	var failed bool
	fail := func(err error) {
		failed = true
		canYield = false
		var zero T
		yield(zero, err)
	}

	// returned stays false while a panic unwinds through the loop.
	returned := false
	defer func() {
		err := m.teardown()
		switch {
		case err == nil:
		case returned && canYield:
			fail(err)
		default:
			m.log.Warn("merge teardown fault dropped", slog.Bool("failed", failed), slog.Any("error", err))
		}
	}()

	m.loop(emit, fail)
	returned = true
}

func (m *merger[T]) loop(emit func(T) bool, fail func(error)) {
	for {
		for !m.exhausted && (m.limit == 0 || len(m.active) < m.limit) {
			c, err := m.open()
			if err != nil {
				fail(err)
				return
			}
			if c == nil {
				break
			}
			if !m.advance(c, emit, fail) {
				return
			}
		}

		if len(m.active) == 0 && m.exhausted {
			return
		}

		select {
		case r := <-m.reads:
			r.c.reading = false
			switch {
			case errors.Is(r.err, io.EOF):
				if err := m.retire(r.c); err != nil {
					fail(err)
					return
				}
			case r.err != nil && m.parent.Err() != nil:
				fail(cancelled(m.parent))
				return
			case r.err != nil:
				fail(newIndexTaggedError(r.err, r.c.key))
				return
			default:
				if !emit(r.val) || !m.advance(r.c, emit, fail) {
					return
				}
			}
		case <-m.parent.Done():
			fail(cancelled(m.parent))
			return
		}
	}
}

// open pulls the next source and opens it. It returns a nil cursor once the
// sources are exhausted.
func (m *merger[T]) open() (*cursor[T], error) {
	if m.next == nil {
		m.next, m.stop = iter.Pull(m.sources)
	}
	src, ok := m.next()
	if !ok {
		m.exhausted = true
		return nil, nil
	}
	key := m.nextKey
	m.nextKey++
	if src == nil {
		return nil, newIndexTaggedError(invalidArgument("source"), key)
	}
	it, err := src.Open(m.ctx)
	if err != nil {
		return nil, newIndexTaggedError(err, key)
	}
	m.opened.Add(1)
	c := &cursor[T]{key: key, it: it}
	m.active = append(m.active, c)
	return c, nil
}

// advance drains whatever c can deliver without suspending, then starts an
// asynchronous read. It returns false when the loop must stop.
func (m *merger[T]) advance(c *cursor[T], emit func(T) bool, fail func(error)) bool {
	if tn, ok := c.it.(TryNexter[T]); ok {
		for {
			if m.parent.Err() != nil {
				fail(cancelled(m.parent))
				return false
			}
			v, ok, err := tn.TryNext()
			switch {
			case errors.Is(err, io.EOF):
				if err := m.retire(c); err != nil {
					fail(err)
					return false
				}
				return true
			case err != nil:
				fail(newIndexTaggedError(err, c.key))
				return false
			case !ok:
				return m.startRead(c, fail)
			}
			if !emit(v) {
				return false
			}
		}
	}
	return m.startRead(c, fail)
}

// startRead launches the next read of c. It returns false when the scheduler
// gave up because the merge was cancelled.
func (m *merger[T]) startRead(c *cursor[T], fail func(error)) bool {
	if c.reading {
		panic("asyncq: second read started on a merge cursor")
	}
	c.reading = true
	c.settled.Add(1)
	m.inflight.Add(1)
	err := m.sched.Go(m.ctx, func() {
		v, err := m.read(c)
		m.inflight.Add(-1)
		c.settled.Done()
		select {
		case m.reads <- readResult[T]{c: c, val: v, err: err}:
		case <-m.done:
		}
	})
	if err != nil {
		m.inflight.Add(-1)
		c.settled.Done()
		c.reading = false
		fail(cancelled(m.parent))
		return false
	}
	return true
}

func (m *merger[T]) read(c *cursor[T]) (v T, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrSourcePanicked, p)
		}
	}()
	return c.it.Next(m.ctx)
}

func (m *merger[T]) retire(c *cursor[T]) error {
	m.active = slices.DeleteFunc(m.active, func(a *cursor[T]) bool { return a == c })
	return m.closeCursor(c)
}

func (m *merger[T]) closeCursor(c *cursor[T]) (err error) {
	if c.reading {
		panic("asyncq: merge cursor closed with a read in flight")
	}
	if c.closed {
		return nil
	}
	c.closed = true
	defer func() {
		if p := recover(); p != nil {
			err = newIndexTaggedError(fmt.Errorf("%w: %v", ErrSourcePanicked, p), c.key)
		}
	}()
	return newIndexTaggedError(c.it.Close(), c.key)
}

// teardown cancels outstanding reads, waits for each to settle and closes every
// cursor still open. Close faults are joined.
func (m *merger[T]) teardown() error {
	m.cancel()
	close(m.done)
	if m.stop != nil {
		m.stop()
	}
	var errs []error
	for _, c := range m.active {
		if c.reading {
			c.settled.Wait()
			c.reading = false
		}
		if err := m.closeCursor(c); err != nil {
			errs = append(errs, err)
		}
	}
	m.active = nil
	m.log.Debug("merge finished", slog.Int("sources", m.nextKey))
	return errors.Join(errs...)
}
