package asyncq

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ygrebnov/asyncq/metrics"
	"github.com/ygrebnov/asyncq/scheduler"
)

// errStopped is returned by a release function when the consumer abandoned the stream.
var errStopped = errors.New(Namespace + ": consumer stopped")

var errNoticesClosed = errors.New(Namespace + ": notice channel closed")

// collector launches one evaluator per source item, bounded by a gate, and
// hands completions to the consuming loop through a notice channel. The
// consuming loop is the only owner of the order restorer.
type collector[T, R any] struct {
	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc

	items iter.Seq[T]
	eval  func(context.Context, T) (R, error)
	gate  Gate
	order *orderRestorer[resultNotice[T, R]]

	notices    chan notice
	done       chan struct{}
	driverDone chan struct{}
	evaluators sync.WaitGroup

	fault   atomic.Pointer[NoticeDeliveryError]
	faulted chan struct{}

	lc *lifecycleCoordinator

	sched    scheduler.Scheduler
	log      *slog.Logger
	started  metrics.Counter
	inflight metrics.UpDownCounter
	seconds  metrics.Histogram
	faults   metrics.Counter
}

func newCollector[T, R any](
	parent context.Context,
	items iter.Seq[T],
	eval func(context.Context, T) (R, error),
	opts Options,
) *collector[T, R] {
	ctx, cancel := context.WithCancel(parent)
	limit := opts.limit(-1)
	capacity := defaultNoticeCapacity
	if limit > 0 {
		capacity = limit + 1
	}
	mp := opts.meter()
	c := &collector[T, R]{
		parent:     parent,
		ctx:        ctx,
		cancel:     cancel,
		items:      items,
		eval:       eval,
		gate:       NewGate(limit),
		order:      newOrderRestorer[resultNotice[T, R]](opts.PreserveOrder()),
		notices:    make(chan notice, capacity),
		done:       make(chan struct{}),
		driverDone: make(chan struct{}),
		faulted:    make(chan struct{}),
		sched:      opts.Scheduler(),
		log:        opts.log(),
		started:    mp.Counter(metrics.CollectorTasksStarted, metrics.WithUnit("1")),
		inflight:   mp.UpDownCounter(metrics.CollectorInflight, metrics.WithUnit("1")),
		seconds:    mp.Histogram(metrics.CollectorTaskSeconds, metrics.WithUnit("seconds")),
		faults:     mp.Counter(metrics.CollectorFaults, metrics.WithUnit("1")),
	}
	c.lc = newLifecycleCoordinator(c.cancel, c.done, c.driverDone, &c.evaluators, c.reportFault)
	return c
}

const defaultNoticeCapacity = 64

// run starts the driver and feeds released completions to release until the
// source is done, release fails, or a fault ends the collection. It returns
// after every launched evaluator has finished. errStopped from release is
// returned as is; teardown faults are then only logged.
func (c *collector[T, R]) run(release func(T, Completion[R]) error) (err error) {
	c.log.Debug("collector started", slog.Bool("ordered", c.order.ordered))

	returned := false
	defer func() {
		if returned {
			return
		}
		if terr := c.lc.Close(); terr != nil {
			c.log.Warn("collector teardown fault dropped", slog.Any("error", terr))
		}
	}()

	go c.drive()

	err = c.consume(func(n resultNotice[T, R]) error { return release(n.item, n.completion) })
	returned = true

	terr := c.lc.Close()
	c.log.Debug("collector finished", slog.Int("held", c.order.pending()))
	switch {
	case errors.Is(err, errStopped):
		if terr != nil {
			c.log.Warn("collector teardown fault dropped", slog.Any("error", terr))
		}
		return errStopped
	case terr == nil:
		return err
	case err == nil || errors.Is(terr, err):
		return terr
	default:
		return errors.Join(err, terr)
	}
}

func (c *collector[T, R]) consume(release func(resultNotice[T, R]) error) error {
	for {
		select {
		case n, ok := <-c.notices:
			if !ok {
				c.deliveryFailed(nil, errNoticesClosed)
				return nil
			}
			if c.parent.Err() != nil {
				return cancelled(c.parent)
			}
			switch n := n.(type) {
			case resultNotice[T, R]:
				if err := c.order.push(n.completion.Index, n, release); err != nil {
					return err
				}
			case errorNotice:
				return n.err
			case endNotice:
				return c.order.flush(release)
			}
		case <-c.faulted:
			return nil
		case <-c.parent.Done():
			return cancelled(c.parent)
		}
	}
}

// post delivers n to the consuming loop, or drops it once teardown started.
// inflight is the fault n carries, if any; it is kept in the report when the
// delivery itself fails.
func (c *collector[T, R]) post(n notice, inflight error) {
	defer func() {
		if p := recover(); p != nil {
			perr, ok := p.(error)
			if !ok {
				perr = fmt.Errorf("%v", p)
			}
			c.deliveryFailed(inflight, perr)
		}
	}()
	select {
	case c.notices <- n:
	case <-c.done:
	}
}

// deliveryFailed records the first delivery fault and trips cancellation.
func (c *collector[T, R]) deliveryFailed(original, delivery error) {
	f := &NoticeDeliveryError{Original: original, Delivery: delivery}
	if !c.fault.CompareAndSwap(nil, f) {
		return
	}
	c.log.Error("notice delivery failed", slog.Any("error", f))
	close(c.faulted)
	c.cancel()
}

func (c *collector[T, R]) reportFault() error {
	if f := c.fault.Load(); f != nil {
		return f
	}
	return nil
}
