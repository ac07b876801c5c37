package asyncq

import (
	"context"
	"io"
	"iter"
	"sync/atomic"
	"time"
)

// probe counts iterator lifecycle events across a set of tracked sources.
type probe struct {
	opened     atomic.Int32
	closed     atomic.Int32
	violations atomic.Int32
}

// trackedSource opens iterators that record Open/Close and flag a Close issued
// while Next is running or a second Close on the same iterator.
type trackedSource[T any] struct {
	p        *probe
	values   []T
	delay    time.Duration
	block    bool  // after the values, block until ctx is done
	err      error // returned instead of io.EOF after the values
	closeErr error
}

func (s *trackedSource[T]) Open(context.Context) (Iterator[T], error) {
	s.p.opened.Add(1)
	return &trackedIterator[T]{src: s}, nil
}

type trackedIterator[T any] struct {
	src    *trackedSource[T]
	pos    int
	inNext atomic.Bool
	closes atomic.Int32
}

func (it *trackedIterator[T]) Next(ctx context.Context) (T, error) {
	it.inNext.Store(true)
	defer it.inNext.Store(false)

	var zero T
	if it.src.delay > 0 {
		select {
		case <-time.After(it.src.delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	if it.pos < len(it.src.values) {
		v := it.src.values[it.pos]
		it.pos++
		return v, nil
	}
	if it.src.block {
		<-ctx.Done()
		return zero, ctx.Err()
	}
	if it.src.err != nil {
		return zero, it.src.err
	}
	return zero, io.EOF
}

func (it *trackedIterator[T]) Close() error {
	if it.inNext.Load() {
		it.src.p.violations.Add(1)
	}
	if it.closes.Add(1) > 1 {
		it.src.p.violations.Add(1)
	}
	it.src.p.closed.Add(1)
	return it.src.closeErr
}

func tracked[T any](p *probe, delay time.Duration, values ...T) *trackedSource[T] {
	return &trackedSource[T]{p: p, values: values, delay: delay}
}

func seqOf[T any](values ...T) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, v := range values {
			if !yield(v) {
				return
			}
		}
	}
}

func rangeInts(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
