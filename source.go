package asyncq

import (
	"context"
	"io"
	"iter"
)

// Iterator is a cursor over an asynchronous sequence.
//
// Next suspends until the next element is available and returns io.EOF once the
// sequence is exhausted. Next is never called concurrently with itself or with
// Close. Close is called exactly once by whoever owns the iterator.
type Iterator[T any] interface {
	Next(ctx context.Context) (T, error)
	Close() error
}

// TryNexter is implemented by iterators that can report, without suspending,
// an element that is already available. TryNext returns ok == false when the
// caller would have to wait; it returns io.EOF at the end of the sequence.
type TryNexter[T any] interface {
	TryNext() (v T, ok bool, err error)
}

// Source opens fresh iterators over an asynchronous sequence.
type Source[T any] interface {
	Open(ctx context.Context) (Iterator[T], error)
}

// SourceFunc adapts a function to Source.
type SourceFunc[T any] func(ctx context.Context) (Iterator[T], error)

func (f SourceFunc[T]) Open(ctx context.Context) (Iterator[T], error) { return f(ctx) }

// FromSlice returns a Source over a copy of values. Its iterators never suspend.
func FromSlice[T any](values ...T) Source[T] {
	vs := append([]T(nil), values...)
	return SourceFunc[T](func(context.Context) (Iterator[T], error) {
		return &sliceIterator[T]{values: vs}, nil
	})
}

type sliceIterator[T any] struct {
	values []T
	pos    int
}

func (it *sliceIterator[T]) TryNext() (T, bool, error) {
	if it.pos >= len(it.values) {
		var zero T
		return zero, false, io.EOF
	}
	v := it.values[it.pos]
	it.pos++
	return v, true, nil
}

func (it *sliceIterator[T]) Next(context.Context) (T, error) {
	v, _, err := it.TryNext()
	return v, err
}

func (it *sliceIterator[T]) Close() error { return nil }

// FromChan returns a Source reading from ch until it is closed. All iterators
// opened from it share ch.
func FromChan[T any](ch <-chan T) Source[T] {
	return SourceFunc[T](func(context.Context) (Iterator[T], error) {
		return chanIterator[T]{ch: ch}, nil
	})
}

type chanIterator[T any] struct {
	ch <-chan T
}

func (it chanIterator[T]) TryNext() (T, bool, error) {
	select {
	case v, ok := <-it.ch:
		if !ok {
			return v, false, io.EOF
		}
		return v, true, nil
	default:
		var zero T
		return zero, false, nil
	}
}

func (it chanIterator[T]) Next(ctx context.Context) (T, error) {
	select {
	case v, ok := <-it.ch:
		if !ok {
			return v, io.EOF
		}
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, cancelled(ctx)
	}
}

func (chanIterator[T]) Close() error { return nil }

// FromFunc returns a Source whose iterators call next for every element.
// next returns io.EOF to end the sequence. closeFn, if non-nil, runs when an
// iterator is closed.
func FromFunc[T any](next func(ctx context.Context) (T, error), closeFn func() error) Source[T] {
	return SourceFunc[T](func(context.Context) (Iterator[T], error) {
		return funcIterator[T]{next: next, close: closeFn}, nil
	})
}

type funcIterator[T any] struct {
	next  func(ctx context.Context) (T, error)
	close func() error
}

func (it funcIterator[T]) Next(ctx context.Context) (T, error) { return it.next(ctx) }

func (it funcIterator[T]) Close() error {
	if it.close == nil {
		return nil
	}
	return it.close()
}

// Collect drains stream and returns its elements. It stops at the first error,
// returning the elements received so far together with it.
func Collect[T any](stream iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for v, err := range stream {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}
