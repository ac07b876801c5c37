package asyncq

import (
	"errors"
	"fmt"
)

// IndexedError exposes the zero-based source index of the item whose evaluation failed.
type IndexedError interface {
	error
	Unwrap() error
	Index() int
}

type indexTaggedError struct {
	err   error
	index int
}

func newIndexTaggedError(err error, index int) error {
	if err == nil {
		return nil
	}
	return &indexTaggedError{err: err, index: index}
}

func (e *indexTaggedError) Error() string { return e.err.Error() }
func (e *indexTaggedError) Unwrap() error { return e.err }
func (e *indexTaggedError) Index() int    { return e.index }

func (e *indexTaggedError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			_, _ = fmt.Fprintf(s, "item(index=%d): %+v", e.index, e.err)
			return
		}
		fallthrough
	case 's':
		_, _ = fmt.Fprint(s, e.Error())
	case 'q':
		_, _ = fmt.Fprintf(s, "%q", e.Error())
	}
}

// ExtractIndex returns the source index carried by err, if any.
func ExtractIndex(err error) (int, bool) {
	var ie IndexedError
	if errors.As(err, &ie) {
		return ie.Index(), true
	}
	return 0, false
}
