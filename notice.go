package asyncq

// notice is a completion event sent from evaluators and the driver to the
// consuming loop. Its variants are resultNotice, errorNotice and endNotice.
type notice interface {
	isNotice()
}

// resultNotice carries one finished evaluation.
type resultNotice[T, R any] struct {
	item       T
	completion Completion[R]
}

// errorNotice carries a fault of the driver itself (source panic, cancellation).
type errorNotice struct {
	err error
}

// endNotice is posted once, after the source is exhausted and every evaluator finished.
type endNotice struct{}

func (resultNotice[T, R]) isNotice() {}
func (errorNotice) isNotice()        {}
func (endNotice) isNotice()          {}
