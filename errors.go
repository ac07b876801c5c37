package asyncq

import "errors"

const Namespace = "asyncq"

var (
	ErrInvalidArgument   = errors.New(Namespace + ": invalid argument")
	ErrCancelled         = errors.New(Namespace + ": operation cancelled")
	ErrEvaluatorPanicked = errors.New(Namespace + ": evaluator panicked")
	ErrSourcePanicked    = errors.New(Namespace + ": source panicked")
	ErrNoticeDelivery    = errors.New(Namespace + ": completion notice delivery failed")
)

// NoticeDeliveryError reports a failure of the internal completion channel itself.
// It references the fault that was in flight when delivery failed (if any) together
// with the delivery fault. It is always fatal.
type NoticeDeliveryError struct {
	Original error
	Delivery error
}

func (e *NoticeDeliveryError) Error() string {
	if e.Original == nil {
		return ErrNoticeDelivery.Error() + ": " + e.Delivery.Error()
	}
	return ErrNoticeDelivery.Error() + ": " + e.Delivery.Error() + " (while reporting: " + e.Original.Error() + ")"
}

func (e *NoticeDeliveryError) Unwrap() []error {
	errs := []error{ErrNoticeDelivery, e.Delivery}
	if e.Original != nil {
		errs = append(errs, e.Original)
	}
	return errs
}
