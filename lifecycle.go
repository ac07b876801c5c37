package asyncq

import (
	"sync"
)

// lifecycleCoordinator encapsulates the teardown sequence of a collector.
// It is a wiring helper: it owns nothing, it orders cancellation, intake stop,
// waits and fault reporting.
//
// Close() is safe for concurrent calls; the sequence executes exactly once.
type lifecycleCoordinator struct {
	cancel      func()
	closeCh     chan struct{}
	driverDone  <-chan struct{}
	evaluators  *sync.WaitGroup
	reportFault func() error

	once sync.Once
	err  error
}

func newLifecycleCoordinator(
	cancel func(),
	closeCh chan struct{},
	driverDone <-chan struct{},
	evaluators *sync.WaitGroup,
	reportFault func() error,
) *lifecycleCoordinator {
	return &lifecycleCoordinator{
		cancel:      cancel,
		closeCh:     closeCh,
		driverDone:  driverDone,
		evaluators:  evaluators,
		reportFault: reportFault,
	}
}

// Close executes the teardown sequence once and returns its outcome on every call:
// 1) cancel the shared context so evaluators and the driver stop
// 2) close closeCh so pending notice posts are dropped instead of blocking
// 3) wait for the driver to stop launching evaluators
// 4) wait for every launched evaluator to finish
// 5) report a fault of the notice channel, if any
func (lc *lifecycleCoordinator) Close() error {
	lc.once.Do(func() {
		if lc.cancel != nil {
			lc.cancel()
		}
		if lc.closeCh != nil {
			close(lc.closeCh)
		}
		// The driver is the only caller of evaluators.Add; it must be gone before Wait.
		if lc.driverDone != nil {
			<-lc.driverDone
		}
		if lc.evaluators != nil {
			lc.evaluators.Wait()
		}
		if lc.reportFault != nil {
			lc.err = lc.reportFault()
		}
	})
	return lc.err
}
