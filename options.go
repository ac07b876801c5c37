package asyncq

import (
	"log/slog"
	"strconv"

	"github.com/ygrebnov/errorc"

	"github.com/ygrebnov/asyncq/metrics"
	"github.com/ygrebnov/asyncq/scheduler"
)

// Options configures an operator call. It is an immutable value: every With
// method returns a modified copy and leaves the receiver untouched.
// The zero value is ready to use (see package documentation for defaults).
type Options struct {
	// maxConcurrency is meaningful only when bounded is set.
	maxConcurrency int
	bounded        bool

	preserveOrder bool
	scheduler     scheduler.Scheduler
	logger        *slog.Logger
	metrics       metrics.Provider
}

// DefaultOptions returns the zero Options value.
func DefaultOptions() Options { return Options{} }

// WithMaxConcurrency bounds the number of operations in flight at once.
// n must be positive; an invalid value is reported by the operator it is passed to.
func (o Options) WithMaxConcurrency(n int) Options {
	o.maxConcurrency = n
	o.bounded = true
	return o
}

// WithUnboundedConcurrency removes the concurrency bound.
func (o Options) WithUnboundedConcurrency() Options {
	o.maxConcurrency = 0
	o.bounded = false
	return o
}

// WithPreserveOrder makes collectors emit results in source order.
// Merge never reorders and ignores this setting.
func (o Options) WithPreserveOrder(preserve bool) Options {
	o.preserveOrder = preserve
	return o
}

// WithScheduler selects the execution context for asynchronous operations.
// A nil scheduler restores the default.
func (o Options) WithScheduler(s scheduler.Scheduler) Options {
	o.scheduler = s
	return o
}

// WithLogger sets the logger used for lifecycle records. A nil logger discards.
func (o Options) WithLogger(l *slog.Logger) Options {
	o.logger = l
	return o
}

// WithMetrics sets the metrics provider. A nil provider discards.
func (o Options) WithMetrics(p metrics.Provider) Options {
	o.metrics = p
	return o
}

// MaxConcurrency returns the bound and whether one is set.
func (o Options) MaxConcurrency() (int, bool) { return o.maxConcurrency, o.bounded }

func (o Options) PreserveOrder() bool { return o.preserveOrder }

// Scheduler returns the configured scheduler, or the default one.
func (o Options) Scheduler() scheduler.Scheduler {
	if o.scheduler == nil {
		return scheduler.NewDynamic()
	}
	return o.scheduler
}

func (o Options) log() *slog.Logger {
	if o.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.logger
}

func (o Options) meter() metrics.Provider {
	if o.metrics == nil {
		return metrics.NewNoopProvider()
	}
	return o.metrics
}

// limit returns the effective bound for n known operations; n < 0 means unknown.
// Zero means unbounded.
func (o Options) limit(n int) int {
	if !o.bounded {
		if n > 0 {
			return n
		}
		return 0
	}
	if n >= 0 && n < o.maxConcurrency {
		return max(n, 1)
	}
	return o.maxConcurrency
}

func (o Options) validate() error {
	if o.bounded && o.maxConcurrency <= 0 {
		return errorc.With(
			ErrInvalidArgument,
			errorc.String("maxConcurrency", strconv.Itoa(o.maxConcurrency)),
		)
	}
	return nil
}

func invalidArgument(name string) error {
	return errorc.With(ErrInvalidArgument, errorc.String(name, "must not be nil"))
}
