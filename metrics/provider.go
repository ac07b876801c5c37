package metrics

// Provider constructs instruments used to record coordinator metrics.
// Implementations must be safe for concurrent use.
type Provider interface {
	Counter(name string, opts ...InstrumentOption) Counter
	UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter
	Histogram(name string, opts ...InstrumentOption) Histogram
}

// Counter records monotonic counts.
type Counter interface {
	Add(n int64)
}

// UpDownCounter records values that can move up or down (e.g., reads in flight).
type UpDownCounter interface {
	Add(n int64)
}

// Histogram records a distribution of float64 measurements (e.g., durations in seconds).
type Histogram interface {
	Record(v float64)
}

// Instrument names recorded by the asyncq operators.
const (
	MergeSourcesOpened    = "merge.sources.opened"
	MergeReadsInflight    = "merge.reads.inflight"
	CollectorTasksStarted = "collector.tasks.started"
	CollectorInflight     = "collector.tasks.inflight"
	CollectorTaskSeconds  = "collector.task.seconds"
	CollectorFaults       = "collector.faults"
)

// InstrumentConfig carries optional instrument metadata. It's advisory only.
type InstrumentConfig struct {
	Description string
	Unit        string
}

// InstrumentOption mutates InstrumentConfig.
type InstrumentOption func(*InstrumentConfig)

// WithDescription sets an advisory description for the instrument.
func WithDescription(desc string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Description = desc }
}

// WithUnit sets an advisory unit for the instrument (e.g., "1", "seconds").
func WithUnit(unit string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Unit = unit }
}
