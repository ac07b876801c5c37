package metrics

import (
	"sync"
	"sync/atomic"
)

// BasicProvider is an in-memory Provider, used by tests and small applications.
// Instruments are created on first use and shared by name.
type BasicProvider struct {
	mu         sync.Mutex
	counters   map[string]*BasicCounter
	updowns    map[string]*BasicUpDownCounter
	histograms map[string]*BasicHistogram
	meta       map[string]InstrumentConfig
}

// NewBasicProvider constructs a new BasicProvider.
func NewBasicProvider() *BasicProvider {
	return &BasicProvider{
		counters:   make(map[string]*BasicCounter),
		updowns:    make(map[string]*BasicUpDownCounter),
		histograms: make(map[string]*BasicHistogram),
		meta:       make(map[string]InstrumentConfig),
	}
}

func (p *BasicProvider) describe(name string, opts []InstrumentOption) {
	var cfg InstrumentConfig
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	p.meta[name] = cfg
}

// Counter returns the counter registered under name, creating it if needed.
func (p *BasicProvider) Counter(name string, opts ...InstrumentOption) Counter {
	return p.BasicCounter(name, opts...)
}

// BasicCounter is like Counter but returns the concrete type for inspection.
func (p *BasicProvider) BasicCounter(name string, opts ...InstrumentOption) *BasicCounter {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.counters[name]
	if !ok {
		p.describe(name, opts)
		c = &BasicCounter{}
		p.counters[name] = c
	}
	return c
}

// UpDownCounter returns the up/down counter registered under name, creating it if needed.
func (p *BasicProvider) UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter {
	return p.BasicUpDownCounter(name, opts...)
}

// BasicUpDownCounter is like UpDownCounter but returns the concrete type for inspection.
func (p *BasicProvider) BasicUpDownCounter(name string, opts ...InstrumentOption) *BasicUpDownCounter {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.updowns[name]
	if !ok {
		p.describe(name, opts)
		u = &BasicUpDownCounter{}
		p.updowns[name] = u
	}
	return u
}

// Histogram returns the histogram registered under name, creating it if needed.
func (p *BasicProvider) Histogram(name string, opts ...InstrumentOption) Histogram {
	return p.BasicHistogram(name, opts...)
}

// BasicHistogram is like Histogram but returns the concrete type for inspection.
func (p *BasicProvider) BasicHistogram(name string, opts ...InstrumentOption) *BasicHistogram {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.histograms[name]
	if !ok {
		p.describe(name, opts)
		h = &BasicHistogram{}
		p.histograms[name] = h
	}
	return h
}

// Describe returns the metadata supplied when the instrument was first created.
func (p *BasicProvider) Describe(name string) (InstrumentConfig, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cfg, ok := p.meta[name]
	return cfg, ok
}

// BasicCounter is a thread-safe monotonic counter.
type BasicCounter struct {
	val atomic.Int64
}

func (c *BasicCounter) Add(n int64) { c.val.Add(n) }

// Snapshot returns the current value.
func (c *BasicCounter) Snapshot() int64 { return c.val.Load() }

// BasicUpDownCounter is a thread-safe up/down counter that also remembers
// the highest value it has reached.
type BasicUpDownCounter struct {
	val  atomic.Int64
	peak atomic.Int64
}

func (u *BasicUpDownCounter) Add(n int64) {
	v := u.val.Add(n)
	for {
		p := u.peak.Load()
		if v <= p || u.peak.CompareAndSwap(p, v) {
			return
		}
	}
}

// Snapshot returns the current value.
func (u *BasicUpDownCounter) Snapshot() int64 { return u.val.Load() }

// Peak returns the high-water mark.
func (u *BasicUpDownCounter) Peak() int64 { return u.peak.Load() }

// BasicHistogram tracks count, sum, min, and max. It keeps no buckets.
type BasicHistogram struct {
	mu    sync.Mutex
	count int64
	sum   float64
	min   float64
	max   float64
}

func (h *BasicHistogram) Record(v float64) {
	h.mu.Lock()
	if h.count == 0 {
		h.min, h.max = v, v
	} else {
		h.min = min(h.min, v)
		h.max = max(h.max, v)
	}
	h.count++
	h.sum += v
	h.mu.Unlock()
}

// HistSnapshot is an immutable snapshot of a BasicHistogram.
type HistSnapshot struct {
	Count int64
	Sum   float64
	Min   float64
	Max   float64
	Mean  float64
}

// Snapshot returns a copy of the histogram state at the time of call.
func (h *BasicHistogram) Snapshot() HistSnapshot {
	h.mu.Lock()
	s := HistSnapshot{Count: h.count, Sum: h.sum, Min: h.min, Max: h.max}
	h.mu.Unlock()
	if s.Count > 0 {
		s.Mean = s.Sum / float64(s.Count)
	}
	return s
}
