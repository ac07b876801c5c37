package metrics

import (
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBasicProvider_InstrumentsSharedByName(t *testing.T) {
	p := NewBasicProvider()

	require.Same(t, p.BasicCounter(MergeSourcesOpened), p.BasicCounter(MergeSourcesOpened))
	require.NotSame(t, p.BasicCounter(MergeSourcesOpened), p.BasicCounter(CollectorTasksStarted))
	require.Same(t, p.BasicUpDownCounter(CollectorInflight), p.BasicUpDownCounter(CollectorInflight))
	require.Same(t, p.BasicHistogram(CollectorTaskSeconds), p.BasicHistogram(CollectorTaskSeconds))
}

func TestBasicProvider_DescribeKeepsFirstMetadata(t *testing.T) {
	p := NewBasicProvider()
	p.Histogram(CollectorTaskSeconds, WithUnit("seconds"), WithDescription("evaluator duration"))
	p.Histogram(CollectorTaskSeconds, WithUnit("ms"))

	cfg, ok := p.Describe(CollectorTaskSeconds)
	require.True(t, ok)
	require.Equal(t, "seconds", cfg.Unit)
	require.Equal(t, "evaluator duration", cfg.Description)

	_, ok = p.Describe("unknown")
	require.False(t, ok)
}

func TestBasicUpDownCounter_TracksPeak(t *testing.T) {
	u := NewBasicProvider().BasicUpDownCounter(MergeReadsInflight)

	u.Add(+2)
	u.Add(+3)
	u.Add(-4)
	u.Add(+1)

	require.EqualValues(t, 2, u.Snapshot())
	require.EqualValues(t, 5, u.Peak())
}

func TestBasicHistogram_RecordsStats(t *testing.T) {
	h := NewBasicProvider().BasicHistogram(CollectorTaskSeconds)
	h.Record(0.1)
	h.Record(0.3)
	h.Record(0.2)

	s := h.Snapshot()
	require.EqualValues(t, 3, s.Count)
	require.Equal(t, 0.1, s.Min)
	require.Equal(t, 0.3, s.Max)
	require.InDelta(t, 0.6, s.Sum, 0.0001)
	require.InDelta(t, 0.2, s.Mean, 0.0001)
}

func TestBasicProvider_ConcurrentUse(t *testing.T) {
	p := NewBasicProvider()

	workers := runtime.NumCPU() * 2
	iters := 1000
	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for range iters {
				p.Counter(CollectorTasksStarted).Add(1)
				u := p.UpDownCounter(CollectorInflight)
				u.Add(+1)
				u.Add(-1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, workers*iters, p.BasicCounter(CollectorTasksStarted).Snapshot())
	require.EqualValues(t, 0, p.BasicUpDownCounter(CollectorInflight).Snapshot())
	require.LessOrEqual(t, p.BasicUpDownCounter(CollectorInflight).Peak(), int64(workers))
}

func TestNoopProvider_DiscardsEverything(t *testing.T) {
	p := NewNoopProvider()
	require.NotPanics(t, func() {
		p.Counter(CollectorFaults).Add(1)
		p.UpDownCounter(MergeReadsInflight).Add(-1)
		p.Histogram(CollectorTaskSeconds).Record(1.5)
	})
}
