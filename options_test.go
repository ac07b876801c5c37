package asyncq

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ygrebnov/asyncq/metrics"
	"github.com/ygrebnov/asyncq/scheduler"
)

func TestDefaultOptions_Values(t *testing.T) {
	o := DefaultOptions()

	n, bounded := o.MaxConcurrency()
	require.False(t, bounded)
	require.Zero(t, n)
	require.False(t, o.PreserveOrder())
	require.NotNil(t, o.Scheduler())
	require.NotNil(t, o.log())
	require.NotNil(t, o.meter())
	require.NoError(t, o.validate())
}

func TestOptions_CopyOnWrite(t *testing.T) {
	base := DefaultOptions()
	bounded := base.WithMaxConcurrency(4)
	ordered := bounded.WithPreserveOrder(true)

	_, ok := base.MaxConcurrency()
	require.False(t, ok)
	require.False(t, bounded.PreserveOrder())
	require.True(t, ordered.PreserveOrder())

	n, ok := ordered.MaxConcurrency()
	require.True(t, ok)
	require.Equal(t, 4, n)

	unbounded := ordered.WithUnboundedConcurrency()
	_, ok = unbounded.MaxConcurrency()
	require.False(t, ok)
	_, ok = ordered.MaxConcurrency()
	require.True(t, ok)
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{name: "zero value", opts: Options{}},
		{name: "positive bound", opts: DefaultOptions().WithMaxConcurrency(1)},
		{name: "zero bound", opts: DefaultOptions().WithMaxConcurrency(0), wantErr: true},
		{name: "negative bound", opts: DefaultOptions().WithMaxConcurrency(-3), wantErr: true},
		{name: "bound removed", opts: DefaultOptions().WithMaxConcurrency(0).WithUnboundedConcurrency()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestOptions_Limit(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		n    int
		want int
	}{
		{name: "unbounded, known count", opts: Options{}, n: 5, want: 5},
		{name: "unbounded, no items", opts: Options{}, n: 0, want: 0},
		{name: "unbounded, unknown count", opts: Options{}, n: -1, want: 0},
		{name: "bounded above count", opts: DefaultOptions().WithMaxConcurrency(8), n: 3, want: 3},
		{name: "bounded below count", opts: DefaultOptions().WithMaxConcurrency(2), n: 3, want: 2},
		{name: "bounded, no items", opts: DefaultOptions().WithMaxConcurrency(2), n: 0, want: 1},
		{name: "bounded, unknown count", opts: DefaultOptions().WithMaxConcurrency(2), n: -1, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.opts.limit(tt.n))
		})
	}
}

func TestOptions_InjectedCollaborators(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	mp := metrics.NewBasicProvider()
	s := scheduler.NewDynamic()

	o := DefaultOptions().WithLogger(logger).WithMetrics(mp).WithScheduler(s)
	require.Same(t, logger, o.log())
	require.Equal(t, metrics.Provider(mp), o.meter())
	require.Equal(t, s, o.Scheduler())

	o.log().Debug("probe")
	require.Contains(t, buf.String(), "probe")

	reset := o.WithLogger(nil).WithMetrics(nil).WithScheduler(nil)
	require.NotSame(t, logger, reset.log())
	require.NotNil(t, reset.Scheduler())
}
