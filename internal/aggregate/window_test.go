package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/airlink-monitor/internal/model"
)

func fp(v float64) *float64 { return &v }

// testClock lets the eviction horizon be driven explicitly.
type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newTestAggregator(clock *testClock, cfg Config) *Aggregator {
	cfg.Now = clock.Now
	return New(cfg)
}

func TestShortAverage(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := &testClock{now: base.Add(30 * time.Second)}
	agg := newTestAggregator(clock, Config{})

	agg.Ingest(model.MetricPM25, base, fp(10))
	agg.Ingest(model.MetricPM25, base.Add(10*time.Second), fp(20))
	agg.Ingest(model.MetricPM25, base.Add(30*time.Second), fp(30))

	avg := agg.ShortAverage(model.MetricPM25)
	require.NotNil(t, avg)
	assert.Equal(t, 20.0, *avg)
}

func TestShortAverage_EvictsStaleSamples(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := &testClock{now: base.Add(30 * time.Second)}
	agg := newTestAggregator(clock, Config{})

	agg.Ingest(model.MetricPM25, base, fp(10))
	agg.Ingest(model.MetricPM25, base.Add(10*time.Second), fp(20))
	agg.Ingest(model.MetricPM25, base.Add(30*time.Second), fp(30))
	require.NotNil(t, agg.ShortAverage(model.MetricPM25))

	// 61 seconds after the newest sample every retained sample is stale.
	clock.now = base.Add(91 * time.Second)
	assert.Nil(t, agg.ShortAverage(model.MetricPM25))
}

func TestShortAverage_EmptyWindow(t *testing.T) {
	clock := &testClock{now: time.Now()}
	agg := newTestAggregator(clock, Config{})
	assert.Nil(t, agg.ShortAverage(model.MetricPM1))
}

func TestIngest_NilValueIsNoOp(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := &testClock{now: base}
	agg := newTestAggregator(clock, Config{})

	agg.Ingest(model.MetricPM10, base, nil)
	assert.Nil(t, agg.ShortAverage(model.MetricPM10))
}

func TestNowcast_EqualSamplesAreExact(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := &testClock{now: base.Add(time.Hour)}
	agg := newTestAggregator(clock, Config{})

	// cmin == cmax means weight factor 1 and a trivial weighted mean.
	agg.Ingest(model.MetricPM25, base, fp(12.0))
	agg.Ingest(model.MetricPM25, base.Add(time.Hour), fp(12.0))

	nc := agg.Nowcast(model.MetricPM25)
	require.NotNil(t, nc)
	assert.Equal(t, 12.0, *nc)
}

func TestNowcast_RequiresMinimumSamples(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := &testClock{now: base}
	agg := newTestAggregator(clock, Config{})

	agg.Ingest(model.MetricPM25, base, fp(12.0))
	assert.Nil(t, agg.Nowcast(model.MetricPM25))
}

func TestNowcast_WeightsNewestFirst(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	clock := &testClock{now: base.Add(2 * time.Hour)}
	agg := newTestAggregator(clock, Config{})

	// cmin/cmax = 10/40 = 0.25 floors the weight factor at 0.5.
	agg.Ingest(model.MetricPM25, base, fp(10))
	agg.Ingest(model.MetricPM25, base.Add(time.Hour), fp(20))
	agg.Ingest(model.MetricPM25, base.Add(2*time.Hour), fp(40))

	nc := agg.Nowcast(model.MetricPM25)
	require.NotNil(t, nc)
	// (1*40 + 0.5*20 + 0.25*10) / (1 + 0.5 + 0.25)
	assert.InDelta(t, 52.5/1.75, *nc, 1e-12)
}

func TestNowcast_AllZeroSamples(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	clock := &testClock{now: base.Add(time.Minute)}
	agg := newTestAggregator(clock, Config{})

	agg.Ingest(model.MetricPM10, base, fp(0))
	agg.Ingest(model.MetricPM10, base.Add(time.Minute), fp(0))

	nc := agg.Nowcast(model.MetricPM10)
	require.NotNil(t, nc)
	assert.Equal(t, 0.0, *nc)
}

func TestNowcast_Deterministic(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	run := func() float64 {
		clock := &testClock{now: base.Add(3 * time.Hour)}
		agg := newTestAggregator(clock, Config{})
		for i, v := range []float64{8.2, 15.7, 11.3, 9.9} {
			agg.Ingest(model.MetricPM25, base.Add(time.Duration(i)*time.Hour), fp(v))
		}
		nc := agg.Nowcast(model.MetricPM25)
		require.NotNil(t, nc)
		return *nc
	}

	first := run()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, run())
	}
}

func TestNowcast_EvictsBeyondWindow(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	clock := &testClock{now: base}
	agg := newTestAggregator(clock, Config{NowcastWindow: 2 * time.Hour})

	agg.Ingest(model.MetricPM25, base, fp(100))
	agg.Ingest(model.MetricPM25, base.Add(3*time.Hour), fp(10))
	agg.Ingest(model.MetricPM25, base.Add(3*time.Hour+time.Minute), fp(10))

	clock.now = base.Add(3*time.Hour + time.Minute)
	nc := agg.Nowcast(model.MetricPM25)
	require.NotNil(t, nc)
	// The 100 µg/m³ sample fell out of the 2h span; only the 10s remain.
	assert.Equal(t, 10.0, *nc)
}

func TestWindow_OutOfOrderTimestampsKeptSorted(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := &testClock{now: base.Add(30 * time.Second)}
	agg := newTestAggregator(clock, Config{})

	agg.Ingest(model.MetricPM25, base.Add(20*time.Second), fp(30))
	agg.Ingest(model.MetricPM25, base, fp(10))
	agg.Ingest(model.MetricPM25, base.Add(10*time.Second), fp(20))

	w := agg.short[model.MetricPM25]
	require.Len(t, w.samples, 3)
	assert.True(t, !w.samples[0].t.After(w.samples[1].t))
	assert.True(t, !w.samples[1].t.After(w.samples[2].t))
}
