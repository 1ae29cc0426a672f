package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/airlink-monitor/internal/aggregate"
	"github.com/LeonardoBeccarini/airlink-monitor/internal/model"
)

// fakeSource hands out scripted readings or errors, one per cycle.
type fakeSource struct {
	queue []any // *model.RawReading or error
}

func (f *fakeSource) Poll(_ context.Context) (*model.RawReading, error) {
	next := f.queue[0]
	f.queue = f.queue[1:]
	switch v := next.(type) {
	case *model.RawReading:
		return v, nil
	case error:
		return nil, v
	}
	panic("bad fixture")
}

func reading(ts time.Time, pm1, pm25, pm10 float64) *model.RawReading {
	return &model.RawReading{
		Station:   "airlink-test",
		Timestamp: ts,
		PM1:       &pm1,
		PM25:      &pm25,
		PM10:      &pm10,
	}
}

func TestOrchestrator_SuccessfulCycle(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	agg := aggregate.New(aggregate.Config{Now: func() time.Time { return base }})
	src := &fakeSource{queue: []any{reading(base, 1.5, 10.0, 20.0)}}

	orch := NewOrchestrator(src, agg, zap.NewNop())
	res := orch.RunCycle(context.Background())

	require.NotNil(t, res)
	assert.Equal(t, "airlink-test", res.Station)
	assert.Equal(t, base, res.Timestamp)

	require.NotNil(t, res.PM25)
	assert.Equal(t, 10.0, *res.PM25)

	// With a single sample the 1-minute average equals the raw value.
	require.NotNil(t, res.PM25Avg1m)
	assert.Equal(t, 10.0, *res.PM25Avg1m)
	require.NotNil(t, res.PM1Avg1m)
	assert.Equal(t, 1.5, *res.PM1Avg1m)
	require.NotNil(t, res.PM10Avg1m)
	assert.Equal(t, 20.0, *res.PM10Avg1m)

	// NowCast needs at least two samples.
	assert.Nil(t, res.PM25Nowcast)
	assert.Nil(t, res.PM25NowcastAQI)

	// AQI for 10.0 µg/m³ sits in the Good band: round(10/12*50) = 42.
	require.NotNil(t, res.PM25AQI)
	assert.Equal(t, 42, *res.PM25AQI)
	require.NotNil(t, res.PM25AQIColor)
	assert.Equal(t, 0x008000, *res.PM25AQIColor)
	require.NotNil(t, res.PM25Avg1mAQI)
	assert.Equal(t, 42, *res.PM25Avg1mAQI)
}

func TestOrchestrator_NowcastAfterSecondCycle(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	agg := aggregate.New(aggregate.Config{Now: func() time.Time { return now }})
	src := &fakeSource{queue: []any{
		reading(base, 1.0, 12.0, 3.0),
		reading(base.Add(5*time.Second), 1.0, 12.0, 3.0),
	}}

	orch := NewOrchestrator(src, agg, zap.NewNop())
	_ = orch.RunCycle(context.Background())

	now = base.Add(5 * time.Second)
	res := orch.RunCycle(context.Background())

	require.NotNil(t, res.PM25Nowcast)
	assert.Equal(t, 12.0, *res.PM25Nowcast)
	require.NotNil(t, res.PM25NowcastAQI)
	assert.Equal(t, 50, *res.PM25NowcastAQI)
	require.NotNil(t, res.PM25NowcastColor)
	assert.Equal(t, 0x008000, *res.PM25NowcastColor)
}

func TestOrchestrator_AllFailedLeavesWindowsUntouched(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	agg := aggregate.New(aggregate.Config{Now: func() time.Time { return base.Add(time.Second) }})
	src := &fakeSource{queue: []any{
		reading(base, 1.0, 10.0, 3.0),
		&AllFailedError{Failures: []SourceFailure{{Ordinal: 1, Source: "sensor:80", Reason: "timeout"}}},
	}}

	orch := NewOrchestrator(src, agg, zap.NewNop())
	_ = orch.RunCycle(context.Background())

	before := agg.ShortAverage(model.MetricPM25)
	require.NotNil(t, before)

	res := orch.RunCycle(context.Background())

	// The failed cycle reports nothing, and no zero polluted the windows.
	assert.False(t, res.HasData())
	assert.Nil(t, res.PM25)
	assert.Nil(t, res.PM25Avg1m)
	assert.Nil(t, res.PM25AQI)
	assert.Nil(t, res.PM25AQIColor)

	after := agg.ShortAverage(model.MetricPM25)
	require.NotNil(t, after)
	assert.Equal(t, *before, *after)
}

func TestOrchestrator_AbsentConcentrationsStayAbsent(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	agg := aggregate.New(aggregate.Config{Now: func() time.Time { return base }})
	src := &fakeSource{queue: []any{
		&model.RawReading{Station: "airlink-test", Timestamp: base},
	}}

	orch := NewOrchestrator(src, agg, zap.NewNop())
	res := orch.RunCycle(context.Background())

	assert.Nil(t, res.PM25)
	assert.Nil(t, res.PM25Avg1m)
	assert.Nil(t, res.PM25AQI)
	assert.Nil(t, res.PM25Nowcast)
}

func TestOrchestrator_FailoverEndToEnd(t *testing.T) {
	// Sensor 1 is down for three consecutive cycles; every cycle must use
	// sensor 2's reading and still re-attempt sensor 1 first.
	client := &fakeClient{outcomes: map[int]error{
		1: errors.New("connection refused"),
	}}
	poller := NewPoller(client, testSources(true, true), zap.NewNop())
	agg := aggregate.New(aggregate.Config{})
	orch := NewOrchestrator(poller, agg, zap.NewNop())

	for i := 0; i < 3; i++ {
		res := orch.RunCycle(context.Background())
		require.NotNil(t, res.PM25)
		assert.Equal(t, 2.0, *res.PM25)
	}
	assert.Equal(t, []int{1, 2, 1, 2, 1, 2}, client.contacts)
}
