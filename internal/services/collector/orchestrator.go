package collector

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/airlink-monitor/internal/aggregate"
	"github.com/LeonardoBeccarini/airlink-monitor/internal/aqi"
	"github.com/LeonardoBeccarini/airlink-monitor/internal/metrics"
	"github.com/LeonardoBeccarini/airlink-monitor/internal/model"
)

// ReadingSource is the poll contract the orchestrator drives once per cycle.
// Satisfied by *Poller.
type ReadingSource interface {
	Poll(ctx context.Context) (*model.RawReading, error)
}

// Orchestrator ties poller and aggregator together: each cycle it polls,
// feeds the windows, and derives the output record. The aggregator's windows
// are the only state that survives across cycles.
type Orchestrator struct {
	source ReadingSource
	agg    *aggregate.Aggregator
	now    func() time.Time
	log    *zap.Logger
}

func NewOrchestrator(source ReadingSource, agg *aggregate.Aggregator, log *zap.Logger) *Orchestrator {
	return &Orchestrator{source: source, agg: agg, now: time.Now, log: log}
}

// RunCycle executes one polling cycle and returns the result record. It
// never returns an error: a cycle where every source failed produces a
// record with all fields absent, and the windows stay untouched so the
// rolling averages are not distorted by synthetic zeros.
func (o *Orchestrator) RunCycle(ctx context.Context) *model.CycleResult {
	timer := prometheus.NewTimer(metrics.CycleDuration)
	defer timer.ObserveDuration()

	reading, err := o.source.Poll(ctx)
	if err != nil {
		metrics.CyclesNoData.Inc()
		o.log.Warn("no data this cycle", zap.Error(err))
		return &model.CycleResult{Timestamp: o.now()}
	}

	o.agg.Ingest(model.MetricPM1, reading.Timestamp, reading.PM1)
	o.agg.Ingest(model.MetricPM25, reading.Timestamp, reading.PM25)
	o.agg.Ingest(model.MetricPM10, reading.Timestamp, reading.PM10)

	res := &model.CycleResult{
		Station:   reading.Station,
		Timestamp: reading.Timestamp,
		PM1:       reading.PM1,
		PM25:      reading.PM25,
		PM10:      reading.PM10,
	}

	res.PM1Avg1m = o.agg.ShortAverage(model.MetricPM1)
	res.PM25Avg1m = o.agg.ShortAverage(model.MetricPM25)
	res.PM10Avg1m = o.agg.ShortAverage(model.MetricPM10)

	res.PM25Nowcast = o.agg.Nowcast(model.MetricPM25)
	res.PM10Nowcast = o.agg.Nowcast(model.MetricPM10)

	res.PM25AQI, res.PM25AQIColor = classify(res.PM25, "raw")
	res.PM25Avg1mAQI, res.PM25Avg1mColor = classify(res.PM25Avg1m, "1m")
	res.PM25NowcastAQI, res.PM25NowcastColor = classify(res.PM25Nowcast, "nowcast")

	o.log.Info("cycle complete",
		zap.String("station", res.Station),
		zap.Time("reading_ts", res.Timestamp),
		zap.Float64p("pm2_5", res.PM25),
		zap.Float64p("pm2_5_1m", res.PM25Avg1m),
		zap.Float64p("pm2_5_nowcast", res.PM25Nowcast),
		zap.Intp("pm2_5_aqi", res.PM25AQI))

	return res
}

// classify maps an optional concentration to an optional index/color pair.
// Absent in, absent out; no zero is ever substituted for missing data.
func classify(c *float64, variant string) (*int, *int) {
	if c == nil {
		return nil, nil
	}
	r, ok := aqi.ClassifyPM25(*c)
	if !ok {
		return nil, nil
	}
	metrics.LastAQI.WithLabelValues(variant).Set(float64(r.Index))
	return &r.Index, &r.Color
}
