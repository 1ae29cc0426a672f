// Package aggregate maintains per-metric rolling windows over a stream of
// irregularly-arriving sensor readings and derives short-window averages and
// NowCast estimates from them.
package aggregate

import (
	"sync"
	"time"

	"github.com/LeonardoBeccarini/airlink-monitor/internal/model"
)

const (
	DefaultShortWindow       = time.Minute
	DefaultNowcastWindow     = 12 * time.Hour
	DefaultMinNowcastSamples = 2
)

// Config tunes the window spans. NowCast span and minimum sample count are
// policy parameters rather than constants; the defaults follow the published
// EPA NowCast procedure (12 hours, at least two samples).
type Config struct {
	ShortWindow       time.Duration
	NowcastWindow     time.Duration
	MinNowcastSamples int
	Now               func() time.Time
}

type sample struct {
	t time.Time
	v float64
}

// window is a time-bounded sequence of samples in non-decreasing timestamp
// order. Eviction happens lazily, before any aggregate is computed.
type window struct {
	retention time.Duration
	samples   []sample
}

func (w *window) add(t time.Time, v float64) {
	// Keep ordering even if a source hands us a timestamp behind the tail.
	i := len(w.samples)
	for i > 0 && w.samples[i-1].t.After(t) {
		i--
	}
	w.samples = append(w.samples, sample{})
	copy(w.samples[i+1:], w.samples[i:])
	w.samples[i] = sample{t: t, v: v}
}

func (w *window) evict(now time.Time) {
	horizon := now.Add(-w.retention)
	i := 0
	for i < len(w.samples) && !w.samples[i].t.After(horizon) {
		i++
	}
	if i > 0 {
		w.samples = append(w.samples[:0], w.samples[i:]...)
	}
}

// Aggregator owns the rolling windows for all three particulate metrics.
// It is handed to the orchestrator at startup; only the cycle loop mutates
// it, but the mutex keeps concurrent readers (health endpoints) safe.
type Aggregator struct {
	mu    sync.Mutex
	cfg   Config
	short map[model.Metric]*window
	long  map[model.Metric]*window
}

func New(cfg Config) *Aggregator {
	if cfg.ShortWindow <= 0 {
		cfg.ShortWindow = DefaultShortWindow
	}
	if cfg.NowcastWindow <= 0 {
		cfg.NowcastWindow = DefaultNowcastWindow
	}
	if cfg.MinNowcastSamples < 2 {
		cfg.MinNowcastSamples = DefaultMinNowcastSamples
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	a := &Aggregator{
		cfg:   cfg,
		short: make(map[model.Metric]*window),
		long:  make(map[model.Metric]*window),
	}
	for _, m := range []model.Metric{model.MetricPM1, model.MetricPM25, model.MetricPM10} {
		a.short[m] = &window{retention: cfg.ShortWindow}
		a.long[m] = &window{retention: cfg.NowcastWindow}
	}
	return a
}

// Ingest appends one timestamped sample to the metric's windows. A nil value
// is a valid "no reading this cycle" signal and leaves the windows untouched.
func (a *Aggregator) Ingest(m model.Metric, t time.Time, v *float64) {
	if v == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if w, ok := a.short[m]; ok {
		w.add(t, *v)
	}
	if w, ok := a.long[m]; ok {
		w.add(t, *v)
	}
}

// ShortAverage returns the arithmetic mean of the samples still inside the
// short window, or nil when the window is empty.
func (a *Aggregator) ShortAverage(m model.Metric) *float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	w, ok := a.short[m]
	if !ok {
		return nil
	}
	w.evict(a.cfg.Now())
	if len(w.samples) == 0 {
		return nil
	}
	sum := 0.0
	for _, s := range w.samples {
		sum += s.v
	}
	avg := sum / float64(len(w.samples))
	return &avg
}

// Nowcast returns the concentration-weighted NowCast estimate over the long
// window, or nil when fewer than the minimum samples are retained.
func (a *Aggregator) Nowcast(m model.Metric) *float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	w, ok := a.long[m]
	if !ok {
		return nil
	}
	w.evict(a.cfg.Now())
	if len(w.samples) < a.cfg.MinNowcastSamples {
		return nil
	}

	v := nowcast(w.samples)
	return &v
}

// nowcast implements the EPA NowCast weighting: the weight factor is the
// min/max concentration ratio over the retained samples, floored at 0.5, and
// each sample is discounted by weight^age with the newest sample first.
func nowcast(samples []sample) float64 {
	cmin, cmax := samples[0].v, samples[0].v
	for _, s := range samples[1:] {
		if s.v < cmin {
			cmin = s.v
		}
		if s.v > cmax {
			cmax = s.v
		}
	}

	weight := 0.5
	if cmax > 0 {
		if r := cmin / cmax; r > weight {
			weight = r
		}
		if weight > 1 {
			weight = 1
		}
	}

	var num, den float64
	wi := 1.0
	for i := len(samples) - 1; i >= 0; i-- { // newest first
		num += wi * samples[i].v
		den += wi
		wi *= weight
	}
	return num / den
}
