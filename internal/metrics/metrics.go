package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Poller
	PollAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airlink_poll_attempts_total",
		Help: "Total number of poll attempts per sensor source",
	}, []string{"source"})

	PollFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airlink_poll_failures_total",
		Help: "Total number of failed poll attempts per sensor source",
	}, []string{"source"})

	CyclesNoData = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airlink_cycles_no_data_total",
		Help: "Total number of cycles where every configured source failed",
	})

	// Orchestrator
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "airlink_cycle_duration_seconds",
		Help:    "Histogram of full poll/aggregate cycle durations",
		Buckets: prometheus.DefBuckets,
	})

	LastAQI = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "airlink_pm2_5_aqi",
		Help: "Most recent PM2.5 AQI per variant (raw, 1m, nowcast)",
	}, []string{"variant"})

	// Publishing
	ObservationsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airlink_observations_published_total",
		Help: "Total number of cycle results published to the broker",
	})

	ObservationsPublishFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airlink_observations_publish_failed_total",
		Help: "Total number of cycle results that failed to publish",
	})
)
