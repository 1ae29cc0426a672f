package model

import "time"

// Metric names a particulate size class tracked by the rolling windows.
type Metric string

const (
	MetricPM1  Metric = "pm1_0"
	MetricPM25 Metric = "pm2_5"
	MetricPM10 Metric = "pm10_0"
)

// RawReading is a single successful sensor response. Concentration fields
// are nil when the sensor reported no valid measurement for that size class.
type RawReading struct {
	Station   string    `json:"station"`
	Timestamp time.Time `json:"timestamp"`
	PM1       *float64  `json:"pm1_0,omitempty"`
	PM25      *float64  `json:"pm2_5,omitempty"`
	PM10      *float64  `json:"pm10_0,omitempty"`
}
