package model

import "time"

// CycleResult is the record handed to the host after each polling cycle.
// Every derived field is independently optional: a missed cycle or a thin
// window yields nil, never a substituted zero. The AQI color values are
// 24-bit packed RGB integers (red = v>>16&255, green = v>>8&255, blue = v&255).
type CycleResult struct {
	Station   string    `json:"station,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	PM1  *float64 `json:"pm1_0,omitempty"`
	PM25 *float64 `json:"pm2_5,omitempty"`
	PM10 *float64 `json:"pm10_0,omitempty"`

	PM1Avg1m  *float64 `json:"pm1_0_1m,omitempty"`
	PM25Avg1m *float64 `json:"pm2_5_1m,omitempty"`
	PM10Avg1m *float64 `json:"pm10_0_1m,omitempty"`

	PM25Nowcast *float64 `json:"pm2_5_nowcast,omitempty"`
	PM10Nowcast *float64 `json:"pm10_0_nowcast,omitempty"`

	PM25AQI        *int `json:"pm2_5_aqi,omitempty"`
	PM25AQIColor   *int `json:"pm2_5_aqi_color,omitempty"`
	PM25Avg1mAQI   *int `json:"pm2_5_1m_aqi,omitempty"`
	PM25Avg1mColor *int `json:"pm2_5_1m_aqi_color,omitempty"`

	PM25NowcastAQI   *int `json:"pm2_5_nowcast_aqi,omitempty"`
	PM25NowcastColor *int `json:"pm2_5_nowcast_aqi_color,omitempty"`
}

// HasData reports whether the cycle produced at least one raw concentration.
func (r *CycleResult) HasData() bool {
	return r.PM1 != nil || r.PM25 != nil || r.PM10 != nil
}
