package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/airlink-monitor/internal/model"
)

const currentConditionsPath = "/v1/current_conditions"

// Client issues single bounded-timeout requests against one sensor source.
// It never retries; failover across sources is the poller's job. Every
// failure mode (timeout, refused connection, malformed body, missing fields,
// stale reading) collapses to an error whose message is the diagnostic
// reason.
type Client struct {
	maxAge time.Duration
	now    func() time.Time
	log    *zap.Logger
}

// NewClient builds a sensor client. Readings whose report time is older than
// maxAge are rejected: after a reboot the AirLink reports seconds-since-boot
// until its clock syncs, and such a reading must not enter the windows.
func NewClient(maxAge time.Duration, log *zap.Logger) *Client {
	if maxAge <= 0 {
		maxAge = 5 * time.Minute
	}
	return &Client{maxAge: maxAge, now: time.Now, log: log}
}

// Poll fetches and validates one reading from src.
func (c *Client) Poll(ctx context.Context, src model.Source) (*model.RawReading, error) {
	url := fmt.Sprintf("http://%s%s", src.Addr(), currentConditionsPath)

	httpClient := &http.Client{Timeout: src.Timeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("sensor status %d", resp.StatusCode)
	}

	var payload wirePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode error: %w", err)
	}

	return c.readingFrom(src, &payload)
}

// readingFrom applies the sanity checks the device contract demands and
// turns a decoded payload into a typed reading.
func (c *Client) readingFrom(src model.Source, payload *wirePayload) (*model.RawReading, error) {
	if payload.Error != nil {
		return nil, fmt.Errorf("sensor error %d: %s", payload.Error.Code, payload.Error.Message)
	}
	if payload.Data == nil {
		return nil, fmt.Errorf("missing \"data\" field")
	}
	if len(payload.Data.Conditions) == 0 {
		return nil, fmt.Errorf("empty \"conditions\" array")
	}

	cond := payload.Data.Conditions[0]
	cond.normalize()
	if cond.DataStructureType != 6 {
		return nil, fmt.Errorf("unexpected data_structure_type %d", cond.DataStructureType)
	}
	if cond.LastReportTime == nil {
		return nil, fmt.Errorf("missing \"last_report_time\" field")
	}

	reportTime := time.Unix(*cond.LastReportTime, 0)
	age := c.now().Sub(reportTime)
	if age > c.maxAge {
		if cond.PM1Avg == nil {
			// No running average alongside an old timestamp: the sensor
			// likely rebooted and last_report_time is seconds since boot.
			c.log.Info("sensor clock not yet synced",
				zap.String("source", src.Addr()),
				zap.Int64("last_report_time", *cond.LastReportTime))
		}
		return nil, fmt.Errorf("stale reading: %s old", age.Truncate(time.Second))
	}

	if err := validConcentration(cond.PM1Last, "pm_1_last"); err != nil {
		return nil, err
	}
	if err := validConcentration(cond.PM25Last, "pm_2p5_last"); err != nil {
		return nil, err
	}
	if err := validConcentration(cond.PM10Last, "pm_10_last"); err != nil {
		return nil, err
	}

	return &model.RawReading{
		Station:   payload.Data.Name,
		Timestamp: reportTime,
		PM1:       cond.PM1Last,
		PM25:      cond.PM25Last,
		PM10:      cond.PM10Last,
	}, nil
}

// Absent concentrations are valid; negative ones are not.
func validConcentration(v *float64, name string) error {
	if v != nil && *v < 0 {
		return fmt.Errorf("negative %q value %v", name, *v)
	}
	return nil
}
