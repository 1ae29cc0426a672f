package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/airlink-monitor/internal/model"
	"github.com/LeonardoBeccarini/airlink-monitor/pkg/logger"
)

// Payload is the DTO handed to the dashboard.
type Payload struct {
	Observations []model.CycleResult `json:"observations"`
	CollectorUp  bool                `json:"collector_up"`
	GeneratedAt  string              `json:"generated_at"` // RFC3339
}

type Upstream struct {
	http *http.Client
}

func NewUpstream(timeoutMs int) *Upstream {
	return &Upstream{http: &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond}}
}

func (u *Upstream) getJSON(ctx context.Context, url string, out any) error {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	res, err := u.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("GET %s -> %s", url, res.Status)
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// Persistence-service: latest observation per station.
func (u *Upstream) GetObservations(ctx context.Context, base string) ([]model.CycleResult, error) {
	var out []model.CycleResult
	if err := u.getJSON(ctx, base+"/data/latest", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Collector: liveness only.
func (u *Upstream) CollectorUp(ctx context.Context, base string) bool {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, base+"/healthz", nil)
	res, err := u.http.Do(req)
	if err != nil {
		return false
	}
	defer res.Body.Close()
	return res.StatusCode >= 200 && res.StatusCode < 300
}

func mkCB(name string, fails, openMs, intervalMs int) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: time.Duration(intervalMs) * time.Millisecond,
		Timeout:  time.Duration(openMs) * time.Millisecond,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(fails)
		},
	})
}

func main() {
	cfg := loadConfig()

	zlog, err := logger.New(getenv("LOG_LEVEL", "info"))
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	persistenceCB := mkCB("persistence-service", cfg.CBFails, cfg.CBOpenMs, cfg.CBIntervalMs)
	collectorCB := mkCB("collector", cfg.CBFails, cfg.CBOpenMs, cfg.CBIntervalMs)

	var lastGoodObservations []model.CycleResult

	http.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	http.HandleFunc("/dashboard/data", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, cancel := context.WithTimeout(r.Context(), time.Duration(cfg.TimeoutMs)*time.Millisecond)
		defer cancel()

		up := NewUpstream(cfg.TimeoutMs)

		var observations []model.CycleResult
		if res, err := persistenceCB.Execute(func() (any, error) {
			obs, err := up.GetObservations(ctx, cfg.PersistenceURL)
			if err != nil {
				return nil, err
			}
			if len(obs) == 0 {
				return nil, fmt.Errorf("empty observations")
			}
			return obs, nil
		}); err == nil {
			observations = res.([]model.CycleResult)
			lastGoodObservations = observations
		} else {
			// serve the last good snapshot while the upstream recovers
			observations = lastGoodObservations
		}

		collectorUp := false
		if res, err := collectorCB.Execute(func() (any, error) {
			ok := up.CollectorUp(ctx, cfg.CollectorURL)
			if !ok {
				return nil, fmt.Errorf("collector down")
			}
			return ok, nil
		}); err == nil {
			collectorUp = res.(bool)
		}

		resp := Payload{
			Observations: observations,
			CollectorUp:  collectorUp,
			GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)

		zlog.Info("dashboard data served",
			zap.Int64("ms", time.Since(start).Milliseconds()),
			zap.String("cb_persistence", persistenceCB.State().String()),
			zap.String("cb_collector", collectorCB.State().String()),
			zap.Int("observations", len(resp.Observations)))
	})

	addr := ":" + cfg.Port
	zlog.Info("gateway listening", zap.String("addr", addr))
	log.Fatal(http.ListenAndServe(addr, nil))
}
