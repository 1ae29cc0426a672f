package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/airlink-monitor/internal/aggregate"
	"github.com/LeonardoBeccarini/airlink-monitor/internal/metrics"
	"github.com/LeonardoBeccarini/airlink-monitor/internal/services/collector"
	"github.com/LeonardoBeccarini/airlink-monitor/pkg/logger"
	"github.com/LeonardoBeccarini/airlink-monitor/pkg/mqtt"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := LoadConfig(".")
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	sources := cfg.Sources()
	enabled := 0
	for _, s := range sources {
		if s.Enable {
			enabled++
			zlog.Info("sensor source configured",
				zap.Int("ordinal", s.Ordinal),
				zap.String("source", s.Addr()),
				zap.Duration("timeout", s.Timeout))
		}
	}
	if enabled == 0 {
		zlog.Error("no sensor sources enabled; every cycle will report no data")
	}

	agg := aggregate.New(aggregate.Config{
		ShortWindow:       cfg.Aggregate.ShortWindow,
		NowcastWindow:     cfg.Aggregate.NowcastWindow,
		MinNowcastSamples: cfg.Aggregate.MinNowcastSamples,
	})

	client := collector.NewClient(cfg.MaxReadingAge, zlog)
	poller := collector.NewPoller(client, sources, zlog)
	orch := collector.NewOrchestrator(poller, agg, zlog)

	// --- MQTT publisher for downstream consumers (persistence, gateway) ---
	mqClient, err := mqtt.NewConn(ctx, &mqtt.BrokerConfig{
		Host:     cfg.MQTT.Host,
		Port:     cfg.MQTT.Port,
		User:     cfg.MQTT.User,
		Password: cfg.MQTT.Password,
		ClientID: "airlink-collector-" + uuid.NewString()[:8],
	}, zlog)
	if err != nil {
		zlog.Fatal("mqtt connect failed", zap.Error(err))
	}
	publisher := mqtt.NewPublisher(mqClient, cfg.MQTT.Topic)

	// --- metrics & health ---
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: mux}
	go func() {
		zlog.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Error("http server error", zap.Error(err))
		}
	}()

	// --- cycle loop ---
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	zlog.Info("collector started", zap.Duration("poll_interval", cfg.PollInterval))
	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = srv.Shutdown(shutdownCtx)
			cancel()
			zlog.Info("collector stopped")
			return
		case <-ticker.C:
			result := orch.RunCycle(ctx)
			if !result.HasData() {
				continue
			}
			if err := publisher.Publish(result); err != nil {
				metrics.ObservationsPublishFailed.Inc()
				zlog.Error("publish failed", zap.Error(err))
				continue
			}
			metrics.ObservationsPublished.Inc()
		}
	}
}
