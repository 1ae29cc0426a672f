package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/airlink-monitor/internal/services/persistence"
	"github.com/LeonardoBeccarini/airlink-monitor/pkg/logger"
	"github.com/LeonardoBeccarini/airlink-monitor/pkg/mqtt"
)

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog, err := logger.New(env("LOG_LEVEL", "info"))
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	mqClient, err := mqtt.NewConn(ctx, &mqtt.BrokerConfig{
		Host:     env("MQTT_HOST", "localhost"),
		Port:     envInt("MQTT_PORT", 1883),
		User:     env("MQTT_USER", ""),
		Password: env("MQTT_PASSWORD", ""),
		ClientID: "airlink-persistence-" + uuid.NewString()[:8],
	}, zlog)
	if err != nil {
		zlog.Fatal("mqtt connect failed", zap.Error(err))
	}

	topic := env("MQTT_TOPIC", "air/observations/#")
	consumer := mqtt.NewConsumer(mqClient, topic, nil, zlog)

	svc, err := persistence.NewService(consumer, persistence.InfluxConfig{
		URL:    env("INFLUX_URL", "http://influxdb:8086"),
		Token:  env("INFLUX_TOKEN", ""),
		Org:    env("INFLUX_ORG", "air"),
		Bucket: env("INFLUX_BUCKET", "air_quality"),
	}, zlog)
	if err != nil {
		zlog.Fatal("persistence init failed", zap.Error(err))
	}

	srv := &http.Server{Addr: ":" + env("PORT", "8081"), Handler: persistence.NewHTTPMux(svc)}
	go func() {
		zlog.Info("http listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Error("http server error", zap.Error(err))
		}
	}()

	zlog.Info("persistence started", zap.String("topic", topic))
	svc.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	zlog.Info("persistence stopped")
}
