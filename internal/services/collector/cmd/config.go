package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/LeonardoBeccarini/airlink-monitor/internal/model"
)

type Config struct {
	LogLevel      string        `mapstructure:"log_level"`
	HTTPAddr      string        `mapstructure:"http_addr"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	MaxReadingAge time.Duration `mapstructure:"max_reading_age"`

	Sensors []SensorConfig `mapstructure:"sensors"`

	Aggregate AggregateConfig `mapstructure:"aggregate"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
}

// SensorConfig is one entry of the ordered sensor list; the ordinal is the
// position in the list, starting at 1.
type SensorConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Hostname string `mapstructure:"hostname"`
	Port     int    `mapstructure:"port"`
	Timeout  int    `mapstructure:"timeout"` // seconds
}

type AggregateConfig struct {
	ShortWindow       time.Duration `mapstructure:"short_window"`
	NowcastWindow     time.Duration `mapstructure:"nowcast_window"`
	MinNowcastSamples int           `mapstructure:"min_nowcast_samples"`
}

type MQTTConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Topic    string `mapstructure:"topic"`
}

// LoadConfig reads config.yaml from path, with environment overrides
// (AIRLINK_MQTT_HOST and friends) and sensible defaults.
func LoadConfig(path string) (*Config, error) {
	viper.SetDefault("log_level", "info")
	viper.SetDefault("http_addr", ":9090")
	viper.SetDefault("poll_interval", "5s")
	viper.SetDefault("max_reading_age", "5m")

	viper.SetDefault("aggregate.short_window", "1m")
	viper.SetDefault("aggregate.nowcast_window", "12h")
	viper.SetDefault("aggregate.min_nowcast_samples", 2)

	viper.SetDefault("mqtt.host", "localhost")
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.user", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.topic", "air/observations/airlink")

	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("airlink")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// No file is fine; env vars and defaults still apply.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}

// Sources converts the config entries into the ordered source list the
// poller consumes.
func (c *Config) Sources() []model.Source {
	out := make([]model.Source, 0, len(c.Sensors))
	for i, s := range c.Sensors {
		port := s.Port
		if port == 0 {
			port = 80
		}
		timeout := time.Duration(s.Timeout) * time.Second
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		out = append(out, model.Source{
			Ordinal:  i + 1,
			Enable:   s.Enable,
			Hostname: s.Hostname,
			Port:     port,
			Timeout:  timeout,
		})
	}
	return out
}
