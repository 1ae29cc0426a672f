package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/airlink-monitor/internal/model"
	"github.com/LeonardoBeccarini/airlink-monitor/pkg/mqtt"
)

const measurement = "air_quality"

type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// Service consumes published cycle results and writes them to InfluxDB,
// keeping the latest result per station in memory as a query fallback.
type Service struct {
	consumer mqtt.IConsumer
	writeAPI api.WriteAPIBlocking
	queryAPI api.QueryAPI
	bucket   string
	log      *zap.Logger

	mu     sync.RWMutex
	latest map[string]model.CycleResult
}

func NewService(consumer mqtt.IConsumer, cfg InfluxConfig, log *zap.Logger) (*Service, error) {
	if cfg.URL == "" || cfg.Token == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("influx config incomplete")
	}

	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &Service{
		consumer: consumer,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		queryAPI: client.QueryAPI(cfg.Org),
		bucket:   cfg.Bucket,
		log:      log,
		latest:   make(map[string]model.CycleResult),
	}, nil
}

// Start wires the message handler and blocks consuming until ctx closes.
func (s *Service) Start(ctx context.Context) {
	s.consumer.SetHandler(func(topic string, msg pahomqtt.Message) error {
		var res model.CycleResult
		if err := json.Unmarshal(msg.Payload(), &res); err != nil {
			s.log.Warn("invalid observation payload", zap.String("topic", topic), zap.Error(err))
			return nil // do not stall the stream on one bad message
		}
		if !res.HasData() {
			return nil
		}

		station := res.Station
		if station == "" {
			station = "unknown"
		}

		s.mu.Lock()
		s.latest[station] = res
		s.mu.Unlock()

		point := influxdb2.NewPoint(measurement,
			map[string]string{"station": station},
			pointFields(&res),
			res.Timestamp)
		if err := s.writeAPI.WritePoint(ctx, point); err != nil {
			s.log.Error("influx write failed", zap.String("station", station), zap.Error(err))
			return err
		}
		return nil
	})

	s.consumer.Consume(ctx)
}

// pointFields flattens the optional result fields; absent values are simply
// not written, so gaps stay gaps in the series.
func pointFields(res *model.CycleResult) map[string]interface{} {
	fields := make(map[string]interface{})

	addF := func(name string, v *float64) {
		if v != nil {
			fields[name] = *v
		}
	}
	addI := func(name string, v *int) {
		if v != nil {
			fields[name] = int64(*v)
		}
	}

	addF("pm1_0", res.PM1)
	addF("pm2_5", res.PM25)
	addF("pm10_0", res.PM10)
	addF("pm1_0_1m", res.PM1Avg1m)
	addF("pm2_5_1m", res.PM25Avg1m)
	addF("pm10_0_1m", res.PM10Avg1m)
	addF("pm2_5_nowcast", res.PM25Nowcast)
	addF("pm10_0_nowcast", res.PM10Nowcast)
	addI("pm2_5_aqi", res.PM25AQI)
	addI("pm2_5_aqi_color", res.PM25AQIColor)
	addI("pm2_5_1m_aqi", res.PM25Avg1mAQI)
	addI("pm2_5_1m_aqi_color", res.PM25Avg1mColor)
	addI("pm2_5_nowcast_aqi", res.PM25NowcastAQI)
	addI("pm2_5_nowcast_aqi_color", res.PM25NowcastColor)
	return fields
}

// LatestCache returns the most recent in-memory result per station.
func (s *Service) LatestCache() []model.CycleResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.CycleResult, 0, len(s.latest))
	for _, v := range s.latest {
		out = append(out, v)
	}
	return out
}

// QueryLatestFromInflux reads the newest field values per station inside the
// given window and reassembles them into result records.
func (s *Service) QueryLatestFromInflux(ctx context.Context, minutes int) ([]model.CycleResult, error) {
	flux := fmt.Sprintf(`from(bucket: %q)
  |> range(start: -%dm)
  |> filter(fn: (r) => r._measurement == %q)
  |> last()`, s.bucket, minutes, measurement)

	result, err := s.queryAPI.Query(ctx, flux)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	byStation := make(map[string]*model.CycleResult)
	for result.Next() {
		rec := result.Record()
		station, _ := rec.ValueByKey("station").(string)
		res, ok := byStation[station]
		if !ok {
			res = &model.CycleResult{Station: station}
			byStation[station] = res
		}
		if rec.Time().After(res.Timestamp) {
			res.Timestamp = rec.Time()
		}
		setField(res, rec.Field(), rec.Value())
	}
	if result.Err() != nil {
		return nil, result.Err()
	}

	out := make([]model.CycleResult, 0, len(byStation))
	for _, v := range byStation {
		out = append(out, *v)
	}
	return out, nil
}

func setField(res *model.CycleResult, field string, value interface{}) {
	var fp *float64
	var ip *int
	switch v := value.(type) {
	case float64:
		f := v
		fp = &f
		n := int(v)
		ip = &n
	case int64:
		f := float64(v)
		fp = &f
		n := int(v)
		ip = &n
	default:
		return
	}

	switch field {
	case "pm1_0":
		res.PM1 = fp
	case "pm2_5":
		res.PM25 = fp
	case "pm10_0":
		res.PM10 = fp
	case "pm1_0_1m":
		res.PM1Avg1m = fp
	case "pm2_5_1m":
		res.PM25Avg1m = fp
	case "pm10_0_1m":
		res.PM10Avg1m = fp
	case "pm2_5_nowcast":
		res.PM25Nowcast = fp
	case "pm10_0_nowcast":
		res.PM10Nowcast = fp
	case "pm2_5_aqi":
		res.PM25AQI = ip
	case "pm2_5_aqi_color":
		res.PM25AQIColor = ip
	case "pm2_5_1m_aqi":
		res.PM25Avg1mAQI = ip
	case "pm2_5_1m_aqi_color":
		res.PM25Avg1mColor = ip
	case "pm2_5_nowcast_aqi":
		res.PM25NowcastAQI = ip
	case "pm2_5_nowcast_aqi_color":
		res.PM25NowcastColor = ip
	}
}
