package collector

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/airlink-monitor/internal/metrics"
	"github.com/LeonardoBeccarini/airlink-monitor/internal/model"
)

// SourceFailure records why one source could not serve the cycle.
type SourceFailure struct {
	Ordinal int
	Source  string
	Reason  string
}

// AllFailedError is returned when no enabled source produced a reading.
// A list with zero enabled sources yields the same outcome as one where
// every source failed: the recovery action is identical either way.
type AllFailedError struct {
	Failures []SourceFailure
}

func (e *AllFailedError) Error() string {
	if len(e.Failures) == 0 {
		return "no enabled sensor sources"
	}
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Source, f.Reason))
	}
	return "all sensor sources failed: " + strings.Join(parts, "; ")
}

// SensorClient is the single-source poll contract the failover poller
// drives. Satisfied by *Client; swapped for a fake in tests.
type SensorClient interface {
	Poll(ctx context.Context, src model.Source) (*model.RawReading, error)
}

// Poller walks the configured sources in ordinal order each cycle and
// returns the first successful reading. Remaining sources are not contacted
// once one succeeds: one poll cycle must never mix readings from different
// units, and per-cycle network load stays bounded. Failed sources are
// re-attempted from scratch on the next cycle.
type Poller struct {
	client  SensorClient
	sources []model.Source
	log     *zap.Logger
}

// NewPoller builds a failover poller over a pre-validated, ordinal-ordered
// source list.
func NewPoller(client SensorClient, sources []model.Source, log *zap.Logger) *Poller {
	return &Poller{client: client, sources: sources, log: log}
}

// Poll returns the first successful reading, or *AllFailedError carrying
// the per-source reasons.
func (p *Poller) Poll(ctx context.Context) (*model.RawReading, error) {
	var failures []SourceFailure

	for _, src := range p.sources {
		if !src.Enable {
			continue
		}

		metrics.PollAttempts.WithLabelValues(src.Addr()).Inc()
		reading, err := p.client.Poll(ctx, src)
		if err == nil {
			p.log.Debug("poll succeeded",
				zap.Int("ordinal", src.Ordinal),
				zap.String("source", src.Addr()),
				zap.Time("reading_ts", reading.Timestamp))
			return reading, nil
		}

		metrics.PollFailures.WithLabelValues(src.Addr()).Inc()
		p.log.Warn("poll failed, trying next source",
			zap.Int("ordinal", src.Ordinal),
			zap.String("source", src.Addr()),
			zap.Error(err))
		failures = append(failures, SourceFailure{
			Ordinal: src.Ordinal,
			Source:  src.Addr(),
			Reason:  err.Error(),
		})
	}

	return nil, &AllFailedError{Failures: failures}
}
