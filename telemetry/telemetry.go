// Package telemetry fans gyroscope samples out to logs, Prometheus and MQTT.
package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mklimuk/gyroscope/gyro"
)

// Sample is one acquisition as seen by the sinks.
type Sample struct {
	Time time.Time         `json:"time"`
	Raw  gyro.RawSample    `json:"raw"`
	Rate gyro.ScaledSample `json:"mdps"`
}

type Sink interface {
	Record(ctx context.Context, s Sample) error
}

// Fanout records to every sink and joins their errors.
type Fanout []Sink

func (f Fanout) Record(ctx context.Context, s Sample) error {
	var errs []error
	for _, sink := range f {
		if err := sink.Record(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes samples to the default logger at debug level.
type LogSink struct{}

func (LogSink) Record(ctx context.Context, s Sample) error {
	dps := s.Rate.DPS()
	slog.DebugContext(ctx, "sample",
		"x", s.Raw.X, "y", s.Raw.Y, "z", s.Raw.Z,
		"dps_x", dps.X, "dps_y", dps.Y, "dps_z", dps.Z)
	return nil
}
