package command

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/gyroscope/cmd/gyroscope/console"
	"github.com/mklimuk/gyroscope/telemetry"
)

var StreamCmd = &cli.Command{
	Name:  "stream",
	Usage: "sample continuously and publish to the configured telemetry sinks",
	Flags: []cli.Flag{
		&cli.DurationFlag{Name: "interval", Aliases: []string{"i"}, Usage: "sampling interval, overrides telemetry.interval"},
		&cli.StringFlag{Name: "metrics-addr", Usage: "serve prometheus metrics on this address"},
		&cli.StringFlag{Name: "mqtt-broker", Usage: "publish samples to this broker, e.g. tcp://localhost:1883"},
		&cli.StringFlag{Name: "topic", Usage: "mqtt topic"},
	},
	Action: func(c *cli.Context) error {
		s, ctx, err := start(c)
		if err != nil {
			return console.Exit(console.ExitError, "could not start device: %s", console.Red(err))
		}
		defer s.Close()

		cfg := s.cfg.Telemetry
		if c.IsSet("interval") {
			cfg.Interval = c.Duration("interval")
		}
		if c.IsSet("metrics-addr") {
			cfg.MetricsAddr = c.String("metrics-addr")
		}
		if c.IsSet("mqtt-broker") {
			cfg.MQTTBroker = c.String("mqtt-broker")
		}
		if c.IsSet("topic") {
			cfg.Topic = c.String("topic")
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		sinks := telemetry.Fanout{telemetry.LogSink{}}
		var collector *telemetry.Collector
		serveErr := make(chan error, 1)
		if cfg.MetricsAddr != "" {
			reg := prometheus.NewRegistry()
			collector, err = telemetry.NewCollector(reg)
			if err != nil {
				return console.Exit(console.ExitError, "%s", console.Red(err))
			}
			sinks = append(sinks, collector)
			go func() {
				serveErr <- telemetry.Serve(ctx, cfg.MetricsAddr, reg)
			}()
		}
		if cfg.MQTTBroker != "" {
			client, err := telemetry.DialMQTT(cfg.MQTTBroker, cfg.MQTTClientID, 5*time.Second)
			if err != nil {
				return console.Exit(console.ExitError, "%s", console.Red(err))
			}
			publisher := telemetry.NewMQTTPublisher(client, cfg.Topic)
			defer publisher.Close(250)
			sinks = append(sinks, publisher)
		}

		console.PInfof(console.PictoGyro, "streaming every %s, interrupt to stop", cfg.Interval)
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case err := <-serveErr:
				if err != nil {
					return console.Exit(console.ExitError, "%s", console.Red(err))
				}
			case <-ticker.C:
			}
			// wait at most one interval so a stalled device does not block shutdown
			ready, err := s.WaitForDataReady(ctx, cfg.Interval)
			if stopped(ctx, err) {
				return nil
			}
			if err != nil {
				return console.Exit(console.ExitError, "%s", console.Red(err))
			}
			if !ready {
				if collector != nil {
					collector.Timeout()
				}
				continue
			}
			raw, err := s.GetRawSample(ctx)
			if stopped(ctx, err) {
				return nil
			}
			if err != nil {
				return console.Exit(console.ExitError, "%s", console.Red(err))
			}
			if collector != nil {
				if temp, err := s.ReadTemperature(ctx); err == nil {
					collector.Temperature(temp)
				}
			}
			err = sinks.Record(ctx, telemetry.Sample{Time: time.Now(), Raw: raw, Rate: s.Scale(raw)})
			if err != nil {
				slog.Warn("could not record sample", "error", err)
			}
		}
	},
}

// stopped reports whether err was caused by ctx ending, by interrupt or by
// deadline.
func stopped(ctx context.Context, err error) bool {
	return err != nil && ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}
