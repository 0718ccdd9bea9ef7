package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector keeps the latest sample as Prometheus gauges.
type Collector struct {
	raw         *prometheus.GaugeVec
	rate        *prometheus.GaugeVec
	temperature prometheus.Gauge
	samples     prometheus.Counter
	timeouts    prometheus.Counter
}

func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		raw: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gyroscope_raw",
			Help: "Last raw output register value per axis.",
		}, []string{"axis"}),
		rate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gyroscope_rate_dps",
			Help: "Last calibrated angular rate per axis in degrees per second.",
		}, []string{"axis"}),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gyroscope_temperature_raw",
			Help: "Raw OUT_TEMP register value.",
		}),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gyroscope_samples_total",
			Help: "Samples acquired.",
		}),
		timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gyroscope_data_ready_timeouts_total",
			Help: "Data ready waits that ended without a new sample.",
		}),
	}
	for _, col := range []prometheus.Collector{c.raw, c.rate, c.temperature, c.samples, c.timeouts} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("could not register collector: %w", err)
		}
	}
	return c, nil
}

func (c *Collector) Record(_ context.Context, s Sample) error {
	dps := s.Rate.DPS()
	c.raw.WithLabelValues("x").Set(float64(s.Raw.X))
	c.raw.WithLabelValues("y").Set(float64(s.Raw.Y))
	c.raw.WithLabelValues("z").Set(float64(s.Raw.Z))
	c.rate.WithLabelValues("x").Set(float64(dps.X))
	c.rate.WithLabelValues("y").Set(float64(dps.Y))
	c.rate.WithLabelValues("z").Set(float64(dps.Z))
	c.samples.Inc()
	return nil
}

func (c *Collector) Timeout() {
	c.timeouts.Inc()
}

func (c *Collector) Temperature(t int8) {
	c.temperature.Set(float64(t))
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()
	slog.Info("serving metrics", "addr", addr)
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("could not serve metrics: %w", err)
	}
	return nil
}
