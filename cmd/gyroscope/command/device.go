package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/urfave/cli/v2"
	gobotspi "gobot.io/x/gobot/v2/drivers/spi"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"
	"periph.io/x/conn/v3/physic"
	periphspi "periph.io/x/conn/v3/spi"

	"github.com/mklimuk/gyroscope"
	"github.com/mklimuk/gyroscope/busctx"
	"github.com/mklimuk/gyroscope/config"
	"github.com/mklimuk/gyroscope/gyro"
	"github.com/mklimuk/gyroscope/spi"
)

// Flags shared by every device command. They override the config file.
var Flags = []cli.Flag{
	&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "yaml config file", EnvVars: []string{"GYROSCOPE_CONFIG"}},
	&cli.StringFlag{Name: "adapter", Aliases: []string{"a"}, Usage: "bus adapter: periph, nanopi or sim"},
	&cli.StringFlag{Name: "device", Aliases: []string{"d"}, Usage: "periph SPI port, e.g. /dev/spidev0.0"},
	&cli.StringFlag{Name: "cs-pin", Usage: "GPIO used as chip select"},
	&cli.StringFlag{Name: "frequency", Usage: "SPI clock, e.g. 5MHz"},
	&cli.BoolFlag{Name: "trace", Usage: "log every register transfer"},
}

// LoadConfig reads the config file and applies command line overrides.
func LoadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cfg, err
	}
	if c.IsSet("adapter") {
		cfg.Bus.Adapter = c.String("adapter")
	}
	if c.IsSet("device") {
		cfg.Bus.Device = c.String("device")
	}
	if c.IsSet("cs-pin") {
		cfg.Bus.ChipSelect = c.String("cs-pin")
	}
	if c.IsSet("frequency") {
		if err := cfg.Bus.Frequency.UnmarshalText([]byte(c.String("frequency"))); err != nil {
			return cfg, err
		}
	}
	return cfg, cfg.Validate()
}

// session owns the bus and the driver for the duration of one command.
type session struct {
	*gyro.I3G4250D
	cfg   config.Config
	close func() error
}

func (s *session) Close() {
	if s.close == nil {
		return
	}
	if err := s.close(); err != nil {
		slog.Warn("could not close bus", "error", err)
	}
}

func commandContext(c *cli.Context) context.Context {
	ctx := busctx.SetTraced(c.Context, c.Bool("trace"))
	return busctx.SetDevice(ctx, "i3g4250d")
}

// openSession opens the configured bus and applies calibration. The device is
// not initialized.
func openSession(c *cli.Context) (*session, error) {
	cfg, err := LoadConfig(c)
	if err != nil {
		return nil, err
	}
	bus, closer, err := openBus(cfg.Bus)
	if err != nil {
		return nil, err
	}
	opts := []gyro.Option{gyro.WithTransferTimeout(cfg.Bus.TransferTimeout)}
	if cfg.Bus.AutoIncrement {
		opts = append(opts, gyro.WithAutoIncrement())
	}
	d := gyro.New(bus, opts...)
	if err := cfg.Calibration.Apply(d); err != nil {
		_ = closer()
		return nil, err
	}
	slog.Debug("bus opened", "adapter", cfg.Bus.Adapter, "frequency", physic.Frequency(cfg.Bus.Frequency).String())
	return &session{I3G4250D: d, cfg: cfg, close: closer}, nil
}

// start opens a session and runs Init with the configured device settings.
func start(c *cli.Context) (*session, context.Context, error) {
	s, err := openSession(c)
	if err != nil {
		return nil, nil, err
	}
	ctx := commandContext(c)
	if err := s.Init(ctx, s.cfg.Gyro); err != nil {
		s.Close()
		return nil, nil, err
	}
	return s, ctx, nil
}

func openBus(cfg config.Bus) (gyroscope.SPIBus, func() error, error) {
	switch cfg.Adapter {
	case config.AdapterPeriph:
		opts := []spi.BusOption{
			spi.WithFrequency(physic.Frequency(cfg.Frequency)),
			spi.WithMode(periphspi.Mode(cfg.Mode)),
		}
		if cfg.ChipSelect != "" {
			opts = append(opts, spi.WithChipSelect(cfg.ChipSelect))
		}
		bus, err := spi.Open(cfg.Device, opts...)
		if err != nil {
			return nil, nil, err
		}
		return bus, bus.Close, nil
	case config.AdapterNanoPi:
		adaptor := nanopi.NewNeoAdaptor()
		if err := adaptor.Connect(); err != nil {
			return nil, nil, fmt.Errorf("adaptor connect error: %w", err)
		}
		bus := spi.NewGobotBus(adaptor,
			gobotspi.WithBusNumber(cfg.BusNumber),
			gobotspi.WithChipNumber(cfg.ChipNumber),
			gobotspi.WithSpeed(cfg.Frequency.Hertz()),
		)
		if err := bus.Start(); err != nil {
			_ = adaptor.Finalize()
			return nil, nil, fmt.Errorf("SPI device start error: %w", err)
		}
		return bus, func() error {
			return errors.Join(bus.Halt(), adaptor.Finalize())
		}, nil
	case config.AdapterSimulator:
		sim := spi.NewSimulator(wobble)
		sim.SetTemperature(25)
		return sim, func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown bus adapter %q", config.ErrInvalidConfig, cfg.Adapter)
}

// wobble is a slow rotation around all axes with different periods.
func wobble(n int) (x, y, z int16) {
	t := float64(n)
	return int16(4000 * math.Sin(t/50)), int16(2500 * math.Sin(t/80)), int16(1000 * math.Cos(t/120))
}
