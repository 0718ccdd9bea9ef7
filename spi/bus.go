package spi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/mklimuk/gyroscope"
)

var _ gyroscope.SPIBus = &Bus{}

// DefaultFrequency is well below the 10 MHz the I3G4250D is rated for.
const DefaultFrequency = 5 * physic.MegaHertz

type Config struct {
	Frequency  physic.Frequency
	Mode       spi.Mode
	ChipSelect string
}

type BusOption func(*Config)

func WithFrequency(f physic.Frequency) BusOption {
	return func(c *Config) {
		c.Frequency = f
	}
}

func WithMode(mode spi.Mode) BusOption {
	return func(c *Config) {
		c.Mode = mode
	}
}

// WithChipSelect drives the named GPIO as device select instead of the port's
// hardware CS line.
func WithChipSelect(pin string) BusOption {
	return func(c *Config) {
		c.ChipSelect = pin
	}
}

// Bus implements gyroscope.SPIBus on top of a periph.io SPI port.
//
// A transaction is buffered between Select and Deselect: transmitted bytes
// are queued and clocked out together with the dummy bytes of the next
// Receive, or on Deselect for write-only transactions. With a GPIO chip
// select the pin is held low for the whole transaction.
type Bus struct {
	port    spi.PortCloser
	conn    spi.Conn
	cs      gpio.PinOut
	pending []byte
	active  bool
}

// Open initializes the host drivers and connects to the named SPI port
// (e.g. "/dev/spidev0.0" or "SPI0.0"; empty selects the first one).
func Open(dev string, opts ...BusOption) (*Bus, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	for _, driver := range state.Loaded {
		slog.Debug("host driver loaded", "driver", driver.String())
	}
	port, err := spireg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("could not open spi port: %w", err)
	}
	bus, err := NewBus(port, opts...)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	return bus, nil
}

// NewBus connects to an already opened port.
func NewBus(port spi.PortCloser, opts ...BusOption) (*Bus, error) {
	config := Config{
		Frequency: DefaultFrequency,
		Mode:      spi.Mode3,
	}
	for _, opt := range opts {
		opt(&config)
	}
	b := &Bus{port: port}
	mode := config.Mode
	if config.ChipSelect != "" {
		pin := gpioreg.ByName(config.ChipSelect)
		if pin == nil {
			return nil, fmt.Errorf("chip select pin %q not found", config.ChipSelect)
		}
		if err := pin.Out(gpio.High); err != nil {
			return nil, fmt.Errorf("could not release chip select pin %q: %w", config.ChipSelect, err)
		}
		b.cs = pin
		mode |= spi.NoCS
	}
	conn, err := port.Connect(config.Frequency, mode, 8)
	if err != nil {
		return nil, fmt.Errorf("could not connect to spi port: %w", err)
	}
	b.conn = conn
	return b, nil
}

func (b *Bus) Select(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return ctxErr(err)
	}
	b.pending = b.pending[:0]
	b.active = true
	if b.cs != nil {
		if err := b.cs.Out(gpio.Low); err != nil {
			return fmt.Errorf("could not assert chip select: %w", err)
		}
	}
	return nil
}

func (b *Bus) Deselect(ctx context.Context) error {
	var err error
	if b.active && len(b.pending) > 0 {
		err = b.tx(ctx, b.pending, nil)
	}
	b.pending = b.pending[:0]
	b.active = false
	if b.cs != nil {
		if cerr := b.cs.Out(gpio.High); cerr != nil && err == nil {
			err = fmt.Errorf("could not release chip select: %w", cerr)
		}
	}
	return err
}

func (b *Bus) Transmit(ctx context.Context, data []byte) error {
	if !b.active {
		return ErrNotSelected
	}
	b.pending = append(b.pending, data...)
	return nil
}

func (b *Bus) Receive(ctx context.Context, buffer []byte) error {
	if !b.active {
		return ErrNotSelected
	}
	w := make([]byte, len(b.pending)+len(buffer))
	copy(w, b.pending)
	r := make([]byte, len(w))
	err := b.tx(ctx, w, r)
	b.pending = b.pending[:0]
	if err != nil {
		return err
	}
	copy(buffer, r[len(w)-len(buffer):])
	return nil
}

func (b *Bus) tx(ctx context.Context, w, r []byte) error {
	if err := ctx.Err(); err != nil {
		return ctxErr(err)
	}
	if err := b.conn.Tx(w, r); err != nil {
		return fmt.Errorf("spi transfer failed: %w", err)
	}
	return nil
}

func (b *Bus) Close() error {
	return b.port.Close()
}

var ErrNotSelected = fmt.Errorf("spi transfer outside of a select/deselect transaction")

func ctxErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", gyroscope.ErrBusTimeout, err)
	}
	return err
}
