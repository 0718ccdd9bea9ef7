package spi

import (
	"context"
	"errors"
	"fmt"

	gobotspi "gobot.io/x/gobot/v2/drivers/spi"

	"github.com/mklimuk/gyroscope"
)

var _ gyroscope.SPIBus = &GobotBus{}

// ErrNotStarted is returned by GobotBus transfers before Start succeeds.
var ErrNotStarted = errors.New("spi: gobot bus not started")

// GobotBus implements gyroscope.SPIBus with a Gobot SPI driver, for boards
// supported by a Gobot adaptor (e.g. NanoPi via the sysfs spidev interface).
// The adaptor controls the CS line, so each transaction is issued as a
// single spidev transfer.
type GobotBus struct {
	*gobotspi.Driver
	connector gobotspi.Connector
	conn      gobotspi.Connection
	pending   []byte
	active    bool
}

// NewGobotBus returns a bus bound to a Gobot SPI adaptor. bus and chip numbers
// and speed may be supplied as Gobot driver options.
func NewGobotBus(adaptor gobotspi.Connector, opts ...func(gobotspi.Config)) *GobotBus {
	d := gobotspi.NewDriver(adaptor, "I3G4250D", opts...)

	// CPOL=1, CPHA=1 per datasheet SPI timing, up to 10 MHz
	d.SetMode(3)

	if d.GetSpeedOrDefault(0) == 0 {
		d.SetSpeed(5_000_000)
	}

	return &GobotBus{Driver: d, connector: adaptor}
}

// Start opens the SPI connection on the adaptor. Driver.Connection returns the
// adaptor itself, so the bus keeps the spidev connection it was handed.
func (b *GobotBus) Start() error {
	c := b.connector
	conn, err := c.GetSpiConnection(
		b.GetBusNumberOrDefault(c.SpiDefaultBusNumber()),
		b.GetChipNumberOrDefault(c.SpiDefaultChipNumber()),
		b.GetModeOrDefault(c.SpiDefaultMode()),
		b.GetBitCountOrDefault(c.SpiDefaultBitCount()),
		b.GetSpeedOrDefault(c.SpiDefaultMaxSpeed()),
	)
	if err != nil {
		return fmt.Errorf("could not open spi connection: %w", err)
	}
	b.conn = conn
	return nil
}

// Halt releases the bus. The adaptor owns the connection and closes it on
// Finalize.
func (b *GobotBus) Halt() error {
	b.conn = nil
	b.pending = b.pending[:0]
	b.active = false
	return b.Driver.Halt()
}

func (b *GobotBus) Select(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return ctxErr(err)
	}
	b.pending = b.pending[:0]
	b.active = true
	return nil
}

func (b *GobotBus) Deselect(ctx context.Context) error {
	defer func() {
		b.pending = b.pending[:0]
		b.active = false
	}()
	if !b.active || len(b.pending) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return ctxErr(err)
	}
	if b.conn == nil {
		return ErrNotStarted
	}
	if err := b.conn.WriteBytes(b.pending); err != nil {
		return fmt.Errorf("spi write failed: %w", err)
	}
	return nil
}

func (b *GobotBus) Transmit(ctx context.Context, data []byte) error {
	if !b.active {
		return ErrNotSelected
	}
	b.pending = append(b.pending, data...)
	return nil
}

// Receive clocks the pending bytes followed by len(buffer) dummy bytes in one
// full-duplex transfer and keeps the tail of the response.
func (b *GobotBus) Receive(ctx context.Context, buffer []byte) error {
	if !b.active {
		return ErrNotSelected
	}
	if err := ctx.Err(); err != nil {
		return ctxErr(err)
	}
	if b.conn == nil {
		return ErrNotStarted
	}
	w := make([]byte, len(b.pending)+len(buffer))
	copy(w, b.pending)
	r := make([]byte, len(w))
	b.pending = b.pending[:0]
	if err := b.conn.ReadCommandData(w, r); err != nil {
		return fmt.Errorf("spi read failed: %w", err)
	}
	copy(buffer, r[len(w)-len(buffer):])
	return nil
}
