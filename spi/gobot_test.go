package spi

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gobotspi "gobot.io/x/gobot/v2/drivers/spi"

	"github.com/mklimuk/gyroscope"
)

var (
	_ gobotspi.Connector  = (*gobotTestAdaptor)(nil)
	_ gobotspi.Connection = (*gobotTestConnection)(nil)
)

// gobotTestAdaptor hands out a recording connection and remembers the
// parameters it was opened with.
type gobotTestAdaptor struct {
	conn   gobotspi.Connection
	err    error
	bus    int
	chip   int
	mode   int
	bits   int
	speed  int64
	opened int
}

func (a *gobotTestAdaptor) GetSpiConnection(busNum, chip, mode, bits int, maxSpeed int64) (gobotspi.Connection, error) {
	if a.err != nil {
		return nil, a.err
	}
	a.bus, a.chip, a.mode, a.bits, a.speed = busNum, chip, mode, bits, maxSpeed
	a.opened++
	return a.conn, nil
}

func (a *gobotTestAdaptor) SpiDefaultBusNumber() int  { return 0 }
func (a *gobotTestAdaptor) SpiDefaultChipNumber() int { return 0 }
func (a *gobotTestAdaptor) SpiDefaultMode() int       { return 0 }
func (a *gobotTestAdaptor) SpiDefaultBitCount() int   { return 8 }
func (a *gobotTestAdaptor) SpiDefaultMaxSpeed() int64 { return 500000 }

// gobotTestConnection records writes and answers full-duplex transfers with
// reply, shifted by the command length like a real register read.
type gobotTestConnection struct {
	writes   [][]byte
	commands [][]byte
	reply    []byte
	err      error
}

func (c *gobotTestConnection) ReadCommandData(command []byte, data []byte) error {
	if c.err != nil {
		return c.err
	}
	if len(command) != len(data) {
		return fmt.Errorf("read length %d differs from command length %d", len(data), len(command))
	}
	c.commands = append(c.commands, append([]byte(nil), command...))
	for i := range data {
		data[i] = 0xFF
	}
	copy(data[1:], c.reply)
	return nil
}

func (c *gobotTestConnection) WriteBytes(data []byte) error {
	if c.err != nil {
		return c.err
	}
	c.writes = append(c.writes, append([]byte(nil), data...))
	return nil
}

func (c *gobotTestConnection) ReadByteData(uint8) (uint8, error)  { return 0, nil }
func (c *gobotTestConnection) ReadBlockData(uint8, []byte) error  { return nil }
func (c *gobotTestConnection) WriteByteData(uint8, uint8) error   { return nil }
func (c *gobotTestConnection) WriteBlockData(uint8, []byte) error { return nil }
func (c *gobotTestConnection) WriteByte(byte) error               { return nil }
func (c *gobotTestConnection) Close() error                       { return nil }

func startedGobotBus(t *testing.T, conn *gobotTestConnection, opts ...func(gobotspi.Config)) (*GobotBus, *gobotTestAdaptor) {
	t.Helper()
	adaptor := &gobotTestAdaptor{conn: conn}
	bus := NewGobotBus(adaptor, opts...)
	require.NoError(t, bus.Start())
	return bus, adaptor
}

func TestGobotBus_Start(t *testing.T) {
	tests := []struct {
		name  string
		opts  []func(gobotspi.Config)
		bus   int
		chip  int
		speed int64
	}{
		{name: "defaults", speed: 5_000_000},
		{
			name:  "options",
			opts:  []func(gobotspi.Config){gobotspi.WithBusNumber(1), gobotspi.WithChipNumber(2), gobotspi.WithSpeed(1_000_000)},
			bus:   1,
			chip:  2,
			speed: 1_000_000,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, adaptor := startedGobotBus(t, &gobotTestConnection{}, tt.opts...)
			assert.Equal(t, 1, adaptor.opened)
			assert.Equal(t, tt.bus, adaptor.bus)
			assert.Equal(t, tt.chip, adaptor.chip)
			assert.Equal(t, 3, adaptor.mode)
			assert.Equal(t, 8, adaptor.bits)
			assert.Equal(t, tt.speed, adaptor.speed)
		})
	}
}

func TestGobotBus_StartError(t *testing.T) {
	boom := errors.New("no spidev")
	bus := NewGobotBus(&gobotTestAdaptor{err: boom})
	assert.ErrorIs(t, bus.Start(), boom)

	ctx := context.Background()
	require.NoError(t, bus.Select(ctx))
	require.NoError(t, bus.Transmit(ctx, []byte{0x20, 0x0F}))
	assert.ErrorIs(t, bus.Deselect(ctx), ErrNotStarted)
}

func TestGobotBus_WriteTransaction(t *testing.T) {
	conn := &gobotTestConnection{}
	bus, _ := startedGobotBus(t, conn)
	ctx := context.Background()

	for _, frame := range [][]byte{{0x20, 0x6F}, {0x23, 0x10}} {
		require.NoError(t, bus.Select(ctx))
		require.NoError(t, bus.Transmit(ctx, frame[:1]))
		before := len(conn.writes)
		require.NoError(t, bus.Transmit(ctx, frame[1:]))
		assert.Len(t, conn.writes, before, "nothing is sent before deselect")
		require.NoError(t, bus.Deselect(ctx))
	}
	assert.Equal(t, [][]byte{{0x20, 0x6F}, {0x23, 0x10}}, conn.writes)
	assert.Empty(t, conn.commands)
}

func TestGobotBus_ReadTransaction(t *testing.T) {
	tests := []struct {
		name     string
		command  []byte
		reply    []byte
		size     int
		expected []byte
		sent     []byte
	}{
		{name: "single register", command: []byte{0x8F}, reply: []byte{0xD3}, size: 1, expected: []byte{0xD3}, sent: []byte{0x8F, 0x00}},
		{name: "axis pair", command: []byte{0xE8}, reply: []byte{0x34, 0x12}, size: 2, expected: []byte{0x34, 0x12}, sent: []byte{0xE8, 0x00, 0x00}},
		{
			name:     "all axes",
			command:  []byte{0xE8},
			reply:    []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06},
			size:     6,
			expected: []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06},
			sent:     []byte{0xE8, 0, 0, 0, 0, 0, 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &gobotTestConnection{reply: tt.reply}
			bus, _ := startedGobotBus(t, conn)
			ctx := context.Background()

			require.NoError(t, bus.Select(ctx))
			require.NoError(t, bus.Transmit(ctx, tt.command))
			buf := make([]byte, tt.size)
			require.NoError(t, bus.Receive(ctx, buf))
			require.NoError(t, bus.Deselect(ctx))

			assert.Equal(t, tt.expected, buf)
			assert.Equal(t, [][]byte{tt.sent}, conn.commands)
			assert.Empty(t, conn.writes, "address was consumed by the read")
		})
	}
}

func TestGobotBus_NotSelected(t *testing.T) {
	bus, _ := startedGobotBus(t, &gobotTestConnection{})
	ctx := context.Background()
	assert.ErrorIs(t, bus.Transmit(ctx, []byte{0x20}), ErrNotSelected)
	assert.ErrorIs(t, bus.Receive(ctx, make([]byte, 1)), ErrNotSelected)

	require.NoError(t, bus.Select(ctx))
	require.NoError(t, bus.Deselect(ctx))
	assert.ErrorIs(t, bus.Transmit(ctx, []byte{0x20}), ErrNotSelected)
}

func TestGobotBus_DeselectWithoutTransfer(t *testing.T) {
	conn := &gobotTestConnection{}
	bus, _ := startedGobotBus(t, conn)
	ctx := context.Background()

	assert.NoError(t, bus.Deselect(ctx))
	require.NoError(t, bus.Select(ctx))
	assert.NoError(t, bus.Deselect(ctx))
	assert.Empty(t, conn.writes)
	assert.Empty(t, conn.commands)
}

func TestGobotBus_Errors(t *testing.T) {
	boom := errors.New("eio")
	conn := &gobotTestConnection{err: boom}
	bus, _ := startedGobotBus(t, conn)
	ctx := context.Background()

	require.NoError(t, bus.Select(ctx))
	require.NoError(t, bus.Transmit(ctx, []byte{0x20, 0x0F}))
	assert.ErrorIs(t, bus.Deselect(ctx), boom)

	require.NoError(t, bus.Select(ctx))
	require.NoError(t, bus.Transmit(ctx, []byte{0x8F}))
	assert.ErrorIs(t, bus.Receive(ctx, make([]byte, 1)), boom)
	require.NoError(t, bus.Deselect(ctx))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, bus.Select(cancelled), context.Canceled)

	expired, stop := context.WithTimeout(ctx, 0)
	defer stop()
	require.NoError(t, bus.Select(ctx))
	require.NoError(t, bus.Transmit(ctx, []byte{0x8F}))
	assert.ErrorIs(t, bus.Receive(expired, make([]byte, 1)), gyroscope.ErrBusTimeout)
}

func TestGobotBus_Halt(t *testing.T) {
	conn := &gobotTestConnection{}
	bus, _ := startedGobotBus(t, conn)
	ctx := context.Background()
	require.NoError(t, bus.Halt())

	require.NoError(t, bus.Select(ctx))
	require.NoError(t, bus.Transmit(ctx, []byte{0x8F}))
	assert.ErrorIs(t, bus.Receive(ctx, make([]byte, 1)), ErrNotStarted)
}
