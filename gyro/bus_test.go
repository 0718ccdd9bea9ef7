package gyro

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockSPIBus is a mock implementation of gyroscope.SPIBus using testify/mock
type MockSPIBus struct {
	mock.Mock
}

func (m *MockSPIBus) Select(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSPIBus) Deselect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSPIBus) Transmit(ctx context.Context, data []byte) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

func (m *MockSPIBus) Receive(ctx context.Context, buffer []byte) error {
	args := m.Called(ctx, buffer)
	if data, ok := args.Get(0).([]byte); ok && len(data) <= len(buffer) {
		copy(buffer, data)
	}
	return args.Error(1)
}

// fakeBus records every transaction and answers reads from a register file.
type fakeBus struct {
	regs      map[byte][]byte
	status    []byte // consumed one byte per STATUS read, last value repeats
	frames    [][]byte
	current   []byte
	selected  bool
	selects   int
	deselects int
}

func newFakeBus() *fakeBus {
	return &fakeBus{regs: map[byte][]byte{}}
}

func (b *fakeBus) Select(ctx context.Context) error {
	b.selected = true
	b.selects++
	b.current = nil
	return nil
}

func (b *fakeBus) Deselect(ctx context.Context) error {
	if b.selected && b.current != nil {
		b.frames = append(b.frames, b.current)
	}
	b.selected = false
	b.deselects++
	b.current = nil
	return nil
}

func (b *fakeBus) Transmit(ctx context.Context, data []byte) error {
	b.current = append(b.current, data...)
	return nil
}

func (b *fakeBus) Receive(ctx context.Context, buffer []byte) error {
	addr := b.current[0] &^ (flagRead | flagAutoIncrement)
	if addr == regStatus && len(b.status) > 0 {
		buffer[0] = b.status[0]
		if len(b.status) > 1 {
			b.status = b.status[1:]
		}
		return nil
	}
	copy(buffer, b.regs[addr])
	return nil
}

// stepTicks advances by step milliseconds on every read.
type stepTicks struct {
	now  uint32
	step uint32
}

func (t *stepTicks) Milliseconds() uint32 {
	v := t.now
	t.now += t.step
	return v
}
