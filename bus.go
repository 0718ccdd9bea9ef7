package gyroscope

import (
	"context"
	"fmt"
)

var ErrBusTimeout = fmt.Errorf("SPI transfer timed out")

// ChipSelector drives the device-select line of a single SPI peripheral.
type ChipSelector interface {
	Select(ctx context.Context) error
	Deselect(ctx context.Context) error
}

type BusTransmitter interface {
	Transmit(ctx context.Context, data []byte) error
}

type BusReceiver interface {
	Receive(ctx context.Context, buffer []byte) error
}

// SPIBus is the transport a register-level SPI driver talks through.
// One register access is Select, one or more Transmit/Receive calls, Deselect.
// Implementations are not safe for concurrent use.
type SPIBus interface {
	ChipSelector
	BusTransmitter
	BusReceiver
}
