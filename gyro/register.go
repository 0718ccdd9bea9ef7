package gyro

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mklimuk/gyroscope"
	"github.com/mklimuk/gyroscope/busctx"
)

// writeRegister performs one select, address, payload, deselect transaction.
// The address byte goes out unmodified.
func (d *I3G4250D) writeRegister(ctx context.Context, addr byte, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, d.config.TransferTimeout)
	defer cancel()
	if busctx.IsTraced(ctx) {
		slog.Debug("spi write", "device", busctx.Device(ctx), "reg", fmt.Sprintf("%#02x", addr), "data", hex.EncodeToString(data))
	}
	err := d.transport.Select(ctx)
	if err != nil {
		return fmt.Errorf("could not select device: %w", timeoutErr(ctx, err))
	}
	err = d.transport.Transmit(ctx, []byte{addr})
	if err == nil {
		err = d.transport.Transmit(ctx, data)
	}
	derr := d.transport.Deselect(ctx)
	if err != nil {
		return fmt.Errorf("could not write register %#02x: %w", addr, timeoutErr(ctx, err))
	}
	if derr != nil {
		return fmt.Errorf("could not deselect device: %w", derr)
	}
	return nil
}

// readRegister fills buf starting at addr. The address byte is sent with the
// read flag set and, when auto-increment is enabled, the multi-byte flag for
// reads longer than one byte.
func (d *I3G4250D) readRegister(ctx context.Context, addr byte, buf []byte) error {
	ctx, cancel := context.WithTimeout(ctx, d.config.TransferTimeout)
	defer cancel()
	frame := addr | flagRead
	if d.config.AutoIncrement && len(buf) > 1 {
		frame |= flagAutoIncrement
	}
	err := d.transport.Select(ctx)
	if err != nil {
		return fmt.Errorf("could not select device: %w", timeoutErr(ctx, err))
	}
	err = d.transport.Transmit(ctx, []byte{frame})
	if err == nil {
		err = d.transport.Receive(ctx, buf)
	}
	derr := d.transport.Deselect(ctx)
	if err != nil {
		return fmt.Errorf("could not read register %#02x: %w", addr, timeoutErr(ctx, err))
	}
	if derr != nil {
		return fmt.Errorf("could not deselect device: %w", derr)
	}
	if busctx.IsTraced(ctx) {
		slog.Debug("spi read", "device", busctx.Device(ctx), "reg", fmt.Sprintf("%#02x", addr), "data", hex.EncodeToString(buf))
	}
	return nil
}

// timeoutErr tags transfers that ran past the per-transfer deadline.
func timeoutErr(ctx context.Context, err error) error {
	if errors.Is(err, gyroscope.ErrBusTimeout) {
		return err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", gyroscope.ErrBusTimeout, err)
	}
	return err
}
