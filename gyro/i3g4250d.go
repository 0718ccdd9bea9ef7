// Package gyro provides a register-level driver for the ST I3G4250D
// three-axis MEMS gyroscope connected over 4-wire SPI.
//
// Datasheet reference: ST I3G4250D, DocID025716 (register map section 7,
// sensitivity table 4, high-pass cut-off table 27).
//
// Example usage:
//
//	bus, _ := spi.Open("/dev/spidev0.0", spi.WithChipSelect("GPIO8"))
//	g := gyro.New(bus, gyro.WithAutoIncrement())
//	if err := g.Init(ctx, gyro.DefaultDeviceConfig()); err != nil { log.Fatal(err) }
//	ok, _ := g.WaitForDataReady(ctx, 20*time.Millisecond)
//	s, _ := g.GetScaledSample(ctx)
//	fmt.Printf("%v %.2f dps\n", ok, s.DPS().X)
//
// Real devices need WithAutoIncrement: axis outputs are read two bytes at a
// time, and without the MS bit the device returns the low byte twice.
//
// The driver keeps no internal locking. One goroutine must own the device and
// the bus for the whole lifetime of the driver.
package gyro

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/mklimuk/gyroscope"
)

var (
	ErrNotInitialized     = errors.New("i3g4250d: device not initialized")
	ErrAlreadyInitialized = errors.New("i3g4250d: device already initialized")
	ErrInvalidConfig      = errors.New("i3g4250d: invalid device configuration")
	ErrInvalidCalibration = errors.New("i3g4250d: invalid calibration bounds")
	ErrUnexpectedIdentity = errors.New("i3g4250d: unexpected WHO_AM_I value")
)

const defaultTransferTimeout = 10 * time.Millisecond

type Opts struct {
	TransferTimeout time.Duration
	AutoIncrement   bool
	Ticks           gyroscope.TickSource
}

type Option func(*Opts)

// WithTransferTimeout bounds every single register transaction.
func WithTransferTimeout(timeout time.Duration) Option {
	return func(o *Opts) {
		o.TransferTimeout = timeout
	}
}

// WithAutoIncrement sets the MS bit on multi-byte reads so the device advances
// the register address between bytes.
func WithAutoIncrement() Option {
	return func(o *Opts) {
		o.AutoIncrement = true
	}
}

// WithTicks replaces the millisecond counter used by WaitForDataReady.
func WithTicks(ticks gyroscope.TickSource) Option {
	return func(o *Opts) {
		o.Ticks = ticks
	}
}

// RawSample holds signed output register values for each axis.
type RawSample struct {
	X int16 `json:"x"`
	Y int16 `json:"y"`
	Z int16 `json:"z"`
}

// ScaledSample holds calibrated angular rate in millidegrees per second.
type ScaledSample struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// DPS converts the sample to degrees per second.
func (s ScaledSample) DPS() ScaledSample {
	return ScaledSample{X: s.X / 1000, Y: s.Y / 1000, Z: s.Z / 1000}
}

// I3G4250D represents ST I3G4250D gyroscope.
type I3G4250D struct {
	transport gyroscope.SPIBus
	config    Opts

	initialized bool
	device      DeviceConfig
	sensitivity float32
	calibration [axisCount]AxisCalibration
}

func New(transport gyroscope.SPIBus, opts ...Option) *I3G4250D {
	config := Opts{
		TransferTimeout: defaultTransferTimeout,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Ticks == nil {
		config.Ticks = gyroscope.SystemTicks()
	}
	d := &I3G4250D{
		transport:   transport,
		config:      config,
		sensitivity: Sensitivity500,
	}
	d.ResetCalibration()
	return d
}

// Init writes CTRL_REG1, CTRL_REG2 and CTRL_REG4 in that order and selects the
// sensitivity matching the configured full scale. It must be called exactly
// once before any acquisition. The bus is left deselected on every path.
func (d *I3G4250D) Init(ctx context.Context, cfg DeviceConfig) (err error) {
	defer func() {
		derr := d.transport.Deselect(ctx)
		if err == nil && derr != nil {
			err = fmt.Errorf("could not release bus: %w", derr)
		}
	}()
	if d.initialized {
		return ErrAlreadyInitialized
	}
	sensitivity, err := cfg.FullScale.Sensitivity()
	if err != nil {
		return err
	}
	// enabled axes and output data rate / bandwidth preset
	err = d.writeRegister(ctx, regCtrl1, []byte{cfg.ctrl1()})
	if err != nil {
		return fmt.Errorf("could not set axes and data rate: %w", err)
	}
	// high-pass filter mode and cut-off
	err = d.writeRegister(ctx, regCtrl2, []byte{cfg.ctrl2()})
	if err != nil {
		return fmt.Errorf("could not set high-pass filter: %w", err)
	}
	// full scale, self-test off, 4-wire SPI
	err = d.writeRegister(ctx, regCtrl4, []byte{cfg.ctrl4()})
	if err != nil {
		return fmt.Errorf("could not set full scale: %w", err)
	}
	d.sensitivity = sensitivity
	d.device = cfg
	d.initialized = true
	slog.Debug("i3g4250d initialized", "config", cfg.String(), "sensitivity", sensitivity)
	return nil
}

// Initialized reports whether Init completed successfully.
func (d *I3G4250D) Initialized() bool {
	return d.initialized
}

// DeviceConfig returns the configuration applied by Init.
func (d *I3G4250D) DeviceConfig() DeviceConfig {
	return d.device
}

// Sensitivity returns the active mdps/digit factor.
func (d *I3G4250D) Sensitivity() float32 {
	return d.sensitivity
}

// ReadIdentity returns the WHO_AM_I register content.
func (d *I3G4250D) ReadIdentity(ctx context.Context) (byte, error) {
	buf := []byte{0x00}
	err := d.readRegister(ctx, regWhoAmI, buf)
	if err != nil {
		return 0, fmt.Errorf("could not read identity: %w", err)
	}
	return buf[0], nil
}

// VerifyIdentity fails with ErrUnexpectedIdentity when the device on the bus
// is not an I3G4250D.
func (d *I3G4250D) VerifyIdentity(ctx context.Context) error {
	id, err := d.ReadIdentity(ctx)
	if err != nil {
		return err
	}
	if id != identity {
		return fmt.Errorf("%w: expected %#02x, got %#02x", ErrUnexpectedIdentity, identity, id)
	}
	return nil
}

// ReadTemperature returns the raw OUT_TEMP value (-1 LSB/°C, uncalibrated offset).
func (d *I3G4250D) ReadTemperature(ctx context.Context) (int8, error) {
	if !d.initialized {
		return 0, ErrNotInitialized
	}
	buf := []byte{0x00}
	err := d.readRegister(ctx, regOutTemp, buf)
	if err != nil {
		return 0, fmt.Errorf("could not read temperature: %w", err)
	}
	return int8(buf[0]), nil
}

// GetRawSample reads each axis from its own low/high register pair.
func (d *I3G4250D) GetRawSample(ctx context.Context) (RawSample, error) {
	if !d.initialized {
		return RawSample{}, ErrNotInitialized
	}
	x, err := d.readAxis(ctx, regOutXL)
	if err != nil {
		return RawSample{}, fmt.Errorf("could not read X axis: %w", err)
	}
	y, err := d.readAxis(ctx, regOutYL)
	if err != nil {
		return RawSample{}, fmt.Errorf("could not read Y axis: %w", err)
	}
	z, err := d.readAxis(ctx, regOutZL)
	if err != nil {
		return RawSample{}, fmt.Errorf("could not read Z axis: %w", err)
	}
	return RawSample{X: x, Y: y, Z: z}, nil
}

func (d *I3G4250D) readAxis(ctx context.Context, low byte) (int16, error) {
	buf := make([]byte, 2)
	err := d.readRegister(ctx, low, buf)
	if err != nil {
		return 0, err
	}
	return combine(buf), nil
}

// combine builds a signed value from a low, high byte pair.
func combine(buf []byte) int16 {
	return int16(binary.LittleEndian.Uint16(buf))
}

// GetScaledSample converts a fresh raw sample with the active sensitivity and
// per-axis calibration: raw * sensitivity * scale - bias.
func (d *I3G4250D) GetScaledSample(ctx context.Context) (ScaledSample, error) {
	raw, err := d.GetRawSample(ctx)
	if err != nil {
		return ScaledSample{}, err
	}
	return d.Scale(raw), nil
}

// Scale applies sensitivity and calibration to an already acquired sample.
func (d *I3G4250D) Scale(raw RawSample) ScaledSample {
	return ScaledSample{
		X: d.calibration[X].apply(raw.X, d.sensitivity),
		Y: d.calibration[Y].apply(raw.Y, d.sensitivity),
		Z: d.calibration[Z].apply(raw.Z, d.sensitivity),
	}
}

// tickLimit converts timeout to a tick count clamped to [0, MaxUint32] ms.
func tickLimit(timeout time.Duration) uint32 {
	ms := timeout.Milliseconds()
	if ms <= 0 {
		return 0
	}
	if ms > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(ms)
}

// WaitForDataReady polls STATUS until one of the per-axis new data bits is set
// or timeout elapses on the tick source. A false result with nil error means
// no new sample yet and is not a failure.
func (d *I3G4250D) WaitForDataReady(ctx context.Context, timeout time.Duration) (bool, error) {
	if !d.initialized {
		return false, ErrNotInitialized
	}
	limit := tickLimit(timeout)
	start := d.config.Ticks.Milliseconds()
	status := []byte{0x00}
	for {
		err := d.readRegister(ctx, regStatus, status)
		if err != nil {
			return false, fmt.Errorf("could not read status: %w", err)
		}
		if status[0]&statusNewData != 0 {
			return true, nil
		}
		if d.config.Ticks.Milliseconds()-start >= limit {
			return false, nil
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}
	}
}
