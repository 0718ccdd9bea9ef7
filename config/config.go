// Package config holds the gyroscope tool configuration file format.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/gyroscope/gyro"
)

// Build metadata, set with -ldflags -X by the dev build command.
var (
	AppVersion = "latest"
	GitCommit  = ""
	GitBranch  = ""
	BuildTime  = ""
)

// BuildInfo renders the build metadata for the cli version output.
func BuildInfo() string {
	var sb strings.Builder
	sb.WriteString(AppVersion)
	if GitCommit != "" {
		sb.WriteString(" (" + GitCommit)
		if GitBranch != "" {
			sb.WriteString("@" + GitBranch)
		}
		sb.WriteString(")")
	}
	if BuildTime != "" {
		sb.WriteString(" built " + BuildTime)
	}
	return sb.String()
}

const (
	AdapterPeriph    = "periph"
	AdapterNanoPi    = "nanopi"
	AdapterSimulator = "sim"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Bus         Bus               `yaml:"bus"`
	Gyro        gyro.DeviceConfig `yaml:"gyro"`
	Calibration Calibration       `yaml:"calibration"`
	Telemetry   Telemetry         `yaml:"telemetry"`
}

type Bus struct {
	// Adapter selects the bus implementation: periph, nanopi or sim.
	Adapter string `yaml:"adapter"`

	// Device is the periph SPI port name, e.g. /dev/spidev0.0.
	Device string `yaml:"device"`

	// BusNumber and ChipNumber address the spidev device for Gobot adaptors.
	BusNumber  int `yaml:"bus_number"`
	ChipNumber int `yaml:"chip_number"`

	// ChipSelect is an optional GPIO name driven as device select.
	ChipSelect string `yaml:"cs_pin"`

	Frequency       Frequency     `yaml:"frequency"`
	Mode            int           `yaml:"mode"`
	AutoIncrement   bool          `yaml:"auto_increment"`
	TransferTimeout time.Duration `yaml:"transfer_timeout"`
}

// Frequency is a physic.Frequency read from strings like "5MHz".
type Frequency physic.Frequency

func (f *Frequency) UnmarshalText(text []byte) error {
	var v physic.Frequency
	if err := v.Set(string(text)); err != nil {
		return fmt.Errorf("%w: frequency %q: %w", ErrInvalidConfig, text, err)
	}
	*f = Frequency(v)
	return nil
}

func (f Frequency) MarshalText() ([]byte, error) {
	return []byte(physic.Frequency(f).String()), nil
}

// Hertz returns the frequency in whole Hz.
func (f Frequency) Hertz() int64 {
	return int64(physic.Frequency(f) / physic.Hertz)
}

// Calibration keeps observed per-axis bounds. Axes without bounds keep the
// driver default.
type Calibration struct {
	X *gyro.Bounds `yaml:"x,omitempty"`
	Y *gyro.Bounds `yaml:"y,omitempty"`
	Z *gyro.Bounds `yaml:"z,omitempty"`
}

// Apply calibrates every configured axis of the device.
func (c Calibration) Apply(d *gyro.I3G4250D) error {
	for axis, b := range c.bounds() {
		if b == nil {
			continue
		}
		if err := d.CalibrateAxis(gyro.Axis(axis), b.Min, b.Max); err != nil {
			return err
		}
	}
	return nil
}

func (c Calibration) bounds() []*gyro.Bounds {
	return []*gyro.Bounds{gyro.X: c.X, gyro.Y: c.Y, gyro.Z: c.Z}
}

type Telemetry struct {
	Interval     time.Duration `yaml:"interval"`
	MetricsAddr  string        `yaml:"metrics_addr"`
	MQTTBroker   string        `yaml:"mqtt_broker"`
	MQTTClientID string        `yaml:"mqtt_client_id"`
	Topic        string        `yaml:"topic"`
}

func Default() Config {
	return Config{
		Bus: Bus{
			Adapter:         AdapterPeriph,
			Device:          "/dev/spidev0.0",
			Frequency:       Frequency(5 * physic.MegaHertz),
			Mode:            3,
			AutoIncrement:   true,
			TransferTimeout: 10 * time.Millisecond,
		},
		Gyro: gyro.DefaultDeviceConfig(),
		Telemetry: Telemetry{
			Interval:     100 * time.Millisecond,
			MQTTClientID: "gyroscope",
			Topic:        "sensors/gyroscope",
		},
	}
}

// Load reads the file at path on top of the defaults. An empty path returns
// the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("could not open config file: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read decodes YAML on top of the defaults. Unknown keys are rejected.
func Read(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	err := dec.Decode(&cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("could not decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Bus.Adapter {
	case AdapterPeriph, AdapterNanoPi, AdapterSimulator:
	default:
		return fmt.Errorf("%w: unknown bus adapter %q", ErrInvalidConfig, c.Bus.Adapter)
	}
	if c.Bus.Mode < 0 || c.Bus.Mode > 3 {
		return fmt.Errorf("%w: spi mode %d out of range", ErrInvalidConfig, c.Bus.Mode)
	}
	if c.Bus.TransferTimeout <= 0 {
		return fmt.Errorf("%w: transfer timeout must be positive", ErrInvalidConfig)
	}
	if _, err := c.Gyro.FullScale.Sensitivity(); err != nil {
		return err
	}
	for _, b := range c.Calibration.bounds() {
		if b == nil {
			continue
		}
		if _, err := b.Calibration(); err != nil {
			return err
		}
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("could not encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("could not encode config: %w", err)
	}
	return buf.Bytes(), nil
}
