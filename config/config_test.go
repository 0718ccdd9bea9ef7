package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/gyroscope/gyro"
)

const sample = `
bus:
  adapter: sim
  frequency: 8MHz
  cs_pin: GPIO8
  auto_increment: false
  transfer_timeout: 25ms
gyro:
  axes: xz
  rate: ultra
  hpf_mode: autoreset
  hpf_cutoff: hpcf3
  full_scale: 2000
calibration:
  x: {min: -1000, max: 3000}
telemetry:
  metrics_addr: ":9100"
  interval: 50ms
`

func TestRead(t *testing.T) {
	cfg, err := Read(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, AdapterSimulator, cfg.Bus.Adapter)
	assert.Equal(t, "/dev/spidev0.0", cfg.Bus.Device, "defaults are kept")
	assert.Equal(t, Frequency(8*physic.MegaHertz), cfg.Bus.Frequency)
	assert.Equal(t, int64(8_000_000), cfg.Bus.Frequency.Hertz())
	assert.Equal(t, "GPIO8", cfg.Bus.ChipSelect)
	assert.False(t, cfg.Bus.AutoIncrement)
	assert.Equal(t, 25*time.Millisecond, cfg.Bus.TransferTimeout)
	assert.Equal(t, gyro.DeviceConfig{
		Axes:           gyro.Axes(0x0D),
		Rate:           gyro.RateUltra,
		HighPassMode:   gyro.HighPassAutoReset,
		HighPassCutoff: gyro.HPCF3,
		FullScale:      gyro.Scale2000,
	}, cfg.Gyro)
	require.NotNil(t, cfg.Calibration.X)
	assert.Equal(t, gyro.Bounds{Min: -1000, Max: 3000}, *cfg.Calibration.X)
	assert.Nil(t, cfg.Calibration.Y)
	assert.Equal(t, ":9100", cfg.Telemetry.MetricsAddr)
	assert.Equal(t, 50*time.Millisecond, cfg.Telemetry.Interval)
	assert.Equal(t, "sensors/gyroscope", cfg.Telemetry.Topic)
}

func TestRead_Empty(t *testing.T) {
	cfg, err := Read(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestRead_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "bus:\n  speed: 1\n"},
		{"adapter", "bus:\n  adapter: usb\n"},
		{"mode", "bus:\n  mode: 4\n"},
		{"frequency", "bus:\n  frequency: fast\n"},
		{"full scale", "gyro:\n  full_scale: 1000\n"},
		{"axes", "gyro:\n  axes: w\n"},
		{"calibration", "calibration:\n  y: {min: 10, max: 10}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := filepath.Join(t.TempDir(), "gyroscope.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, gyro.Scale2000, cfg.Gyro.FullScale)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMarshal_RoundTrip(t *testing.T) {
	cfg, err := Read(strings.NewReader(sample))
	require.NoError(t, err)
	out, err := cfg.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(out), "full_scale: \"2000\"")
	assert.Contains(t, string(out), "frequency: 8MHz")

	again, err := Read(strings.NewReader(string(out)))
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestMarshal_AxesRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		axes  gyro.Axes
		given string
	}{
		{name: "sleep", axes: gyro.AxesSleep, given: "none"},
		{name: "power down", axes: 0, given: "off"},
		{name: "y only", axes: gyro.EnableY, given: "y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Gyro.Axes = tt.axes
			out, err := cfg.Marshal()
			require.NoError(t, err)
			assert.Contains(t, string(out), tt.given)

			again, err := Read(strings.NewReader(string(out)))
			require.NoError(t, err)
			assert.Equal(t, tt.axes, again.Gyro.Axes)
		})
	}
}

func TestCalibration_Apply(t *testing.T) {
	d := gyro.New(nil)
	c := Calibration{Z: &gyro.Bounds{Min: 0, Max: 2000}}
	require.NoError(t, c.Apply(d))
	assert.Equal(t, gyro.AxisCalibration{Bias: 1000, Scale: 1}, d.Calibration(gyro.Z))
	assert.Equal(t, gyro.AxisCalibration{Bias: 0, Scale: 1}, d.Calibration(gyro.X))

	c = Calibration{X: &gyro.Bounds{Min: 5, Max: -5}}
	assert.ErrorIs(t, c.Apply(d), gyro.ErrInvalidCalibration)
}

func TestBuildInfo(t *testing.T) {
	defer func(v, c, b, bt string) { AppVersion, GitCommit, GitBranch, BuildTime = v, c, b, bt }(AppVersion, GitCommit, GitBranch, BuildTime)

	tests := []struct {
		name     string
		version  string
		commit   string
		branch   string
		built    string
		expected string
	}{
		{name: "dev build", version: "latest", expected: "latest"},
		{name: "commit only", version: "v0.2.0", commit: "abc123", expected: "v0.2.0 (abc123)"},
		{
			name:     "release",
			version:  "v0.2.0",
			commit:   "abc123",
			branch:   "main",
			built:    "2026-03-01T10:00:00Z",
			expected: "v0.2.0 (abc123@main) built 2026-03-01T10:00:00Z",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			AppVersion, GitCommit, GitBranch, BuildTime = tt.version, tt.commit, tt.branch, tt.built
			assert.Equal(t, tt.expected, BuildInfo())
		})
	}
}
