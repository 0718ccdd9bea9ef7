package gyro

import (
	"fmt"
	"strconv"
	"strings"
)

// Axes selects enabled axes in CTRL_REG1[3:0]. Every value carries the PD
// bit (0x08) so the device leaves power-down when any axis is enabled.
type Axes byte

const (
	EnableX   Axes = 0x09
	EnableY   Axes = 0x0A
	EnableZ   Axes = 0x0C
	EnableAll Axes = 0x0F

	// AxesSleep keeps the device powered with every axis disabled.
	AxesSleep Axes = 0x08

	axesMask byte = 0x0F
)

func (a Axes) String() string {
	if a&0x07 == 0 {
		if a&0x08 == 0 {
			return "off"
		}
		return "none"
	}
	var sb strings.Builder
	if a&0x01 != 0 {
		sb.WriteString("x")
	}
	if a&0x02 != 0 {
		sb.WriteString("y")
	}
	if a&0x04 != 0 {
		sb.WriteString("z")
	}
	return sb.String()
}

func (a Axes) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText accepts "all", "none" (sleep), "off" (power-down) or any
// combination of x, y and z (e.g. "xz").
func (a *Axes) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	switch s {
	case "all":
		*a = EnableAll
		return nil
	case "none":
		*a = AxesSleep
		return nil
	case "off":
		*a = 0
		return nil
	}
	if s == "" {
		return fmt.Errorf("%w: empty axes selection", ErrInvalidConfig)
	}
	var res Axes
	for _, c := range s {
		switch c {
		case 'x':
			res |= EnableX
		case 'y':
			res |= EnableY
		case 'z':
			res |= EnableZ
		default:
			return fmt.Errorf("%w: unknown axis %q", ErrInvalidConfig, c)
		}
	}
	*a = res
	return nil
}

// Rate is the combined output data rate and bandwidth preset, CTRL_REG1[7:4].
type Rate byte

const (
	RateLow    Rate = 0x10 // 100 Hz ODR, 25 Hz cut-off
	RateMedium Rate = 0x60 // 200 Hz ODR, 50 Hz cut-off
	RateHigh   Rate = 0xB0 // 400 Hz ODR, 110 Hz cut-off
	RateUltra  Rate = 0xF0 // 800 Hz ODR, 110 Hz cut-off

	rateMask byte = 0xF0
)

var rateNames = map[Rate]string{
	RateLow:    "low",
	RateMedium: "medium",
	RateHigh:   "high",
	RateUltra:  "ultra",
}

func (r Rate) String() string {
	if name, ok := rateNames[r]; ok {
		return name
	}
	return fmt.Sprintf("rate(%#02x)", byte(r))
}

func (r Rate) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Rate) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	for v, name := range rateNames {
		if name == s {
			*r = v
			return nil
		}
	}
	return fmt.Errorf("%w: unknown rate preset %q", ErrInvalidConfig, s)
}

// HighPassMode is the high-pass filter mode, CTRL_REG2[5:4].
type HighPassMode byte

const (
	HighPassNormal    HighPassMode = 0x00 // normal mode, reset by reading REFERENCE
	HighPassReference HighPassMode = 0x10
	HighPassNormal2   HighPassMode = 0x20
	HighPassAutoReset HighPassMode = 0x30

	highPassModeMask byte = 0x30
)

var highPassModeNames = map[HighPassMode]string{
	HighPassNormal:    "normal",
	HighPassReference: "reference",
	HighPassNormal2:   "normal2",
	HighPassAutoReset: "autoreset",
}

func (m HighPassMode) String() string {
	if name, ok := highPassModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("hpm(%#02x)", byte(m))
}

func (m HighPassMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *HighPassMode) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	for v, name := range highPassModeNames {
		if name == s {
			*m = v
			return nil
		}
	}
	return fmt.Errorf("%w: unknown high-pass mode %q", ErrInvalidConfig, s)
}

// HighPassCutoff is the high-pass cut-off code, CTRL_REG2[3:0]. The resulting
// frequency depends on the output data rate (datasheet table 27):
//
//	code    100Hz  200Hz  400Hz  800Hz
//	HPCF1   8      15     30     56
//	HPCF2   4      8      15     30
//	HPCF3   2      4      8      15
//	HPCF4   1      2      4      8
//	HPCF5   0.5    1      2      4
//	HPCF6   0.2    0.5    1      2
//	HPCF7   0.1    0.2    0.5    1
//	HPCF8   0.05   0.1    0.2    0.5
//	HPCF9   0.02   0.05   0.1    0.2
//	HPCF10  0.01   0.02   0.05   0.1
type HighPassCutoff byte

const (
	HPCF1 HighPassCutoff = iota
	HPCF2
	HPCF3
	HPCF4
	HPCF5
	HPCF6
	HPCF7
	HPCF8
	HPCF9
	HPCF10

	highPassCutoffMask byte = 0x0F
)

func (c HighPassCutoff) String() string {
	return fmt.Sprintf("hpcf%d", byte(c)+1)
}

func (c HighPassCutoff) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *HighPassCutoff) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	digits, ok := strings.CutPrefix(s, "hpcf")
	if !ok {
		return fmt.Errorf("%w: unknown high-pass cut-off %q", ErrInvalidConfig, s)
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 || n > 10 {
		return fmt.Errorf("%w: unknown high-pass cut-off %q", ErrInvalidConfig, s)
	}
	*c = HighPassCutoff(n - 1)
	return nil
}

// FullScale selects the measurement range, CTRL_REG4[5:4]. The datasheet
// documents two encodings for 2000 dps.
type FullScale byte

const (
	Scale245     FullScale = 0x00
	Scale500     FullScale = 0x10
	Scale2000    FullScale = 0x20
	Scale2000Alt FullScale = 0x30

	fullScaleMask byte = 0x30
)

// Sensitivity in millidegrees per second per digit (datasheet table 4).
const (
	Sensitivity245  float32 = 8.75
	Sensitivity500  float32 = 17.50
	Sensitivity2000 float32 = 70.0
)

var fullScaleNames = map[FullScale]string{
	Scale245:     "245",
	Scale500:     "500",
	Scale2000:    "2000",
	Scale2000Alt: "2000alt",
}

// Sensitivity returns the mdps/digit factor for the range.
func (fs FullScale) Sensitivity() (float32, error) {
	switch fs {
	case Scale245:
		return Sensitivity245, nil
	case Scale500:
		return Sensitivity500, nil
	case Scale2000, Scale2000Alt:
		return Sensitivity2000, nil
	}
	return 0, fmt.Errorf("%w: unknown full scale %#02x", ErrInvalidConfig, byte(fs))
}

func (fs FullScale) String() string {
	if name, ok := fullScaleNames[fs]; ok {
		return name
	}
	return fmt.Sprintf("fs(%#02x)", byte(fs))
}

func (fs FullScale) MarshalText() ([]byte, error) {
	return []byte(fs.String()), nil
}

func (fs *FullScale) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	for v, name := range fullScaleNames {
		if name == s {
			*fs = v
			return nil
		}
	}
	return fmt.Errorf("%w: unknown full scale %q", ErrInvalidConfig, s)
}

// DeviceConfig fully determines the register state written by Init.
type DeviceConfig struct {
	Axes           Axes           `yaml:"axes"`
	Rate           Rate           `yaml:"rate"`
	HighPassMode   HighPassMode   `yaml:"hpf_mode"`
	HighPassCutoff HighPassCutoff `yaml:"hpf_cutoff"`
	FullScale      FullScale      `yaml:"full_scale"`
}

// DefaultDeviceConfig enables all axes at 200 Hz with the 500 dps range.
func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		Axes:           EnableAll,
		Rate:           RateMedium,
		HighPassMode:   HighPassNormal,
		HighPassCutoff: HPCF1,
		FullScale:      Scale500,
	}
}

func (c DeviceConfig) ctrl1() byte {
	return (byte(c.Axes) & axesMask) | (byte(c.Rate) & rateMask)
}

func (c DeviceConfig) ctrl2() byte {
	return (byte(c.HighPassMode) & highPassModeMask) | (byte(c.HighPassCutoff) & highPassCutoffMask)
}

func (c DeviceConfig) ctrl4() byte {
	return (byte(c.FullScale) & fullScaleMask) | ctrl4Fixed
}

func (c DeviceConfig) String() string {
	return fmt.Sprintf("axes=%s rate=%s hpf=%s/%s fs=%s", c.Axes, c.Rate, c.HighPassMode, c.HighPassCutoff, c.FullScale)
}
