package gyro

import (
	"fmt"
	"math"
)

// Axis identifies one of the three measurement axes.
type Axis int

const (
	X Axis = iota
	Y
	Z

	axisCount = 3
)

func (a Axis) String() string {
	switch a {
	case X:
		return "X"
	case Y:
		return "Y"
	case Z:
		return "Z"
	}
	return fmt.Sprintf("axis(%d)", int(a))
}

// calibrationSpan is the normalized width an observed min/max span maps to.
const calibrationSpan = 2 * 1000

// AxisCalibration is the affine correction applied to one axis.
type AxisCalibration struct {
	Bias  float32 `yaml:"bias" json:"bias"`
	Scale float32 `yaml:"scale" json:"scale"`
}

func (c AxisCalibration) apply(raw int16, sensitivity float32) float32 {
	return float32(raw)*sensitivity*c.Scale - c.Bias
}

// Bounds are observed extremes for one axis.
type Bounds struct {
	Min float32 `yaml:"min" json:"min"`
	Max float32 `yaml:"max" json:"max"`
}

// Calibration derives bias and scale from observed bounds.
// Max must be strictly greater than Min.
func (b Bounds) Calibration() (AxisCalibration, error) {
	if !(b.Max > b.Min) {
		return AxisCalibration{}, fmt.Errorf("%w: max %v must be greater than min %v", ErrInvalidCalibration, b.Max, b.Min)
	}
	return AxisCalibration{
		Bias:  (b.Max + b.Min) / 2,
		Scale: calibrationSpan / (b.Max - b.Min),
	}, nil
}

// CalibrateAxis replaces the bias and scale of one axis. On error the previous
// state is kept.
func (d *I3G4250D) CalibrateAxis(axis Axis, min, max float32) error {
	if axis < X || axis > Z {
		return fmt.Errorf("%w: unknown %s", ErrInvalidCalibration, axis)
	}
	c, err := Bounds{Min: min, Max: max}.Calibration()
	if err != nil {
		return fmt.Errorf("could not calibrate %s: %w", axis, err)
	}
	d.calibration[axis] = c
	return nil
}

func (d *I3G4250D) CalibrateX(min, max float32) error {
	return d.CalibrateAxis(X, min, max)
}

func (d *I3G4250D) CalibrateY(min, max float32) error {
	return d.CalibrateAxis(Y, min, max)
}

func (d *I3G4250D) CalibrateZ(min, max float32) error {
	return d.CalibrateAxis(Z, min, max)
}

// Calibration returns the current state of one axis.
func (d *I3G4250D) Calibration(axis Axis) AxisCalibration {
	if axis < X || axis > Z {
		return AxisCalibration{}
	}
	return d.calibration[axis]
}

// ResetCalibration restores identity correction (zero bias, unit scale) on all axes.
func (d *I3G4250D) ResetCalibration() {
	for i := range d.calibration {
		d.calibration[i] = AxisCalibration{Bias: 0, Scale: 1}
	}
}

// BoundsFromSamples returns per-axis extremes of raw samples, converted to
// mdps with the given sensitivity. It is meant for collecting calibration
// input while the device is rotated through its range.
func BoundsFromSamples(samples []RawSample, sensitivity float32) ([axisCount]Bounds, error) {
	var res [axisCount]Bounds
	if len(samples) == 0 {
		return res, fmt.Errorf("%w: no samples", ErrInvalidCalibration)
	}
	for i := range res {
		res[i] = Bounds{Min: math.MaxFloat32, Max: -math.MaxFloat32}
	}
	for _, s := range samples {
		for axis, v := range [axisCount]int16{s.X, s.Y, s.Z} {
			f := float32(v) * sensitivity
			if f < res[axis].Min {
				res[axis].Min = f
			}
			if f > res[axis].Max {
				res[axis].Max = f
			}
		}
	}
	return res, nil
}
