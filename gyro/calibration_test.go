package gyro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestI3G4250D_DefaultCalibration(t *testing.T) {
	d := New(newFakeBus())
	for _, axis := range []Axis{X, Y, Z} {
		assert.Equal(t, AxisCalibration{Bias: 0, Scale: 1}, d.Calibration(axis))
	}
}

func TestI3G4250D_CalibrateAxis(t *testing.T) {
	tests := []struct {
		name     string
		min, max float32
		expected AxisCalibration
	}{
		{"unit span", 0, 2000, AxisCalibration{Bias: 1000, Scale: 1}},
		{"symmetric", -500, 500, AxisCalibration{Bias: 0, Scale: 2}},
		{"offset", -3000, 1000, AxisCalibration{Bias: -1000, Scale: 0.5}},
	}
	for _, tt := range tests {
		for _, axis := range []Axis{X, Y, Z} {
			t.Run(tt.name+"/"+axis.String(), func(t *testing.T) {
				d := New(newFakeBus())
				require.NoError(t, d.CalibrateAxis(axis, tt.min, tt.max))
				assert.Equal(t, tt.expected, d.Calibration(axis))
				for _, other := range []Axis{X, Y, Z} {
					if other != axis {
						assert.Equal(t, AxisCalibration{Bias: 0, Scale: 1}, d.Calibration(other))
					}
				}
			})
		}
	}
}

func TestI3G4250D_CalibrateReplaces(t *testing.T) {
	d := New(newFakeBus())
	require.NoError(t, d.CalibrateZ(0, 2000))
	require.NoError(t, d.CalibrateZ(-500, 500))
	assert.Equal(t, AxisCalibration{Bias: 0, Scale: 2}, d.Calibration(Z))
}

func TestI3G4250D_CalibrateInvalidBounds(t *testing.T) {
	tests := []struct {
		name     string
		min, max float32
	}{
		{"equal", 100, 100},
		{"inverted", 500, -500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(newFakeBus())
			require.NoError(t, d.CalibrateX(-500, 500))
			err := d.CalibrateX(tt.min, tt.max)
			assert.ErrorIs(t, err, ErrInvalidCalibration)
			assert.Equal(t, AxisCalibration{Bias: 0, Scale: 2}, d.Calibration(X), "previous state must be kept")
		})
	}
}

func TestI3G4250D_CalibrateUnknownAxis(t *testing.T) {
	d := New(newFakeBus())
	assert.ErrorIs(t, d.CalibrateAxis(Axis(7), 0, 1), ErrInvalidCalibration)
	assert.Equal(t, AxisCalibration{}, d.Calibration(Axis(7)))
}

func TestI3G4250D_ResetCalibration(t *testing.T) {
	d := New(newFakeBus())
	require.NoError(t, d.CalibrateY(0, 2000))
	d.ResetCalibration()
	assert.Equal(t, AxisCalibration{Bias: 0, Scale: 1}, d.Calibration(Y))
}

func TestBoundsFromSamples(t *testing.T) {
	samples := []RawSample{
		{X: 10, Y: -20, Z: 0},
		{X: -40, Y: 30, Z: 5},
		{X: 20, Y: 0, Z: -5},
	}
	bounds, err := BoundsFromSamples(samples, 2)
	require.NoError(t, err)
	assert.Equal(t, Bounds{Min: -80, Max: 40}, bounds[X])
	assert.Equal(t, Bounds{Min: -40, Max: 60}, bounds[Y])
	assert.Equal(t, Bounds{Min: -10, Max: 10}, bounds[Z])

	c, err := bounds[Y].Calibration()
	require.NoError(t, err)
	assert.Equal(t, AxisCalibration{Bias: 10, Scale: 20}, c)

	_, err = BoundsFromSamples(nil, 2)
	assert.ErrorIs(t, err, ErrInvalidCalibration)
}
