package codec

import (
	"fmt"
	"math"

	"github.com/srg/remotte/internal/sensor"
)

const (
	calibrationLength = 16
	pascalPerMetre    = 12.0
)

// Altimeter holds the barometer calibration for one session.
//
// Coefficients c0..c3 are unsigned and c4..c7 signed, all little-endian.
// The altitude baseline is captured from the first calibrated sample and
// never changes afterwards, even if calibration is applied again.
type Altimeter struct {
	coefficients []float64
	baseline     *float64
}

// NewAltimeter returns an uncalibrated altimeter.
func NewAltimeter() *Altimeter {
	return &Altimeter{}
}

// Calibrate parses a 16-byte calibration blob. Blobs of any other length
// are rejected and leave the current state untouched.
func (a *Altimeter) Calibrate(blob []byte) error {
	if len(blob) != calibrationLength {
		return fmt.Errorf("%w: got %d", ErrCalibrationLength, len(blob))
	}

	coefficients := make([]float64, 0, 8)
	for offset := 0; offset < 8; offset += 2 {
		coefficients = append(coefficients, float64(uint16LE(blob, offset)))
	}
	for offset := 8; offset < 16; offset += 2 {
		coefficients = append(coefficients, float64(int16LE(blob, offset)))
	}
	a.coefficients = coefficients
	return nil
}

// Calibrated reports whether a calibration blob has been applied.
func (a *Altimeter) Calibrated() bool {
	return len(a.coefficients) == 8
}

// Baseline returns the captured baseline pressure in pascal.
func (a *Altimeter) Baseline() (float64, bool) {
	if a.baseline == nil {
		return 0, false
	}
	return *a.baseline, true
}

// Reset discards calibration and baseline.
func (a *Altimeter) Reset() {
	a.coefficients = nil
	a.baseline = nil
}

// Decode converts a barometer sample. Uncalibrated samples and the sample
// that captures the baseline yield the zero reading.
func (a *Altimeter) Decode(data []byte) (sensor.AltitudeReading, error) {
	if err := need(sensor.Altimeter, data, 4); err != nil {
		return sensor.AltitudeReading{}, err
	}
	if !a.Calibrated() {
		return sensor.AltitudeReading{}, nil
	}

	pa := a.pressure(data)
	if a.baseline == nil {
		a.baseline = &pa
		return sensor.AltitudeReading{}, nil
	}

	return sensor.AltitudeReading{
		PressureHPa: pa / 100.0,
		AltitudeM:   (pa - *a.baseline) / pascalPerMetre,
	}, nil
}

// pressure returns the compensated pressure in pascal.
func (a *Altimeter) pressure(data []byte) float64 {
	c := a.coefficients
	tr := float64(int16LE(data, 0))
	pr := float64(uint16LE(data, 2))

	s := c[2] + c[3]*tr/math.Exp2(17) + ((c[4]*tr/math.Exp2(15))*tr)/math.Exp2(19)
	o := c[5]*math.Exp2(14) + c[6]*tr/math.Exp2(3) + ((c[7]*tr/math.Exp2(15))*tr)/math.Exp2(4)
	return (s*pr + o) / math.Exp2(14)
}
