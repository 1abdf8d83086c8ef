package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/remotte/internal/sensor"
)

func TestDecodeTemperature(t *testing.T) {
	for _, v := range []sensor.Variant{sensor.VariantRemotte, sensor.VariantSensorTag} {
		got, err := DecodeTemperature(v, []byte{0x00, 0x00, 0x80, 0x00})
		require.NoError(t, err)
		assert.InDelta(t, 1.0, got.Celsius, 1e-9, v.String())
	}

	got, err := DecodeTemperature(sensor.VariantRemotte, []byte{0x12, 0x34, 0x00, 0x0c})
	require.NoError(t, err)
	assert.InDelta(t, 24.0, got.Celsius, 1e-9)

	_, err = DecodeTemperature(sensor.VariantRemotte, []byte{0x00, 0x00, 0x80})
	assert.ErrorIs(t, err, ErrShortPayload)
}

func TestDecodeAccelerometer(t *testing.T) {
	tests := []struct {
		name    string
		variant sensor.Variant
		data    []byte
		want    sensor.AccelerationReading
	}{
		{"remotte raw", sensor.VariantRemotte, []byte{1, 2, 3}, sensor.AccelerationReading{X: 1, Y: 2, Z: 3}},
		{"remotte signed", sensor.VariantRemotte, []byte{0xff, 0x80, 0x7f}, sensor.AccelerationReading{X: -1, Y: -128, Z: 127}},
		{"sensortag scaled", sensor.VariantSensorTag, []byte{1, 2, 3}, sensor.AccelerationReading{X: 1 / 64.0, Y: 2 / 64.0, Z: -3 / 64.0}},
		{"sensortag signed", sensor.VariantSensorTag, []byte{0xc0, 0x40, 0xc0}, sensor.AccelerationReading{X: -1, Y: 1, Z: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeAccelerometer(tt.variant, tt.data)
			require.NoError(t, err)
			assert.InDelta(t, tt.want.X, got.X, 1e-9)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-9)
			assert.InDelta(t, tt.want.Z, got.Z, 1e-9)
		})
	}

	_, err := DecodeAccelerometer(sensor.VariantRemotte, []byte{1, 2})
	assert.ErrorIs(t, err, ErrShortPayload)
}

func TestDecodeGyroscope(t *testing.T) {
	got, err := DecodeGyroscope(sensor.VariantRemotte, []byte{0x01, 0x02, 0x00, 0x10, 0xff, 0xfe})
	require.NoError(t, err)
	assert.Equal(t, sensor.RotationReading{X: 0x0102, Y: 0x0010, Z: -2}, got)

	// 0x0080 = 128 counts; 128 * 500/65536 = 0.9765625 deg/s
	got, err = DecodeGyroscope(sensor.VariantSensorTag, []byte{0x80, 0x00, 0x00, 0x01, 0x80, 0xff})
	require.NoError(t, err)
	assert.InDelta(t, -0.9765625, got.Y, 1e-9)
	assert.InDelta(t, 256*500/65536.0, got.X, 1e-9)
	assert.InDelta(t, -0.9765625, got.Z, 1e-9)

	_, err = DecodeGyroscope(sensor.VariantSensorTag, []byte{1, 2, 3, 4, 5})
	assert.ErrorIs(t, err, ErrShortPayload)
}

func TestDecodeKeys(t *testing.T) {
	tests := []struct {
		name string
		data byte
		want sensor.KeyReading
	}{
		{"center", 0x01, sensor.KeyReading{Power: false, Center: true}},
		{"power", 0x02, sensor.KeyReading{Power: true, Center: false}},
		{"released", 0x00, sensor.KeyReading{}},
		{"both bits", 0x03, sensor.KeyReading{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeKeys(sensor.VariantRemotte, []byte{tt.data})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := DecodeKeys(sensor.VariantRemotte, nil)
	assert.ErrorIs(t, err, ErrShortPayload)
}

// calibrationBlob builds a blob where c2 = scale and c5 = offset, so the
// compensated pressure is (scale*p_r + offset*2^14) / 2^14.
func calibrationBlob(scale uint16, offset int16) []byte {
	blob := make([]byte, 16)
	blob[4], blob[5] = byte(scale), byte(scale>>8)
	blob[10], blob[11] = byte(uint16(offset)), byte(uint16(offset)>>8)
	return blob
}

func pressureSample(raw uint16) []byte {
	return []byte{0x10, 0x00, byte(raw), byte(raw >> 8)}
}

func TestAltimeterUncalibratedReportsZero(t *testing.T) {
	a := NewAltimeter()

	got, err := a.Decode(pressureSample(1000))
	require.NoError(t, err)
	assert.Equal(t, sensor.AltitudeReading{}, got)
	assert.False(t, a.Calibrated())

	_, ok := a.Baseline()
	assert.False(t, ok)
}

func TestAltimeterRejectsMalformedCalibration(t *testing.T) {
	a := NewAltimeter()

	for _, n := range []int{0, 15, 17} {
		err := a.Calibrate(make([]byte, n))
		assert.ErrorIs(t, err, ErrCalibrationLength, "length %d", n)
	}
	assert.False(t, a.Calibrated())

	for i := 0; i < 3; i++ {
		got, err := a.Decode(pressureSample(uint16(1000 + i)))
		require.NoError(t, err)
		assert.Equal(t, sensor.AltitudeReading{}, got)
	}
}

func TestAltimeterBaselineCapturedOnce(t *testing.T) {
	a := NewAltimeter()
	require.NoError(t, a.Calibrate(calibrationBlob(1<<14, 0)))

	first, err := a.Decode(pressureSample(1000))
	require.NoError(t, err)
	assert.Equal(t, sensor.AltitudeReading{}, first, "baseline sample is a placeholder")

	baseline, ok := a.Baseline()
	require.True(t, ok)
	assert.InDelta(t, 1000.0, baseline, 1e-9)

	second, err := a.Decode(pressureSample(1120))
	require.NoError(t, err)
	assert.InDelta(t, 11.2, second.PressureHPa, 1e-9)
	assert.InDelta(t, 10.0, second.AltitudeM, 1e-9)

	// Re-calibration changes the coefficients but never the baseline.
	require.NoError(t, a.Calibrate(calibrationBlob(1<<15, 0)))
	third, err := a.Decode(pressureSample(1000))
	require.NoError(t, err)
	assert.InDelta(t, 20.0, third.PressureHPa, 1e-9)
	assert.InDelta(t, 1000.0/12.0, third.AltitudeM, 1e-9)

	baseline, _ = a.Baseline()
	assert.InDelta(t, 1000.0, baseline, 1e-9)
}

func TestAltimeterSignedUpperCoefficients(t *testing.T) {
	a := NewAltimeter()
	require.NoError(t, a.Calibrate(calibrationBlob(1<<14, -1)))

	_, err := a.Decode(pressureSample(1000))
	require.NoError(t, err)
	baseline, ok := a.Baseline()
	require.True(t, ok)
	assert.InDelta(t, 999.0, baseline, 1e-9)
}

func TestAltimeterReset(t *testing.T) {
	a := NewAltimeter()
	require.NoError(t, a.Calibrate(calibrationBlob(1<<14, 0)))
	_, err := a.Decode(pressureSample(1000))
	require.NoError(t, err)

	a.Reset()
	assert.False(t, a.Calibrated())
	_, ok := a.Baseline()
	assert.False(t, ok)
}

func TestAltimeterShortSample(t *testing.T) {
	a := NewAltimeter()
	require.NoError(t, a.Calibrate(calibrationBlob(1<<14, 0)))

	_, err := a.Decode([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrShortPayload)
	_, ok := a.Baseline()
	assert.False(t, ok, "short sample must not capture a baseline")
}

func TestDecoderDispatch(t *testing.T) {
	d := NewDecoder(sensor.VariantSensorTag)
	assert.Equal(t, sensor.VariantSensorTag, d.Variant())

	r, err := d.Decode(sensor.Accelerometer, []byte{1, 2, 3})
	require.NoError(t, err)
	assert.IsType(t, sensor.AccelerationReading{}, r)

	r, err = d.Decode(sensor.Keys, []byte{0x02})
	require.NoError(t, err)
	assert.Equal(t, sensor.KeyReading{Power: true}, r)

	r, err = d.Decode(sensor.Altimeter, pressureSample(1))
	require.NoError(t, err)
	assert.Equal(t, sensor.AltitudeReading{}, r)

	r, err = d.Decode(sensor.Temperature, []byte{1})
	assert.ErrorIs(t, err, ErrShortPayload)
	assert.Nil(t, r)

	_, err = d.Decode(sensor.Kind(77), []byte{1})
	assert.ErrorIs(t, err, ErrUnknownSensor)

	require.NoError(t, d.Altimeter().Calibrate(calibrationBlob(1<<14, 0)))
	assert.True(t, d.Altimeter().Calibrated())
}
