package codec

import (
	"github.com/srg/remotte/internal/sensor"
)

const (
	temperatureScale   = 128.0
	accelerometerScale = 64.0
	gyroscopeScale     = 500.0 / 65536.0
)

// DecodeTemperature reads the unsigned little-endian ambient value at offset 2.
// Both variants share the layout.
func DecodeTemperature(_ sensor.Variant, data []byte) (sensor.TemperatureReading, error) {
	if err := need(sensor.Temperature, data, 4); err != nil {
		return sensor.TemperatureReading{}, err
	}
	return sensor.TemperatureReading{Celsius: float64(uint16LE(data, 2)) / temperatureScale}, nil
}

// DecodeAccelerometer reads three signed bytes. Remotte reports raw counts;
// SensorTag is scaled to g with Z inverted.
func DecodeAccelerometer(v sensor.Variant, data []byte) (sensor.AccelerationReading, error) {
	if err := need(sensor.Accelerometer, data, 3); err != nil {
		return sensor.AccelerationReading{}, err
	}
	x, y, z := float64(int8(data[0])), float64(int8(data[1])), float64(int8(data[2]))

	if v == sensor.VariantSensorTag {
		return sensor.AccelerationReading{
			X: x / accelerometerScale,
			Y: y / accelerometerScale,
			Z: -z / accelerometerScale,
		}, nil
	}
	return sensor.AccelerationReading{X: x, Y: y, Z: z}, nil
}

// DecodeGyroscope reads three 16-bit axes.
//
// Remotte packs big-endian pairs (0,1), (2,3), (4,5) and reports raw counts.
// SensorTag packs signed little-endian words in Y, X, Z order, scaled to
// degrees/second with Y inverted.
func DecodeGyroscope(v sensor.Variant, data []byte) (sensor.RotationReading, error) {
	if err := need(sensor.Gyroscope, data, 6); err != nil {
		return sensor.RotationReading{}, err
	}

	if v == sensor.VariantSensorTag {
		return sensor.RotationReading{
			Y: -float64(int16LE(data, 0)) * gyroscopeScale,
			X: float64(int16LE(data, 2)) * gyroscopeScale,
			Z: float64(int16LE(data, 4)) * gyroscopeScale,
		}, nil
	}
	return sensor.RotationReading{
		X: float64(int16BE(data, 0)),
		Y: float64(int16BE(data, 2)),
		// Byte 5 is the Z low byte; it is not a repeat of byte 4.
		Z: float64(int16BE(data, 4)),
	}, nil
}

// DecodeKeys reads the key bitmap byte: 1 is the center key, 2 the power key.
// Any other value reports both keys released.
func DecodeKeys(_ sensor.Variant, data []byte) (sensor.KeyReading, error) {
	if err := need(sensor.Keys, data, 1); err != nil {
		return sensor.KeyReading{}, err
	}
	switch data[0] {
	case 0x01:
		return sensor.KeyReading{Center: true}, nil
	case 0x02:
		return sensor.KeyReading{Power: true}, nil
	default:
		return sensor.KeyReading{}, nil
	}
}
