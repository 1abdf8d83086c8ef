package sensor

import (
	"fmt"
	"strings"
)

// Reading is a decoded sample or attribute value delivered to subscribers.
type Reading interface {
	// Source names the sensor or attribute that produced the reading.
	Source() string
}

// TemperatureReading is the ambient temperature in degrees Celsius.
type TemperatureReading struct {
	Celsius float64
}

// AccelerationReading holds the three accelerometer axes.
// Units are raw counts for Remotte and g for SensorTag.
type AccelerationReading struct {
	X, Y, Z float64
}

// RotationReading holds the three gyroscope axes.
// Units are raw counts for Remotte and degrees/second for SensorTag.
type RotationReading struct {
	X, Y, Z float64
}

// AltitudeReading is a barometer sample: pressure in hPa and altitude in
// metres relative to the first calibrated sample of the session.
// Uncalibrated samples are reported as the zero value.
type AltitudeReading struct {
	PressureHPa float64
	AltitudeM   float64
}

// KeyReading is the state of the two hardware keys.
type KeyReading struct {
	Power  bool
	Center bool
}

// AttributeReading carries the raw value of an on-demand attribute.
type AttributeReading struct {
	Attribute Attribute
	Value     []byte
}

func (TemperatureReading) Source() string  { return Temperature.String() }
func (AccelerationReading) Source() string { return Accelerometer.String() }
func (RotationReading) Source() string     { return Gyroscope.String() }
func (AltitudeReading) Source() string     { return Altimeter.String() }
func (KeyReading) Source() string          { return Keys.String() }
func (r AttributeReading) Source() string  { return r.Attribute.String() }

func (r TemperatureReading) String() string {
	return fmt.Sprintf("%.2f °C", r.Celsius)
}

func (r AccelerationReading) String() string {
	return fmt.Sprintf("x=%.3f y=%.3f z=%.3f", r.X, r.Y, r.Z)
}

func (r RotationReading) String() string {
	return fmt.Sprintf("x=%.3f y=%.3f z=%.3f", r.X, r.Y, r.Z)
}

func (r AltitudeReading) String() string {
	return fmt.Sprintf("%.2f hPa, %.2f m", r.PressureHPa, r.AltitudeM)
}

func (r KeyReading) String() string {
	return fmt.Sprintf("power=%t center=%t", r.Power, r.Center)
}

// String renders battery level as a percentage and other attributes as text.
func (r AttributeReading) String() string {
	if r.Attribute == BatteryLevel {
		if pct, ok := r.Percent(); ok {
			return fmt.Sprintf("%d%%", pct)
		}
		return ""
	}
	return r.Text()
}

// Text returns the value as a string with trailing NULs removed.
func (r AttributeReading) Text() string {
	return strings.TrimRight(string(r.Value), "\x00")
}

// Percent returns the battery level; ok is false for other attributes or an empty value.
func (r AttributeReading) Percent() (int, bool) {
	if r.Attribute != BatteryLevel || len(r.Value) == 0 {
		return 0, false
	}
	return int(r.Value[0]), true
}

// ConnectionEvent is an externally visible session transition.
type ConnectionEvent int

const (
	Connecting ConnectionEvent = iota
	Connected
	Disconnecting
	Disconnected
)

func (e ConnectionEvent) String() string {
	switch e {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnecting:
		return "disconnecting"
	case Disconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("connection(%d)", int(e))
	}
}
