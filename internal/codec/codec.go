// Package codec turns raw characteristic payloads into sensor readings.
//
// Decoders are pure functions of (variant, payload). They never panic on
// short input; they return ErrShortPayload instead.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/srg/remotte/internal/sensor"
)

var (
	// ErrShortPayload is returned when a payload is shorter than the sensor's fixed layout.
	ErrShortPayload = errors.New("payload too short")
	// ErrCalibrationLength is returned for calibration blobs that are not exactly 16 bytes.
	ErrCalibrationLength = errors.New("calibration blob must be 16 bytes")
	// ErrUnknownSensor is returned when asked to decode a sensor the codec does not handle.
	ErrUnknownSensor = errors.New("unknown sensor")
)

func need(kind sensor.Kind, data []byte, n int) error {
	if len(data) < n {
		return fmt.Errorf("%w: %s needs %d bytes, got %d", ErrShortPayload, kind, n, len(data))
	}
	return nil
}

func uint16LE(b []byte, offset int) uint16 {
	return binary.LittleEndian.Uint16(b[offset:])
}

func int16LE(b []byte, offset int) int16 {
	return int16(binary.LittleEndian.Uint16(b[offset:]))
}

func int16BE(b []byte, offset int) int16 {
	return int16(binary.BigEndian.Uint16(b[offset:]))
}

// Decoder dispatches payloads for one session. It owns the session's altimeter state.
type Decoder struct {
	variant   sensor.Variant
	altimeter *Altimeter
}

// NewDecoder returns a decoder for v with an uncalibrated altimeter.
func NewDecoder(v sensor.Variant) *Decoder {
	return &Decoder{variant: v, altimeter: NewAltimeter()}
}

// Variant returns the variant the decoder was built for.
func (d *Decoder) Variant() sensor.Variant {
	return d.variant
}

// Altimeter exposes the session's altimeter calibration state.
func (d *Decoder) Altimeter() *Altimeter {
	return d.altimeter
}

// Decode converts a notification payload from kind into a reading.
func (d *Decoder) Decode(kind sensor.Kind, data []byte) (sensor.Reading, error) {
	switch kind {
	case sensor.Temperature:
		return reading(DecodeTemperature(d.variant, data))
	case sensor.Accelerometer:
		return reading(DecodeAccelerometer(d.variant, data))
	case sensor.Gyroscope:
		return reading(DecodeGyroscope(d.variant, data))
	case sensor.Altimeter:
		return reading(d.altimeter.Decode(data))
	case sensor.Keys:
		return reading(DecodeKeys(d.variant, data))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSensor, kind)
	}
}

func reading[R sensor.Reading](r R, err error) (sensor.Reading, error) {
	if err != nil {
		return nil, err
	}
	return r, nil
}
