package sensor

import (
	"errors"
	"fmt"

	"github.com/mcuadros/go-defaults"
)

// Sampling period bounds. The peripheral stores the period in units of 10 ms in a single byte.
const (
	MinPeriodMs     = 100
	MaxPeriodMs     = 2550
	DefaultPeriodMs = 1000
)

// ErrInvalidConfiguration is wrapped by every configuration validation failure.
var ErrInvalidConfiguration = errors.New("invalid sensor configuration")

// SensorSettings configures one streaming sensor.
type SensorSettings struct {
	Enabled  bool `yaml:"enabled" json:"enabled"`
	Notify   bool `yaml:"notify" json:"notify"`
	PeriodMs int  `yaml:"period_ms" json:"period_ms" default:"1000"`
}

// PeriodByte encodes the sampling period as sent to the period characteristic.
func (s SensorSettings) PeriodByte() (byte, error) {
	if s.PeriodMs < MinPeriodMs || s.PeriodMs > MaxPeriodMs {
		return 0, fmt.Errorf("%w: period %d ms outside [%d, %d]", ErrInvalidConfiguration, s.PeriodMs, MinPeriodMs, MaxPeriodMs)
	}
	return byte(s.PeriodMs / 10), nil
}

// SensorConfiguration is built once by the caller and stays read-only
// for the lifetime of the session that applies it.
type SensorConfiguration struct {
	Variant       Variant        `yaml:"variant" json:"variant"`
	Temperature   SensorSettings `yaml:"temperature" json:"temperature"`
	Accelerometer SensorSettings `yaml:"accelerometer" json:"accelerometer"`
	Gyroscope     SensorSettings `yaml:"gyroscope" json:"gyroscope"`
	Altimeter     SensorSettings `yaml:"altimeter" json:"altimeter"`
	Keys          bool           `yaml:"keys" json:"keys"`
}

// NewConfiguration returns a configuration with every sensor disabled and default periods.
func NewConfiguration(v Variant) SensorConfiguration {
	c := SensorConfiguration{Variant: v}
	defaults.SetDefaults(&c)
	return c
}

// Settings returns the settings for k. Keys have no period and are
// reported as enabled and notifying together.
func (c SensorConfiguration) Settings(k Kind) (SensorSettings, bool) {
	switch k {
	case Temperature:
		return c.Temperature, true
	case Accelerometer:
		return c.Accelerometer, true
	case Gyroscope:
		return c.Gyroscope, true
	case Altimeter:
		return c.Altimeter, true
	case Keys:
		return SensorSettings{Enabled: c.Keys, Notify: c.Keys}, true
	default:
		return SensorSettings{}, false
	}
}

// Enable turns on k with notifications at the given period.
func (c *SensorConfiguration) Enable(k Kind, periodMs int) {
	s := SensorSettings{Enabled: true, Notify: true, PeriodMs: periodMs}
	switch k {
	case Temperature:
		c.Temperature = s
	case Accelerometer:
		c.Accelerometer = s
	case Gyroscope:
		c.Gyroscope = s
	case Altimeter:
		c.Altimeter = s
	case Keys:
		c.Keys = true
	}
}

// EnabledKinds lists the enabled sensors in configuration order.
func (c SensorConfiguration) EnabledKinds() []Kind {
	var out []Kind
	for _, k := range Kinds() {
		if s, _ := c.Settings(k); s.Enabled {
			out = append(out, k)
		}
	}
	return out
}

// Validate checks the variant and every notifying sensor's period.
func (c SensorConfiguration) Validate() error {
	if !c.Variant.Valid() {
		return fmt.Errorf("%w: unknown variant %d", ErrInvalidConfiguration, int(c.Variant))
	}
	for _, k := range Kinds() {
		if k == Keys {
			continue
		}
		s, _ := c.Settings(k)
		if s.Notify && !s.Enabled {
			return fmt.Errorf("%w: %s notifications require the sensor to be enabled", ErrInvalidConfiguration, k)
		}
		if !s.Notify {
			continue
		}
		if _, err := s.PeriodByte(); err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
	}
	return nil
}
