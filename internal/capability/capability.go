// Package capability is the static map from logical sensors and attributes
// to the GATT services, characteristics and payloads of each device variant.
package capability

import (
	"errors"
	"fmt"

	"github.com/go-ble/ble"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/srg/remotte/internal/device"
	"github.com/srg/remotte/internal/sensor"
)

// ErrInvalidCharacteristic is returned by reverse lookups for identifiers the table does not know.
var ErrInvalidCharacteristic = errors.New("invalid characteristic")

// Payloads written to configuration characteristics and descriptors.
var (
	PayloadEnable          = []byte{0x01}
	PayloadDisable         = []byte{0x00}
	PayloadGyroscope3Axis  = []byte{0x07}
	PayloadCalibrationMode = []byte{0x02}
	PayloadNotifyOn        = []byte{0x01, 0x00}
	PayloadNotifyOff       = []byte{0x00, 0x00}
)

// ClientCharacteristicConfig is the CCCD toggled to start and stop notifications.
var ClientCharacteristicConfig = ble.ClientCharacteristicConfigUUID

// SensorProfile locates one streaming sensor.
type SensorProfile struct {
	Kind    sensor.Kind
	Service ble.UUID
	Data    ble.UUID
	Config  ble.UUID // nil for sensors without a configuration characteristic
	Period  ble.UUID // nil for sensors without a period characteristic
	Enable  []byte
}

// AttributeProfile locates one on-demand attribute.
type AttributeProfile struct {
	Attribute      sensor.Attribute
	Service        ble.UUID
	Characteristic ble.UUID
}

// Table is the capability table for one variant. It is immutable after construction.
type Table struct {
	variant    sensor.Variant
	sensors    *orderedmap.OrderedMap[sensor.Kind, SensorProfile]
	attributes *orderedmap.OrderedMap[sensor.Attribute, AttributeProfile]

	byData      map[string]sensor.Kind
	byAttribute map[string]sensor.Attribute

	calibrationService ble.UUID
	calibration        ble.UUID
	hapticService      ble.UUID
	haptic             ble.UUID
}

var tables = map[sensor.Variant]*Table{
	sensor.VariantRemotte:   newTable(sensor.VariantRemotte, true),
	sensor.VariantSensorTag: newTable(sensor.VariantSensorTag, false),
}

// For returns the table for v.
func For(v sensor.Variant) (*Table, error) {
	t, ok := tables[v]
	if !ok {
		return nil, fmt.Errorf("no capability table for %s", v)
	}
	return t, nil
}

// MustFor is For that panics on an unknown variant.
func MustFor(v sensor.Variant) *Table {
	t, err := For(v)
	if err != nil {
		panic(err)
	}
	return t
}

func newTable(v sensor.Variant, withHaptic bool) *Table {
	t := &Table{
		variant:     v,
		sensors:     orderedmap.New[sensor.Kind, SensorProfile](),
		attributes:  orderedmap.New[sensor.Attribute, AttributeProfile](),
		byData:      make(map[string]sensor.Kind),
		byAttribute: make(map[string]sensor.Attribute),

		calibrationService: altimeterService,
		calibration:        altimeterCalibration,
	}

	for _, p := range sensorProfiles() {
		t.sensors.Set(p.Kind, p)
		t.byData[device.UUIDKey(p.Data)] = p.Kind
	}
	for _, p := range attributeProfiles() {
		t.attributes.Set(p.Attribute, p)
		t.byAttribute[device.UUIDKey(p.Characteristic)] = p.Attribute
	}
	if withHaptic {
		t.hapticService = hapticService
		t.haptic = hapticData
	}
	return t
}

// Variant returns the variant this table describes.
func (t *Table) Variant() sensor.Variant {
	return t.variant
}

// Sensor returns the profile for k.
func (t *Table) Sensor(k sensor.Kind) (SensorProfile, error) {
	p, ok := t.sensors.Get(k)
	if !ok {
		return SensorProfile{}, &device.NotFoundError{Resource: "sensor", UUIDs: []string{k.String()}}
	}
	return p, nil
}

// Sensors returns every sensor profile in configuration order.
func (t *Table) Sensors() []SensorProfile {
	out := make([]SensorProfile, 0, t.sensors.Len())
	for pair := t.sensors.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Attribute returns the profile for a.
func (t *Table) Attribute(a sensor.Attribute) (AttributeProfile, error) {
	p, ok := t.attributes.Get(a)
	if !ok {
		return AttributeProfile{}, &device.NotFoundError{Resource: "attribute", UUIDs: []string{a.String()}}
	}
	return p, nil
}

// AttributeFor maps a characteristic back to its attribute.
func (t *Table) AttributeFor(char ble.UUID) (sensor.Attribute, error) {
	a, ok := t.byAttribute[device.UUIDKey(char)]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrInvalidCharacteristic, device.UUIDKey(char))
	}
	return a, nil
}

// SensorFor maps a data characteristic back to its sensor.
func (t *Table) SensorFor(data ble.UUID) (sensor.Kind, bool) {
	k, ok := t.byData[device.UUIDKey(data)]
	return k, ok
}

// Calibration returns the altimeter calibration characteristic and its service.
func (t *Table) Calibration() (service, char ble.UUID) {
	return t.calibrationService, t.calibration
}

// IsCalibration reports whether char is the altimeter calibration characteristic.
func (t *Table) IsCalibration(char ble.UUID) bool {
	return device.SameUUID(char, t.calibration)
}

// Haptic returns the haptic characteristic; ok is false for variants without one.
func (t *Table) Haptic() (service, char ble.UUID, ok bool) {
	if t.haptic == nil {
		return nil, nil, false
	}
	return t.hapticService, t.haptic, true
}

// RequiredServices lists the services the configured sensors rely on.
func (t *Table) RequiredServices(cfg sensor.SensorConfiguration) []ble.UUID {
	var out []ble.UUID
	for _, k := range cfg.EnabledKinds() {
		if p, err := t.Sensor(k); err == nil {
			out = append(out, p.Service)
		}
	}
	return out
}

// HapticPayload encodes a haptic request. ok is false when neither actuator is requested.
func HapticPayload(vibrator, buzzer bool) (payload []byte, ok bool) {
	switch {
	case vibrator && buzzer:
		return []byte{0x03}, true
	case vibrator:
		return []byte{0x01}, true
	case buzzer:
		return []byte{0x02}, true
	default:
		return nil, false
	}
}
