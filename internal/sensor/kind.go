package sensor

import (
	"fmt"
	"strings"
)

// Kind identifies a streaming sensor.
type Kind int

const (
	Temperature Kind = iota
	Accelerometer
	Gyroscope
	Altimeter
	Keys
)

var kindNames = [...]string{
	Temperature:   "temperature",
	Accelerometer: "accelerometer",
	Gyroscope:     "gyroscope",
	Altimeter:     "altimeter",
	Keys:          "keys",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("sensor(%d)", int(k))
}

// Kinds lists the streaming sensors in configuration order.
func Kinds() []Kind {
	return []Kind{Temperature, Accelerometer, Gyroscope, Altimeter, Keys}
}

// Attribute identifies an on-demand (read once) characteristic.
type Attribute int

const (
	BatteryLevel Attribute = iota
	ManufacturerName
	FirmwareVersion
	ModelNumber
	SerialNumber
	HardwareRevision
	SoftwareRevision
)

var attributeNames = [...]string{
	BatteryLevel:     "battery",
	ManufacturerName: "manufacturer",
	FirmwareVersion:  "firmware",
	ModelNumber:      "model",
	SerialNumber:     "serial",
	HardwareRevision: "hardware",
	SoftwareRevision: "software",
}

func (a Attribute) String() string {
	if a >= 0 && int(a) < len(attributeNames) {
		return attributeNames[a]
	}
	return fmt.Sprintf("attribute(%d)", int(a))
}

// Attributes lists every known attribute.
func Attributes() []Attribute {
	out := make([]Attribute, 0, len(attributeNames))
	for i := range attributeNames {
		out = append(out, Attribute(i))
	}
	return out
}

// ParseAttribute resolves an attribute by name.
func ParseAttribute(s string) (Attribute, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range attributeNames {
		if n == name {
			return Attribute(i), nil
		}
	}
	return 0, fmt.Errorf("unknown attribute %q (must be one of %s)", s, strings.Join(attributeNames[:], ", "))
}
