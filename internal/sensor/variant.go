package sensor

import (
	"fmt"
	"strings"
)

// Variant selects the peripheral family. It changes the GATT layout
// details and the decoding rules, never the session protocol.
type Variant int

const (
	// VariantRemotte is the Remotte handheld controller.
	VariantRemotte Variant = iota
	// VariantSensorTag is the TI CC2541 SensorTag.
	VariantSensorTag
)

var variantNames = map[Variant]string{
	VariantRemotte:   "remotte",
	VariantSensorTag: "sensortag",
}

func (v Variant) String() string {
	if name, ok := variantNames[v]; ok {
		return name
	}
	return fmt.Sprintf("variant(%d)", int(v))
}

// Valid reports whether v is a known variant.
func (v Variant) Valid() bool {
	_, ok := variantNames[v]
	return ok
}

// ParseVariant parses a variant name case-insensitively.
func ParseVariant(s string) (Variant, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for v, n := range variantNames {
		if n == name {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown device variant %q (must be remotte or sensortag)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (v Variant) MarshalText() ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("unknown device variant %d", int(v))
	}
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Variant) UnmarshalText(text []byte) error {
	parsed, err := ParseVariant(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Set implements pflag.Value so a Variant can back a command-line flag.
func (v *Variant) Set(s string) error {
	return v.UnmarshalText([]byte(s))
}

// Type implements pflag.Value.
func (v *Variant) Type() string {
	return "variant"
}
