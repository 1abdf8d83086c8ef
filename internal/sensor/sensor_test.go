package sensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseVariant(t *testing.T) {
	tests := []struct {
		input   string
		want    Variant
		wantErr bool
	}{
		{"remotte", VariantRemotte, false},
		{"SensorTag", VariantSensorTag, false},
		{" sensortag ", VariantSensorTag, false},
		{"cc2650", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseVariant(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVariantFlagValue(t *testing.T) {
	var v Variant
	require.NoError(t, v.Set("sensortag"))
	assert.Equal(t, VariantSensorTag, v)
	assert.Equal(t, "sensortag", v.String())
	assert.Equal(t, "variant", v.Type())
	assert.Error(t, v.Set("nope"))
	assert.False(t, Variant(7).Valid())
}

func TestParseAttribute(t *testing.T) {
	for _, a := range Attributes() {
		got, err := ParseAttribute(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}

	_, err := ParseAttribute("colour")
	assert.ErrorContains(t, err, "unknown attribute")
}

func TestPeriodByte(t *testing.T) {
	tests := []struct {
		periodMs int
		want     byte
		wantErr  bool
	}{
		{100, 10, false},
		{1000, 100, false},
		{2550, 255, false},
		{99, 0, true},
		{2560, 0, true},
	}

	for _, tt := range tests {
		got, err := SensorSettings{PeriodMs: tt.periodMs}.PeriodByte()
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidConfiguration, "period %d", tt.periodMs)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "period %d", tt.periodMs)
	}
}

func TestNewConfigurationDefaults(t *testing.T) {
	c := NewConfiguration(VariantSensorTag)

	assert.Equal(t, VariantSensorTag, c.Variant)
	assert.Equal(t, DefaultPeriodMs, c.Temperature.PeriodMs)
	assert.Equal(t, DefaultPeriodMs, c.Altimeter.PeriodMs)
	assert.Empty(t, c.EnabledKinds())
	require.NoError(t, c.Validate())
}

func TestConfigurationValidate(t *testing.T) {
	c := NewConfiguration(VariantRemotte)
	c.Enable(Gyroscope, 500)
	c.Enable(Keys, 0)
	require.NoError(t, c.Validate())
	assert.Equal(t, []Kind{Gyroscope, Keys}, c.EnabledKinds())

	c.Accelerometer = SensorSettings{Enabled: true, Notify: true, PeriodMs: 50}
	err := c.Validate()
	require.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), "accelerometer")

	c.Accelerometer = SensorSettings{Notify: true, PeriodMs: 500}
	assert.ErrorIs(t, c.Validate(), ErrInvalidConfiguration)

	c.Accelerometer = SensorSettings{}
	c.Variant = Variant(9)
	assert.ErrorIs(t, c.Validate(), ErrInvalidConfiguration)
}

func TestConfigurationYAML(t *testing.T) {
	doc := `
variant: sensortag
temperature:
  enabled: true
  notify: true
  period_ms: 500
keys: true
`
	c := NewConfiguration(VariantRemotte)
	require.NoError(t, yaml.Unmarshal([]byte(doc), &c))

	assert.Equal(t, VariantSensorTag, c.Variant)
	assert.Equal(t, SensorSettings{Enabled: true, Notify: true, PeriodMs: 500}, c.Temperature)
	assert.Equal(t, DefaultPeriodMs, c.Gyroscope.PeriodMs)
	assert.True(t, c.Keys)
}

func TestAttributeReadingString(t *testing.T) {
	assert.Equal(t, "87%", AttributeReading{Attribute: BatteryLevel, Value: []byte{87}}.String())
	assert.Equal(t, "", AttributeReading{Attribute: BatteryLevel}.String())
	assert.Equal(t, "Remotte", AttributeReading{Attribute: ManufacturerName, Value: []byte("Remotte\x00")}.String())

	_, ok := AttributeReading{Attribute: FirmwareVersion, Value: []byte{1}}.Percent()
	assert.False(t, ok)
}

func TestReadingSource(t *testing.T) {
	assert.Equal(t, "temperature", TemperatureReading{}.Source())
	assert.Equal(t, "keys", KeyReading{}.Source())
	assert.Equal(t, "firmware", AttributeReading{Attribute: FirmwareVersion}.Source())
}
