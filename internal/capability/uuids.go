package capability

import (
	"github.com/go-ble/ble"

	"github.com/srg/remotte/internal/sensor"
)

// Both variants are built on the CC2541 reference profile and share its layout.
var (
	batteryService = ble.BatteryUUID
	batteryLevel   = ble.MustParse("2a19")

	deviceInfoService = ble.DeviceInfoUUID
	manufacturerName  = ble.MustParse("2a29")
	modelNumber       = ble.MustParse("2a24")
	serialNumber      = ble.MustParse("2a25")
	firmwareRevision  = ble.MustParse("2a26")
	hardwareRevision  = ble.MustParse("2a27")
	softwareRevision  = ble.MustParse("2a28")

	temperatureService = ble.MustParse("f000aa00-0451-4000-b000-000000000000")
	temperatureData    = ble.MustParse("f000aa01-0451-4000-b000-000000000000")
	temperatureConfig  = ble.MustParse("f000aa02-0451-4000-b000-000000000000")
	temperaturePeriod  = ble.MustParse("f000aa03-0451-4000-b000-000000000000")

	accelerometerService = ble.MustParse("f000aa10-0451-4000-b000-000000000000")
	accelerometerData    = ble.MustParse("f000aa11-0451-4000-b000-000000000000")
	accelerometerConfig  = ble.MustParse("f000aa12-0451-4000-b000-000000000000")
	accelerometerPeriod  = ble.MustParse("f000aa13-0451-4000-b000-000000000000")

	altimeterService     = ble.MustParse("f000aa40-0451-4000-b000-000000000000")
	altimeterData        = ble.MustParse("f000aa41-0451-4000-b000-000000000000")
	altimeterConfig      = ble.MustParse("f000aa42-0451-4000-b000-000000000000")
	altimeterCalibration = ble.MustParse("f000aa43-0451-4000-b000-000000000000")
	altimeterPeriod      = ble.MustParse("f000aa44-0451-4000-b000-000000000000")

	gyroscopeService = ble.MustParse("f000aa50-0451-4000-b000-000000000000")
	gyroscopeData    = ble.MustParse("f000aa51-0451-4000-b000-000000000000")
	gyroscopeConfig  = ble.MustParse("f000aa52-0451-4000-b000-000000000000")
	gyroscopePeriod  = ble.MustParse("f000aa53-0451-4000-b000-000000000000")

	hapticService = ble.MustParse("f000aa80-0451-4000-b000-000000000000")
	hapticData    = ble.MustParse("f000aa81-0451-4000-b000-000000000000")

	keysService = ble.MustParse("ffe0")
	keysData    = ble.MustParse("ffe1")
)

// sensorProfiles is in configuration order.
func sensorProfiles() []SensorProfile {
	return []SensorProfile{
		{Kind: sensor.Temperature, Service: temperatureService, Data: temperatureData, Config: temperatureConfig, Period: temperaturePeriod, Enable: PayloadEnable},
		{Kind: sensor.Accelerometer, Service: accelerometerService, Data: accelerometerData, Config: accelerometerConfig, Period: accelerometerPeriod, Enable: PayloadEnable},
		{Kind: sensor.Gyroscope, Service: gyroscopeService, Data: gyroscopeData, Config: gyroscopeConfig, Period: gyroscopePeriod, Enable: PayloadGyroscope3Axis},
		{Kind: sensor.Altimeter, Service: altimeterService, Data: altimeterData, Config: altimeterConfig, Period: altimeterPeriod, Enable: PayloadEnable},
		{Kind: sensor.Keys, Service: keysService, Data: keysData},
	}
}

func attributeProfiles() []AttributeProfile {
	return []AttributeProfile{
		{Attribute: sensor.BatteryLevel, Service: batteryService, Characteristic: batteryLevel},
		{Attribute: sensor.ManufacturerName, Service: deviceInfoService, Characteristic: manufacturerName},
		{Attribute: sensor.FirmwareVersion, Service: deviceInfoService, Characteristic: firmwareRevision},
		{Attribute: sensor.ModelNumber, Service: deviceInfoService, Characteristic: modelNumber},
		{Attribute: sensor.SerialNumber, Service: deviceInfoService, Characteristic: serialNumber},
		{Attribute: sensor.HardwareRevision, Service: deviceInfoService, Characteristic: hardwareRevision},
		{Attribute: sensor.SoftwareRevision, Service: deviceInfoService, Characteristic: softwareRevision},
	}
}
