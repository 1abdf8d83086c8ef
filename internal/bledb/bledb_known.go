package bledb

// TI CC2541 sensor UUIDs share the f000xxxx-0451-4000-b000-000000000000 base.

var services = map[string]string{
	"180a": "Device Information",
	"180f": "Battery Service",
	"ffe0": "Simple Keys Service",

	"f000aa0004514000b000000000000000": "IR Temperature Service",
	"f000aa1004514000b000000000000000": "Accelerometer Service",
	"f000aa4004514000b000000000000000": "Barometer Service",
	"f000aa5004514000b000000000000000": "Gyroscope Service",
	"f000aa8004514000b000000000000000": "Haptic Service",
}

var characteristics = map[string]string{
	"2a19": "Battery Level",
	"2a24": "Model Number String",
	"2a25": "Serial Number String",
	"2a26": "Firmware Revision String",
	"2a27": "Hardware Revision String",
	"2a28": "Software Revision String",
	"2a29": "Manufacturer Name String",
	"ffe1": "Simple Keys Data",

	"f000aa0104514000b000000000000000": "IR Temperature Data",
	"f000aa0204514000b000000000000000": "IR Temperature Config",
	"f000aa0304514000b000000000000000": "IR Temperature Period",
	"f000aa1104514000b000000000000000": "Accelerometer Data",
	"f000aa1204514000b000000000000000": "Accelerometer Config",
	"f000aa1304514000b000000000000000": "Accelerometer Period",
	"f000aa4104514000b000000000000000": "Barometer Data",
	"f000aa4204514000b000000000000000": "Barometer Config",
	"f000aa4304514000b000000000000000": "Barometer Calibration",
	"f000aa4404514000b000000000000000": "Barometer Period",
	"f000aa5104514000b000000000000000": "Gyroscope Data",
	"f000aa5204514000b000000000000000": "Gyroscope Config",
	"f000aa5304514000b000000000000000": "Gyroscope Period",
	"f000aa8104514000b000000000000000": "Haptic Data",
}

var descriptors = map[string]string{
	"2901": "Characteristic User Description",
	"2902": "Client Characteristic Configuration",
}
