package device

import "github.com/go-ble/ble"

// LinkState is the radio link state reported by a Transport.
type LinkState int

const (
	LinkDisconnected LinkState = iota
	LinkConnecting
	LinkConnected
	LinkDisconnecting
)

func (s LinkState) String() string {
	switch s {
	case LinkDisconnected:
		return "disconnected"
	case LinkConnecting:
		return "connecting"
	case LinkConnected:
		return "connected"
	case LinkDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// Callbacks receives asynchronous transport events.
// Implementations must not block; completions for commands arrive in issue order.
type Callbacks interface {
	OnLinkState(state LinkState)
	OnServicesDiscovered(services []ble.UUID)
	OnCharacteristicRead(char ble.UUID, value []byte, err error)
	OnCharacteristicWrite(char ble.UUID, err error)
	OnDescriptorWrite(char, desc ble.UUID, err error)
	OnCharacteristicChanged(char ble.UUID, value []byte)
}

// Transport is the asynchronous GATT link used by a session.
//
// Request methods return an error only when the request could not be dispatched;
// the outcome of a dispatched request is reported through Callbacks.
type Transport interface {
	// Available reports whether the radio exists and is enabled.
	Available() error
	SetCallbacks(cb Callbacks)

	Connect(address string) error
	Disconnect() error
	DiscoverServices() error

	ReadCharacteristic(service, char ble.UUID) error
	WriteCharacteristic(service, char ble.UUID, value []byte) error
	WriteDescriptor(service, char, desc ble.UUID, value []byte) error
}
