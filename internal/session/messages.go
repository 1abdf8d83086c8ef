package session

import (
	"github.com/go-ble/ble"

	"github.com/srg/remotte/internal/device"
	"github.com/srg/remotte/internal/sensor"
)

// Caller requests and transport callbacks share one inbox so the loop
// goroutine is the only writer of session state.

type message interface{}

type connectRequest struct{ address string }

type disconnectRequest struct{ address string }

type abortRequest struct {
	address string
	reply   chan bool
}

type configureRequest struct {
	cfg   sensor.SensorConfiguration
	reply chan error
}

type readRequest struct{ attribute sensor.Attribute }

type hapticRequest struct{ vibrator, buzzer bool }

type linkStateChanged struct{ state device.LinkState }

type servicesDiscovered struct{ services []ble.UUID }

// Completions carry the sequencer generation current when the transport
// reported them, so a late answer from a previous link is not mistaken
// for one on the current link.

type characteristicRead struct {
	gen   uint64
	char  ble.UUID
	value []byte
	err   error
}

type characteristicWritten struct {
	gen  uint64
	char ble.UUID
	err  error
}

type descriptorWritten struct {
	gen        uint64
	char, desc ble.UUID
	err        error
}

type characteristicChanged struct {
	char  ble.UUID
	value []byte
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// OnLinkState implements device.Callbacks.
func (s *Session) OnLinkState(state device.LinkState) {
	s.post(linkStateChanged{state: state})
}

// OnServicesDiscovered implements device.Callbacks.
func (s *Session) OnServicesDiscovered(services []ble.UUID) {
	s.post(servicesDiscovered{services: append([]ble.UUID(nil), services...)})
}

// OnCharacteristicRead implements device.Callbacks.
func (s *Session) OnCharacteristicRead(char ble.UUID, value []byte, err error) {
	s.post(characteristicRead{gen: s.seq.Generation(), char: char, value: clone(value), err: err})
}

// OnCharacteristicWrite implements device.Callbacks.
func (s *Session) OnCharacteristicWrite(char ble.UUID, err error) {
	s.post(characteristicWritten{gen: s.seq.Generation(), char: char, err: err})
}

// OnDescriptorWrite implements device.Callbacks.
func (s *Session) OnDescriptorWrite(char, desc ble.UUID, err error) {
	s.post(descriptorWritten{gen: s.seq.Generation(), char: char, desc: desc, err: err})
}

// OnCharacteristicChanged implements device.Callbacks.
func (s *Session) OnCharacteristicChanged(char ble.UUID, value []byte) {
	s.post(characteristicChanged{char: char, value: clone(value)})
}
