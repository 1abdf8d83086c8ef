package sequencer

import (
	"fmt"

	"github.com/go-ble/ble"

	"github.com/srg/remotte/internal/device"
)

// Operation is the GATT operation a command performs.
type Operation int

const (
	OpRead Operation = iota
	OpWrite
)

func (o Operation) String() string {
	if o == OpRead {
		return "read"
	}
	return "write"
}

// Target is the kind of attribute a command addresses.
type Target int

const (
	TargetCharacteristic Target = iota
	TargetDescriptor
)

func (t Target) String() string {
	if t == TargetDescriptor {
		return "descriptor"
	}
	return "characteristic"
}

// Command is one pending GATT operation.
type Command struct {
	Op             Operation
	Target         Target
	Service        ble.UUID
	Characteristic ble.UUID
	Descriptor     ble.UUID // set for TargetDescriptor
	Payload        []byte   // set for OpWrite
	Gen            uint64   // link generation, stamped by Submit
}

// ReadCharacteristic builds a characteristic read.
func ReadCharacteristic(service, char ble.UUID) Command {
	return Command{Op: OpRead, Target: TargetCharacteristic, Service: service, Characteristic: char}
}

// WriteCharacteristic builds a characteristic write.
func WriteCharacteristic(service, char ble.UUID, payload []byte) Command {
	return Command{Op: OpWrite, Target: TargetCharacteristic, Service: service, Characteristic: char, Payload: payload}
}

// WriteDescriptor builds a descriptor write on char.
func WriteDescriptor(service, char, desc ble.UUID, payload []byte) Command {
	return Command{Op: OpWrite, Target: TargetDescriptor, Service: service, Characteristic: char, Descriptor: desc, Payload: payload}
}

func (c Command) String() string {
	s := fmt.Sprintf("%s %s %s", c.Op, c.Target, device.DisplayName(c.Characteristic))
	if c.Target == TargetDescriptor {
		s += "/" + device.DisplayName(c.Descriptor)
	}
	if c.Op == OpWrite {
		s += fmt.Sprintf(" % x", c.Payload)
	}
	return s
}

// Dispatch sends cmd to the transport.
func Dispatch(t device.Transport, cmd Command) error {
	switch {
	case cmd.Target == TargetCharacteristic && cmd.Op == OpRead:
		return t.ReadCharacteristic(cmd.Service, cmd.Characteristic)
	case cmd.Target == TargetCharacteristic && cmd.Op == OpWrite:
		return t.WriteCharacteristic(cmd.Service, cmd.Characteristic, cmd.Payload)
	case cmd.Target == TargetDescriptor && cmd.Op == OpWrite:
		return t.WriteDescriptor(cmd.Service, cmd.Characteristic, cmd.Descriptor, cmd.Payload)
	default:
		return fmt.Errorf("%w: %s %s", device.ErrUnsupported, cmd.Op, cmd.Target)
	}
}

// TransportIssuer adapts a device.Transport to an Issuer.
type TransportIssuer struct {
	Transport device.Transport
}

// Issue implements Issuer.
func (i TransportIssuer) Issue(cmd Command) error {
	return Dispatch(i.Transport, cmd)
}
