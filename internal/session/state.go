package session

import (
	"fmt"
	"time"

	"github.com/srg/remotte/internal/sensor"
)

// State is the session lifecycle state.
type State int32

const (
	Idle State = iota
	Connecting
	ServicesDiscovering
	Configuring
	Streaming
	Disconnecting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case ServicesDiscovering:
		return "services_discovering"
	case Configuring:
		return "configuring"
	case Streaming:
		return "streaming"
	case Disconnecting:
		return "disconnecting"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// linked reports whether the link can carry GATT commands in s.
func (s State) linked() bool {
	return s == Configuring || s == Streaming
}

// EventKind discriminates Event payloads.
type EventKind int

const (
	EventConnection EventKind = iota
	EventReading
)

// Event is one entry of the client notification stream.
type Event struct {
	Seq    uint64
	TsUs   int64
	LinkID string
	Kind   EventKind

	Connection sensor.ConnectionEvent // EventConnection
	Reading    sensor.Reading         // EventReading
}

// Time returns the event timestamp.
func (e Event) Time() time.Time {
	return time.UnixMicro(e.TsUs)
}

// IsConnection reports whether e is the given connection event.
func (e Event) IsConnection(c sensor.ConnectionEvent) bool {
	return e.Kind == EventConnection && e.Connection == c
}

func (e Event) String() string {
	if e.Kind == EventConnection {
		return e.Connection.String()
	}
	if s, ok := e.Reading.(fmt.Stringer); ok {
		return fmt.Sprintf("%s: %s", e.Reading.Source(), s)
	}
	return e.Reading.Source()
}

// Publisher receives session events. notify.Channel satisfies it.
type Publisher interface {
	Publish(Event)
}
