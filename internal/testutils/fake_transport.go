package testutils

import (
	"fmt"
	"sync"

	"github.com/go-ble/ble"

	"github.com/srg/remotte/internal/device"
)

// PendingOp is a GATT request the fake transport has accepted but not completed.
type PendingOp struct {
	Kind       string // "read", "write" or "descriptor"
	Service    ble.UUID
	Char       ble.UUID
	Descriptor ble.UUID
	Value      []byte
}

// FakeTransport is an in-memory device.Transport. It records every request
// as a readable line and lets tests drive the callbacks.
//
// With AutoLink set, Connect and Disconnect report link changes on their own.
// With AutoComplete set, every GATT request completes successfully, reads
// answering from ReadValues.
type FakeTransport struct {
	AvailableErr  error
	ConnectErr    error
	DisconnectErr error
	DiscoverErr   error

	AutoLink     bool
	AutoComplete bool
	Services     []ble.UUID
	ReadValues   map[string][]byte // keyed by device.UUIDKey

	mu      sync.Mutex
	cb      device.Callbacks
	ops     []string
	pending []PendingOp
}

// NewFakeTransport returns a manual fake: nothing completes until the test says so.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{ReadValues: make(map[string][]byte)}
}

// NewAutoTransport returns a fake that connects, discovers services and completes commands by itself.
func NewAutoTransport(services ...ble.UUID) *FakeTransport {
	f := NewFakeTransport()
	f.AutoLink = true
	f.AutoComplete = true
	f.Services = services
	return f
}

func (f *FakeTransport) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, op)
}

func (f *FakeTransport) callbacks() device.Callbacks {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cb
}

// Ops returns every request recorded so far.
func (f *FakeTransport) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

// ClearOps forgets recorded requests.
func (f *FakeTransport) ClearOps() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = nil
}

// Pending returns the number of uncompleted GATT requests.
func (f *FakeTransport) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// Available implements device.Transport.
func (f *FakeTransport) Available() error {
	return f.AvailableErr
}

// SetCallbacks implements device.Transport.
func (f *FakeTransport) SetCallbacks(cb device.Callbacks) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cb = cb
}

// Connect implements device.Transport.
func (f *FakeTransport) Connect(address string) error {
	f.record("connect " + address)
	if f.ConnectErr != nil {
		return f.ConnectErr
	}
	if f.AutoLink {
		go f.LinkUp()
	}
	return nil
}

// Disconnect implements device.Transport.
func (f *FakeTransport) Disconnect() error {
	f.record("disconnect")
	if f.DisconnectErr != nil {
		return f.DisconnectErr
	}
	if f.AutoLink {
		go f.LinkDown()
	}
	return nil
}

// DiscoverServices implements device.Transport.
func (f *FakeTransport) DiscoverServices() error {
	f.record("discover")
	if f.DiscoverErr != nil {
		return f.DiscoverErr
	}
	if f.AutoLink {
		go f.Discovered(f.Services...)
	}
	return nil
}

// ReadCharacteristic implements device.Transport.
func (f *FakeTransport) ReadCharacteristic(service, char ble.UUID) error {
	f.record("read " + device.DisplayName(char))
	f.accept(PendingOp{Kind: "read", Service: service, Char: char})
	return nil
}

// WriteCharacteristic implements device.Transport.
func (f *FakeTransport) WriteCharacteristic(service, char ble.UUID, value []byte) error {
	f.record(fmt.Sprintf("write %s % x", device.DisplayName(char), value))
	f.accept(PendingOp{Kind: "write", Service: service, Char: char, Value: value})
	return nil
}

// WriteDescriptor implements device.Transport.
func (f *FakeTransport) WriteDescriptor(service, char, desc ble.UUID, value []byte) error {
	f.record(fmt.Sprintf("write %s/%s % x", device.DisplayName(char), device.DisplayName(desc), value))
	f.accept(PendingOp{Kind: "descriptor", Service: service, Char: char, Descriptor: desc, Value: value})
	return nil
}

func (f *FakeTransport) accept(op PendingOp) {
	f.mu.Lock()
	f.pending = append(f.pending, op)
	f.mu.Unlock()

	if f.AutoComplete {
		go f.CompleteNext(nil)
	}
}

// LinkUp reports an established link.
func (f *FakeTransport) LinkUp() {
	if cb := f.callbacks(); cb != nil {
		cb.OnLinkState(device.LinkConnected)
	}
}

// LinkDown reports a lost link and forgets pending requests.
func (f *FakeTransport) LinkDown() {
	f.mu.Lock()
	f.pending = nil
	f.mu.Unlock()
	if cb := f.callbacks(); cb != nil {
		cb.OnLinkState(device.LinkDisconnected)
	}
}

// Discovered reports the discovered services.
func (f *FakeTransport) Discovered(services ...ble.UUID) {
	if cb := f.callbacks(); cb != nil {
		cb.OnServicesDiscovered(services)
	}
}

// Notify delivers an unsolicited notification.
func (f *FakeTransport) Notify(char ble.UUID, value []byte) {
	if cb := f.callbacks(); cb != nil {
		cb.OnCharacteristicChanged(char, value)
	}
}

// CompleteNext completes the oldest pending request with err. Reads answer
// from ReadValues. It returns false when nothing is pending.
func (f *FakeTransport) CompleteNext(err error) bool {
	f.mu.Lock()
	if len(f.pending) == 0 {
		f.mu.Unlock()
		return false
	}
	op := f.pending[0]
	f.pending = f.pending[1:]
	f.mu.Unlock()

	f.Answer(op, err)
	return true
}

// TakePending removes every pending request without completing it.
// Answer delivers their completions later.
func (f *FakeTransport) TakePending() []PendingOp {
	f.mu.Lock()
	defer f.mu.Unlock()
	ops := f.pending
	f.pending = nil
	return ops
}

// Answer reports the completion of op with err, whether or not it is still pending.
func (f *FakeTransport) Answer(op PendingOp, err error) {
	f.mu.Lock()
	value := f.ReadValues[device.UUIDKey(op.Char)]
	cb := f.cb
	f.mu.Unlock()

	if cb == nil {
		return
	}
	switch op.Kind {
	case "read":
		if err != nil {
			value = nil
		}
		cb.OnCharacteristicRead(op.Char, value, err)
	case "write":
		cb.OnCharacteristicWrite(op.Char, err)
	case "descriptor":
		cb.OnDescriptorWrite(op.Char, op.Descriptor, err)
	}
}

// SetReadValue sets the value returned when char is read.
func (f *FakeTransport) SetReadValue(char ble.UUID, value []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ReadValues[device.UUIDKey(char)] = value
}
