// Package session drives one peripheral link: connect, discover,
// configure sensors, stream readings and tear down.
//
// A single loop goroutine owns all session state. Caller requests and
// transport callbacks are turned into messages on one inbox, so nothing
// besides the command queue is touched concurrently.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"

	"github.com/srg/remotte/internal/capability"
	"github.com/srg/remotte/internal/device"
	"github.com/srg/remotte/internal/groutine"
	"github.com/srg/remotte/internal/sensor"
	"github.com/srg/remotte/internal/sequencer"
)

var (
	// ErrClosed is returned by requests made after Close.
	ErrClosed = errors.New("session closed")
	// ErrAlreadyConfigured is returned when a configuration has already been applied to the link.
	ErrAlreadyConfigured = errors.New("sensor configuration already applied")
)

// Options tunes a Session.
type Options struct {
	// InboxSize bounds the number of pending requests and callbacks.
	InboxSize int `default:"256"`
	// Variant is used until a configuration names one.
	Variant sensor.Variant
}

// Session is the state machine for one peripheral link at a time.
type Session struct {
	transport device.Transport
	publisher Publisher
	logger    *logrus.Logger
	seq       *sequencer.Sequencer

	inbox  chan message
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	state    atomic.Int32
	variant  atomic.Int32
	eventSeq atomic.Uint64

	// Owned by the loop goroutine.
	config *sensor.SensorConfiguration
	link   *link
}

// New creates a session bound to transport and starts its loop.
// Events are published to publisher; the session registers itself as the transport's callbacks.
func New(transport device.Transport, publisher Publisher, logger *logrus.Logger, opts *Options) *Session {
	if logger == nil {
		logger = logrus.New()
	}
	o := Options{}
	if opts != nil {
		o = *opts
	}
	defaults.SetDefaults(&o)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		transport: transport,
		publisher: publisher,
		logger:    logger,
		inbox:     make(chan message, o.InboxSize),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	s.seq = sequencer.New(sequencer.TransportIssuer{Transport: transport}, logger)
	s.variant.Store(int32(o.Variant))
	s.state.Store(int32(Idle))

	transport.SetCallbacks(s)
	groutine.GoRecover(ctx, "remotte-session", logger, s.onLoopPanic, s.run)
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Variant returns the variant used to interpret the peripheral.
func (s *Session) Variant() sensor.Variant {
	return sensor.Variant(s.variant.Load())
}

// Connect starts connecting to address. The outcome is reported as events.
func (s *Session) Connect(address string) error {
	addr, err := device.ValidateAddress(address)
	if err != nil {
		return err
	}
	if err := s.transport.Available(); err != nil {
		return fmt.Errorf("bluetooth unavailable: %w", err)
	}
	if st := s.State(); st != Idle {
		return fmt.Errorf("%w: session is %s", device.ErrAlreadyConnected, st)
	}
	return s.post(connectRequest{address: addr})
}

// Disconnect disables every configured sensor and then tears the link down.
func (s *Session) Disconnect(address string) error {
	addr, err := device.ValidateAddress(address)
	if err != nil {
		return err
	}
	if s.State() == Idle {
		return device.ErrNotConnected
	}
	return s.post(disconnectRequest{address: addr})
}

// Abort tears down whatever link an earlier Connect to address started, even
// when the connect request is still queued. It reports whether a teardown is
// under way; if so, a Disconnected event follows or has already been emitted.
func (s *Session) Abort(address string) (bool, error) {
	addr, err := device.ValidateAddress(address)
	if err != nil {
		return false, err
	}
	reply := make(chan bool, 1)
	if err := s.post(abortRequest{address: addr, reply: reply}); err != nil {
		return false, err
	}
	select {
	case started := <-reply:
		return started, nil
	case <-s.done:
		return false, ErrClosed
	}
}

// Configure sets the sensor configuration. It is applied as soon as the
// services of the current (or next) link are discovered. Once a
// configuration has been applied to a link, further ones are rejected
// until the link goes down.
func (s *Session) Configure(cfg sensor.SensorConfiguration) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := capability.For(cfg.Variant); err != nil {
		return err
	}
	if st := s.State(); st == Streaming || st == Disconnecting {
		return fmt.Errorf("%w: session is %s", ErrAlreadyConfigured, st)
	}

	reply := make(chan error, 1)
	if err := s.post(configureRequest{cfg: cfg, reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-s.done:
		return ErrClosed
	}
}

// ReadAttribute queues a read of attr; the value arrives as an AttributeReading event.
func (s *Session) ReadAttribute(attr sensor.Attribute) error {
	table, err := capability.For(s.Variant())
	if err != nil {
		return err
	}
	if _, err := table.Attribute(attr); err != nil {
		return err
	}
	if s.State() == Idle {
		return device.ErrNotConnected
	}
	return s.post(readRequest{attribute: attr})
}

// EnableHaptic drives the vibrator and buzzer. Variants without haptics ignore it.
func (s *Session) EnableHaptic(vibrator, buzzer bool) error {
	if s.State() == Idle {
		return device.ErrNotConnected
	}
	return s.post(hapticRequest{vibrator: vibrator, buzzer: buzzer})
}

// Sequencer exposes the command queue metrics.
func (s *Session) Sequencer() sequencer.Snapshot {
	return s.seq.Metrics()
}

// Close stops the loop. The link is not torn down; call Disconnect first.
func (s *Session) Close(timeout time.Duration) error {
	s.cancel()
	select {
	case <-s.done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("%w: session loop did not stop within %v", device.ErrTimeout, timeout)
	}
}

func (s *Session) post(m message) error {
	select {
	case <-s.ctx.Done():
		return ErrClosed
	default:
	}
	select {
	case s.inbox <- m:
		return nil
	case <-s.ctx.Done():
		return ErrClosed
	}
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-s.inbox:
			s.handle(m)
		}
	}
}

// onLoopPanic runs on the loop goroutine after a recovered panic. The
// session is closed, the link dropped and Disconnected reported.
func (s *Session) onLoopPanic(err error) {
	s.cancel()
	s.log().WithField("error", err).Error("Session loop stopped")
	if s.State() == Idle {
		return
	}
	if s.link != nil && !s.link.teardown {
		s.link.teardown = true
		if derr := s.transport.Disconnect(); derr != nil && !errors.Is(derr, device.ErrNotConnected) {
			s.log().WithField("error", derr).Warn("Disconnect after loop failure failed")
		}
	}
	s.linkDown()
}

func (s *Session) handle(m message) {
	switch msg := m.(type) {
	case connectRequest:
		s.onConnect(msg.address)
	case disconnectRequest:
		s.onDisconnect(msg.address)
	case abortRequest:
		msg.reply <- s.onAbort(msg.address)
	case configureRequest:
		msg.reply <- s.onConfigure(msg.cfg)
	case readRequest:
		s.onReadAttribute(msg.attribute)
	case hapticRequest:
		s.onHaptic(msg.vibrator, msg.buzzer)
	case linkStateChanged:
		s.onLinkState(msg.state)
	case servicesDiscovered:
		s.onServicesDiscovered(msg.services)
	case characteristicRead:
		s.onCharacteristicRead(msg)
	case characteristicWritten:
		s.onWriteComplete("characteristic", msg.gen, msg.char, msg.err)
	case descriptorWritten:
		s.onWriteComplete("descriptor", msg.gen, msg.char, msg.err)
	case characteristicChanged:
		s.onCharacteristicChanged(msg.char, msg.value)
	default:
		s.logger.WithField("message", fmt.Sprintf("%T", m)).Error("Unknown session message")
	}
}

func (s *Session) setState(next State) {
	prev := State(s.state.Swap(int32(next)))
	if prev == next {
		return
	}
	s.log().WithFields(logrus.Fields{
		"from": prev.String(),
		"to":   next.String(),
	}).Debug("Session state changed")
}

func (s *Session) emit(e Event) {
	e.Seq = s.eventSeq.Add(1)
	e.TsUs = time.Now().UnixMicro()
	if s.link != nil {
		e.LinkID = s.link.id
	}
	if s.publisher != nil {
		s.publisher.Publish(e)
	}
}

func (s *Session) emitConnection(c sensor.ConnectionEvent) {
	s.emit(Event{Kind: EventConnection, Connection: c})
}

func (s *Session) emitReading(r sensor.Reading) {
	s.emit(Event{Kind: EventReading, Reading: r})
}

// log returns a logger entry carrying the link's correlation fields.
func (s *Session) log() *logrus.Entry {
	fields := logrus.Fields{"state": s.State().String()}
	if s.link != nil {
		fields["link_id"] = s.link.id
		fields["address"] = s.link.address
	}
	return s.logger.WithFields(fields)
}
