package session

import (
	"errors"
	"fmt"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/srg/remotte/internal/capability"
	"github.com/srg/remotte/internal/device"
	"github.com/srg/remotte/internal/sensor"
	"github.com/srg/remotte/internal/sequencer"
)

func (s *Session) onConnect(address string) {
	if st := s.State(); st != Idle {
		s.log().Warn("Connect ignored: session is not idle")
		return
	}

	s.link = newLink(address, s.Variant())
	s.setState(Connecting)
	s.emitConnection(sensor.Connecting)
	s.log().Info("Connecting to peripheral")

	if err := s.transport.Connect(address); err != nil {
		s.log().WithField("error", err).Error("Connect request failed")
		s.linkDown()
	}
}

func (s *Session) onLinkState(state device.LinkState) {
	switch state {
	case device.LinkConnected:
		if s.State() != Connecting || s.link == nil {
			s.log().Debug("Ignoring unexpected link-up")
			return
		}
		s.setState(ServicesDiscovering)
		s.log().Info("Link established, discovering services")
		if err := s.transport.DiscoverServices(); err != nil {
			s.log().WithField("error", err).Error("Service discovery request failed")
			s.requestTeardown()
		}

	case device.LinkDisconnected:
		if s.State() == Idle {
			return
		}
		if s.State() != Disconnecting {
			s.log().Warn("Link lost unexpectedly")
		}
		s.linkDown()

	default:
		s.log().WithField("link_state", state.String()).Debug("Link state update")
	}
}

func (s *Session) onServicesDiscovered(services []ble.UUID) {
	if s.State() != ServicesDiscovering || s.link == nil {
		s.log().Debug("Ignoring unexpected service discovery result")
		return
	}
	if len(services) == 0 {
		s.log().Error("Service discovery returned no services")
		return
	}

	for _, svc := range services {
		s.link.services.Add(device.UUIDKey(svc))
	}
	s.log().WithField("services", s.link.services.Cardinality()).Debug("Services discovered")

	s.seq.Attach()
	s.setState(Configuring)
	s.emitConnection(sensor.Connected)

	if s.config != nil {
		s.applyConfiguration()
	}
	s.checkDrained()
}

func (s *Session) onConfigure(cfg sensor.SensorConfiguration) error {
	if s.link != nil && (s.link.configured || s.State() == Disconnecting) {
		s.log().Warn("Configuration rejected: already applied to this link")
		return fmt.Errorf("%w: session is %s", ErrAlreadyConfigured, s.State())
	}

	s.config = &cfg
	s.variant.Store(int32(cfg.Variant))
	if s.link != nil {
		s.link.setVariant(cfg.Variant)
	}

	if s.State() == Configuring {
		s.applyConfiguration()
		s.checkDrained()
	}
	return nil
}

// applyConfiguration submits the configuration commands for sensors whose service was discovered.
func (s *Session) applyConfiguration() {
	l := s.link
	cfg := *s.config
	l.configured = true

	for _, k := range cfg.EnabledKinds() {
		p, err := l.table.Sensor(k)
		if err != nil {
			continue
		}
		if !l.hasService(p.Service) {
			s.log().WithFields(logrus.Fields{
				"sensor":       k.String(),
				"service_uuid": device.UUIDKey(p.Service),
			}).Error("Sensor service not found on peripheral, skipping")
			continue
		}
		l.active = append(l.active, k)
	}

	cmds := configureCommands(l.table, cfg, l.active)
	s.log().WithFields(logrus.Fields{
		"sensors":  len(l.active),
		"commands": len(cmds),
	}).Info("Configuring sensors")

	for _, cmd := range cmds {
		s.seq.Submit(cmd)
	}
}

func (s *Session) onDisconnect(address string) {
	st := s.State()
	if st == Idle || s.link == nil {
		s.logger.Debug("Disconnect ignored: no active link")
		return
	}
	if st == Disconnecting {
		s.log().Debug("Disconnect already in progress")
		return
	}
	if address != s.link.address {
		s.log().WithField("requested", address).Warn("Disconnect ignored: address does not match the active link")
		return
	}

	s.setState(Disconnecting)
	s.emitConnection(sensor.Disconnecting)
	s.log().Info("Disconnecting from peripheral")

	if st.linked() && s.link.configured {
		for _, cmd := range teardownCommands(s.link.table, *s.config, s.link.active) {
			s.seq.Submit(cmd)
		}
	}
	s.seq.Seal()
	s.checkDrained()
}

func (s *Session) onAbort(address string) bool {
	if s.State() == Idle || s.link == nil {
		return false
	}
	s.onDisconnect(address)
	return s.link == nil || s.State() == Disconnecting
}

func (s *Session) onReadAttribute(attr sensor.Attribute) {
	if s.link == nil || !s.State().linked() {
		s.log().WithField("attribute", attr.String()).Debug("Attribute read dropped: link not ready")
		return
	}
	p, err := s.link.table.Attribute(attr)
	if err != nil {
		s.log().WithField("error", err).Warn("Attribute read dropped")
		return
	}
	s.seq.Submit(sequencer.ReadCharacteristic(p.Service, p.Characteristic))
}

func (s *Session) onHaptic(vibrator, buzzer bool) {
	if s.link == nil || !s.State().linked() {
		s.log().Debug("Haptic request dropped: link not ready")
		return
	}
	svc, char, ok := s.link.table.Haptic()
	if !ok {
		s.log().WithField("variant", s.link.table.Variant().String()).Debug("Haptic request ignored: not supported by variant")
		return
	}
	payload, ok := capability.HapticPayload(vibrator, buzzer)
	if !ok {
		return
	}
	s.seq.Submit(sequencer.WriteCharacteristic(svc, char, payload))
}

func (s *Session) onCharacteristicRead(msg characteristicRead) {
	if s.link == nil {
		return
	}
	if !s.complete(msg.gen, msg.char, msg.err == nil) {
		return
	}
	fields := logrus.Fields{"char_uuid": device.UUIDKey(msg.char)}

	switch {
	case msg.err != nil:
		s.log().WithFields(fields).WithField("error", msg.err).Warn("Characteristic read failed")

	case s.link.table.IsCalibration(msg.char):
		if err := s.link.decoder.Altimeter().Calibrate(msg.value); err != nil {
			s.log().WithFields(fields).WithField("error", err).Warn("Ignoring malformed altimeter calibration")
		} else {
			s.log().Debug("Altimeter calibrated")
		}
		if cmd, ok := altimeterEnableCommand(s.link.table); ok {
			s.seq.Submit(cmd)
		}

	default:
		attr, err := s.link.table.AttributeFor(msg.char)
		if err != nil {
			s.log().WithFields(fields).WithField("error", err).Warn("Unexpected read completion")
			break
		}
		s.emitReading(sensor.AttributeReading{Attribute: attr, Value: msg.value})
	}

	s.checkDrained()
}

func (s *Session) onWriteComplete(target string, gen uint64, char ble.UUID, err error) {
	if s.link == nil {
		return
	}
	if !s.complete(gen, char, err == nil) {
		return
	}
	if err != nil {
		s.log().WithFields(logrus.Fields{
			"char_uuid": device.UUIDKey(char),
			"target":    target,
			"error":     err,
		}).Warn("Write failed")
	}
	s.checkDrained()
}

func (s *Session) onCharacteristicChanged(char ble.UUID, value []byte) {
	if s.link == nil {
		return
	}
	kind, ok := s.link.table.SensorFor(char)
	if !ok {
		s.log().WithField("char_uuid", device.UUIDKey(char)).Debug("Notification from unknown characteristic")
		return
	}
	reading, err := s.link.decoder.Decode(kind, value)
	if err != nil {
		s.log().WithFields(logrus.Fields{
			"sensor": kind.String(),
			"error":  err,
		}).Warn("Dropping undecodable sample")
		return
	}
	s.emitReading(reading)
}

// complete retires the in-flight command. It reports false for a completion
// that belongs to no outstanding command, such as a late answer from a previous link.
func (s *Session) complete(gen uint64, char ble.UUID, success bool) bool {
	if _, ok := s.seq.Complete(gen, char, success); !ok {
		s.log().WithField("char_uuid", device.UUIDKey(char)).Debug("Completion without an outstanding command")
		return false
	}
	return true
}

// checkDrained advances the state machine when the command queue empties.
func (s *Session) checkDrained() {
	if s.link == nil || !s.seq.Idle() {
		return
	}
	switch s.State() {
	case Configuring:
		if s.link.configured {
			s.setState(Streaming)
			s.log().Info("Sensors configured, streaming")
		}
	case Disconnecting:
		s.requestTeardown()
	}
}

func (s *Session) requestTeardown() {
	if s.link == nil || s.link.teardown {
		return
	}
	s.link.teardown = true
	if err := s.transport.Disconnect(); err != nil {
		if !errors.Is(err, device.ErrNotConnected) {
			s.log().WithField("error", err).Error("Disconnect request failed")
		}
		s.linkDown()
	}
}

// linkDown discards all link-scoped state and reports Disconnected.
func (s *Session) linkDown() {
	s.seq.Reset()
	s.setState(Idle)
	s.emitConnection(sensor.Disconnected)
	s.log().Info("Disconnected")
	s.link = nil
}
