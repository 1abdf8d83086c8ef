// Package sequencer serializes GATT commands: strict FIFO order with at
// most one command outstanding on the link at any time.
package sequencer

import (
	"sync"
	"sync/atomic"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/srg/remotte/internal/device"
)

// Issuer hands a command to the transport. A returned error means the
// command was not dispatched and no completion will follow.
type Issuer interface {
	Issue(cmd Command) error
}

// IssuerFunc adapts a function to Issuer.
type IssuerFunc func(cmd Command) error

// Issue implements Issuer.
func (f IssuerFunc) Issue(cmd Command) error { return f(cmd) }

// Metrics counts sequencer activity. All counters are cumulative.
type Metrics struct {
	Issued    atomic.Uint64
	Completed atomic.Uint64
	Failed    atomic.Uint64
	Rejected  atomic.Uint64
	Dropped   atomic.Uint64
	Stale     atomic.Uint64 // completions that did not match the in-flight command
}

// Snapshot is a point-in-time copy of Metrics.
type Snapshot struct {
	Issued, Completed, Failed, Rejected, Dropped, Stale uint64
}

// Sequencer is the single-flight command queue of one session.
type Sequencer struct {
	issuer Issuer
	logger *logrus.Logger

	mu       sync.Mutex
	pending  []Command
	inFlight *Command
	attached bool
	sealed   bool
	gen      uint64

	metrics Metrics
}

// New creates a detached sequencer. Commands are accepted only after Attach.
func New(issuer Issuer, logger *logrus.Logger) *Sequencer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Sequencer{issuer: issuer, logger: logger}
}

// Attach marks a new link as ready to carry commands and returns its generation.
func (s *Sequencer) Attach() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.attached = true
	s.sealed = false
	return s.gen
}

// Generation returns the generation of the most recently attached link.
func (s *Sequencer) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Seal stops accepting new commands. Already queued commands still drain.
func (s *Sequencer) Seal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sealed = true
}

// Reset detaches the sequencer and discards the queue and any in-flight command.
func (s *Sequencer) Reset() {
	s.mu.Lock()
	discarded := len(s.pending)
	s.pending = nil
	s.inFlight = nil
	s.attached = false
	s.sealed = false
	s.mu.Unlock()

	if discarded > 0 {
		s.metrics.Dropped.Add(uint64(discarded))
		s.logger.WithField("discarded", discarded).Debug("Command queue discarded")
	}
}

// Submit appends cmd to the queue and issues it when the link is free.
// Without an attached link, or after Seal, the command is dropped.
func (s *Sequencer) Submit(cmd Command) {
	s.mu.Lock()
	if attached, sealed := s.attached, s.sealed; !attached || sealed {
		s.mu.Unlock()
		s.metrics.Dropped.Add(1)
		s.logger.WithFields(logrus.Fields{
			"command":  cmd.String(),
			"attached": attached,
			"sealed":   sealed,
		}).Debug("Command dropped: link not accepting commands")
		return
	}
	cmd.Gen = s.gen
	s.pending = append(s.pending, cmd)
	s.mu.Unlock()

	s.pump()
}

// Complete records the outcome of the in-flight command and issues the next one.
// gen and char identify the command the completion reports on; a completion
// that does not match the in-flight command is counted as stale and ignored.
// It returns the command that was in flight, if any.
func (s *Sequencer) Complete(gen uint64, char ble.UUID, success bool) (Command, bool) {
	s.mu.Lock()
	done := s.inFlight
	if gen != s.gen || (done != nil && !device.SameUUID(done.Characteristic, char)) {
		s.mu.Unlock()
		s.metrics.Stale.Add(1)
		s.logger.WithFields(logrus.Fields{
			"generation": gen,
			"char_uuid":  device.UUIDKey(char),
		}).Debug("Ignoring completion for a command that is not in flight")
		return Command{}, false
	}
	s.inFlight = nil
	s.mu.Unlock()

	if done == nil {
		s.logger.Debug("Completion received with no command in flight")
		s.pump()
		return Command{}, false
	}

	if success {
		s.metrics.Completed.Add(1)
	} else {
		s.metrics.Failed.Add(1)
		s.logger.WithField("command", done.String()).Warn("Command failed")
	}

	s.pump()
	return *done, true
}

// pump issues queued commands until one is accepted by the transport or the queue is empty.
func (s *Sequencer) pump() {
	for {
		s.mu.Lock()
		if s.inFlight != nil || len(s.pending) == 0 {
			s.mu.Unlock()
			return
		}
		cmd := s.pending[0]
		s.pending = s.pending[1:]
		s.inFlight = &cmd
		s.mu.Unlock()

		err := s.issuer.Issue(cmd)
		if err == nil {
			s.metrics.Issued.Add(1)
			s.logger.WithField("command", cmd.String()).Debug("Command issued")
			return
		}

		s.metrics.Rejected.Add(1)
		s.logger.WithFields(logrus.Fields{
			"command": cmd.String(),
			"error":   err,
		}).Warn("Transport rejected command")

		s.mu.Lock()
		if s.inFlight == &cmd {
			s.inFlight = nil
		}
		s.mu.Unlock()
	}
}

// Idle reports whether nothing is queued or in flight.
func (s *Sequencer) Idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight == nil && len(s.pending) == 0
}

// Pending returns the number of queued commands, excluding the in-flight one.
func (s *Sequencer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// InFlight returns the outstanding command.
func (s *Sequencer) InFlight() (Command, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight == nil {
		return Command{}, false
	}
	return *s.inFlight, true
}

// Attached reports whether the sequencer accepts commands.
func (s *Sequencer) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached && !s.sealed
}

// Metrics returns a snapshot of the counters.
func (s *Sequencer) Metrics() Snapshot {
	return Snapshot{
		Issued:    s.metrics.Issued.Load(),
		Completed: s.metrics.Completed.Load(),
		Failed:    s.metrics.Failed.Load(),
		Rejected:  s.metrics.Rejected.Load(),
		Dropped:   s.metrics.Dropped.Load(),
		Stale:     s.metrics.Stale.Load(),
	}
}
