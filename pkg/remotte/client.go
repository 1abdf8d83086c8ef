// Package remotte is the public entry point: a Client drives one
// Remotte or SensorTag peripheral and fans its events out to subscribers.
package remotte

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/srg/remotte/internal/device"
	goble "github.com/srg/remotte/internal/device/go-ble"
	"github.com/srg/remotte/internal/notify"
	"github.com/srg/remotte/internal/sensor"
	"github.com/srg/remotte/internal/session"
	"github.com/srg/remotte/pkg/config"
)

type (
	Event         = session.Event
	State         = session.State
	Configuration = sensor.SensorConfiguration
)

const (
	EventConnection = session.EventConnection
	EventReading    = session.EventReading
)

// ErrConnectionFailed is returned by ConnectAndWait when the link drops before it is usable.
var ErrConnectionFailed = errors.New("connection failed")

// Client owns a session and its notification channel.
type Client struct {
	logger          *logrus.Logger
	events          *notify.Channel[Event]
	session         *session.Session
	cancel          context.CancelFunc
	teardownTimeout time.Duration
}

// New creates a client on the platform BLE stack.
func New(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	transport := goble.New(logger, &goble.Options{ConnectTimeout: cfg.ConnectTimeout})
	return NewWithTransport(transport, cfg, logger)
}

// NewWithTransport creates a client on an arbitrary transport.
func NewWithTransport(transport device.Transport, cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = cfg.NewLogger()
	}

	// Readings may be overwritten under backpressure; connection changes never are.
	events, err := notify.New[Event]("remotte-events", cfg.EventBuffer, logger,
		notify.Lossless(func(e Event) bool { return e.Kind == session.EventConnection }))
	if err != nil {
		return nil, fmt.Errorf("failed to create event channel: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := events.Start(ctx); err != nil {
		cancel()
		return nil, err
	}

	c := &Client{
		logger:          logger,
		events:          events,
		cancel:          cancel,
		teardownTimeout: cfg.ConnectTimeout,
	}
	c.session = session.New(transport, events, logger, &session.Options{Variant: cfg.Sensors.Variant})
	return c, nil
}

// Connect starts connecting to address; progress arrives as events.
func (c *Client) Connect(address string) error {
	return c.session.Connect(address)
}

// Disconnect disables the configured sensors and tears the link down.
func (c *Client) Disconnect(address string) error {
	return c.session.Disconnect(address)
}

// Configure sets the sensors to enable on the current or next link.
func (c *Client) Configure(cfg Configuration) error {
	return c.session.Configure(cfg)
}

// ReadAttribute requests attr; the value arrives as an AttributeReading event.
func (c *Client) ReadAttribute(attr sensor.Attribute) error {
	return c.session.ReadAttribute(attr)
}

// EnableHaptic drives the vibrator and buzzer (Remotte only).
func (c *Client) EnableHaptic(vibrator, buzzer bool) error {
	return c.session.EnableHaptic(vibrator, buzzer)
}

// State returns the session lifecycle state.
func (c *Client) State() State {
	return c.session.State()
}

// Subscribe registers fn for every event. fn runs on the dispatcher goroutine.
func (c *Client) Subscribe(fn func(Event)) (cancel func()) {
	return c.events.Subscribe(fn)
}

// Metrics returns the event channel counters.
func (c *Client) Metrics() notify.Snapshot {
	return c.events.Metrics()
}

// Expect starts watching for the first event matching pred. Call it before
// triggering the event, then wait. cancel releases the watch without waiting.
func (c *Client) Expect(pred func(Event) bool) (wait func(ctx context.Context) (Event, error), cancel func()) {
	matched := make(chan Event, 1)
	unsubscribe := c.events.Subscribe(func(e Event) {
		if pred(e) {
			select {
			case matched <- e:
			default:
			}
		}
	})

	wait = func(ctx context.Context) (Event, error) {
		defer unsubscribe()
		select {
		case e := <-matched:
			return e, nil
		case <-ctx.Done():
			return Event{}, ctx.Err()
		}
	}
	return wait, unsubscribe
}

// WaitFor blocks until an event matching pred is published after the call.
func (c *Client) WaitFor(ctx context.Context, pred func(Event) bool) (Event, error) {
	wait, _ := c.Expect(pred)
	return wait(ctx)
}

func isLinkOutcome(e Event) bool {
	return e.IsConnection(sensor.Connected) || e.IsConnection(sensor.Disconnected)
}

// ConnectAndWait connects and blocks until services are discovered.
// If ctx ends first, the attempt is abandoned: a half-open link is torn
// down before ctx's error is returned.
func (c *Client) ConnectAndWait(ctx context.Context, address string) error {
	wait, cancel := c.Expect(isLinkOutcome)
	defer cancel()
	if err := c.Connect(address); err != nil {
		return err
	}
	e, err := wait(ctx)
	if err != nil {
		c.abandon(address)
		return err
	}
	if !e.IsConnection(sensor.Connected) {
		return fmt.Errorf("%w: %s", ErrConnectionFailed, address)
	}
	return nil
}

func (c *Client) abandon(address string) {
	wait, cancel := c.Expect(func(e Event) bool { return e.IsConnection(sensor.Disconnected) })
	defer cancel()

	started, err := c.session.Abort(address)
	if err != nil || !started {
		return
	}
	ctx, cancelCtx := context.WithTimeout(context.Background(), c.teardownTimeout)
	defer cancelCtx()
	if _, err := wait(ctx); err != nil {
		c.logger.WithFields(logrus.Fields{
			"address": address,
			"timeout": c.teardownTimeout,
		}).Warn("Abandoned connection did not close in time")
	}
}

// DisconnectAndWait disconnects and blocks until the link is gone.
func (c *Client) DisconnectAndWait(ctx context.Context, address string) error {
	wait, cancel := c.Expect(func(e Event) bool { return e.IsConnection(sensor.Disconnected) })
	defer cancel()
	if err := c.Disconnect(address); err != nil {
		return err
	}
	_, err := wait(ctx)
	return err
}

// ReadAttributeAndWait reads attr and returns its value.
func (c *Client) ReadAttributeAndWait(ctx context.Context, attr sensor.Attribute) (sensor.AttributeReading, error) {
	wait, cancel := c.Expect(func(e Event) bool {
		r, ok := e.Reading.(sensor.AttributeReading)
		return ok && r.Attribute == attr
	})
	defer cancel()
	if err := c.ReadAttribute(attr); err != nil {
		return sensor.AttributeReading{}, err
	}
	e, err := wait(ctx)
	if err != nil {
		return sensor.AttributeReading{}, err
	}
	return e.Reading.(sensor.AttributeReading), nil
}

// Close stops the session and flushes pending events to subscribers.
func (c *Client) Close(timeout time.Duration) error {
	serr := c.session.Close(timeout)
	cerr := c.events.Stop(timeout)
	c.cancel()
	return errors.Join(serr, cerr)
}
