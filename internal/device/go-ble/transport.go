// Package goble implements device.Transport on top of the go-ble stack.
//
// go-ble exposes a blocking GATT client. Transport runs every request on its
// own labelled goroutine and reports the outcome through device.Callbacks,
// which is the asynchronous shape the session expects.
package goble

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/go-ble/ble"
	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"

	"github.com/srg/remotte/internal/device"
	"github.com/srg/remotte/internal/groutine"
)

// GATTClient is the subset of ble.Client the transport uses.
type GATTClient interface {
	DiscoverProfile(force bool) (*ble.Profile, error)
	ReadCharacteristic(c *ble.Characteristic) ([]byte, error)
	WriteCharacteristic(c *ble.Characteristic, value []byte, noRsp bool) error
	WriteDescriptor(d *ble.Descriptor, value []byte) error
	Subscribe(c *ble.Characteristic, ind bool, h ble.NotificationHandler) error
	Unsubscribe(c *ble.Characteristic, ind bool) error
	CancelConnection() error
	Disconnected() <-chan struct{}
}

// DeviceFactory creates the platform BLE device (can be overridden in tests).
//
//nolint:revive // DeviceFactory name is intentional for test mocking
var DeviceFactory = newPlatformDevice

// Dial opens a GATT client to address on dev (can be overridden in tests).
var Dial = func(ctx context.Context, dev ble.Device, address string) (GATTClient, error) {
	client, err := dev.Dial(ctx, ble.NewAddr(address))
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Options tunes a Transport.
type Options struct {
	ConnectTimeout time.Duration `default:"30s"`
}

// Transport is a device.Transport backed by go-ble. One link at a time.
type Transport struct {
	logger  *logrus.Logger
	timeout time.Duration

	newDevice func() (ble.Device, error)
	dial      func(ctx context.Context, dev ble.Device, address string) (GATTClient, error)

	mu      sync.Mutex
	dev     ble.Device
	cb      device.Callbacks
	state   device.LinkState
	client  GATTClient
	address string
	cancel  context.CancelFunc

	// characteristics discovered on the current link, keyed by service/char UUID keys
	chars *hashmap.Map[string, *ble.Characteristic]
}

// New returns a disconnected transport.
func New(logger *logrus.Logger, opts *Options) *Transport {
	if logger == nil {
		logger = logrus.New()
	}
	o := Options{}
	if opts != nil {
		o = *opts
	}
	defaults.SetDefaults(&o)

	return &Transport{
		logger:    logger,
		timeout:   o.ConnectTimeout,
		newDevice: DeviceFactory,
		dial:      Dial,
		state:     device.LinkDisconnected,
		chars:     hashmap.New[string, *ble.Characteristic](),
	}
}

func charKey(service, char ble.UUID) string {
	return device.UUIDKey(service) + "/" + device.UUIDKey(char)
}

// adapter returns the platform device, creating it on first use.
func (t *Transport) adapter() (ble.Device, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dev != nil {
		return t.dev, nil
	}
	dev, err := t.newDevice()
	if err != nil {
		return nil, NormalizeError(err)
	}
	ble.SetDefaultDevice(dev)
	t.dev = dev
	return dev, nil
}

func (t *Transport) callbacks() device.Callbacks {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cb == nil {
		return nopCallbacks{}
	}
	return t.cb
}

func (t *Transport) connected() (GATTClient, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil || t.state != device.LinkConnected {
		return nil, device.ErrNotConnected
	}
	return t.client, nil
}

func (t *Transport) lookup(service, char ble.UUID) (*ble.Characteristic, error) {
	t.mu.Lock()
	chars := t.chars
	t.mu.Unlock()

	c, ok := chars.Get(charKey(service, char))
	if !ok {
		return nil, &device.NotFoundError{
			Resource: "characteristic",
			UUIDs:    []string{device.UUIDKey(service), device.UUIDKey(char)},
		}
	}
	return c, nil
}

// Available implements device.Transport.
func (t *Transport) Available() error {
	_, err := t.adapter()
	return err
}

// SetCallbacks implements device.Transport.
func (t *Transport) SetCallbacks(cb device.Callbacks) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cb = cb
}

// Connect implements device.Transport. LinkConnected or LinkDisconnected
// is reported once the dial finishes.
func (t *Transport) Connect(address string) error {
	dev, err := t.adapter()
	if err != nil {
		return err
	}

	t.mu.Lock()
	if t.state != device.LinkDisconnected {
		t.mu.Unlock()
		return device.ErrAlreadyConnected
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.state = device.LinkConnecting
	t.address = address
	t.cancel = cancel
	t.mu.Unlock()

	t.logger.WithFields(logrus.Fields{
		"address": address,
		"timeout": t.timeout,
	}).Info("Connecting to BLE device...")

	groutine.Go(ctx, "ble-dial", func(ctx context.Context) {
		dialCtx, stop := context.WithTimeout(ctx, t.timeout)
		defer stop()

		client, err := t.dial(dialCtx, dev, address)
		if err != nil {
			t.logger.WithFields(logrus.Fields{
				"address": address,
				"error":   NormalizeError(err),
			}).Error("Failed to dial BLE device")
			t.reset(nil)
			t.callbacks().OnLinkState(device.LinkDisconnected)
			return
		}

		t.mu.Lock()
		if t.state != device.LinkConnecting {
			// Disconnect was requested while dialing.
			t.mu.Unlock()
			_ = client.CancelConnection()
			t.reset(nil)
			t.callbacks().OnLinkState(device.LinkDisconnected)
			return
		}
		t.client = client
		t.state = device.LinkConnected
		t.mu.Unlock()

		groutine.Go(ctx, "ble-connection-monitor", func(ctx context.Context) {
			select {
			case <-client.Disconnected():
				t.logger.WithField("address", address).Warn("BLE stack reported disconnection")
				t.linkLost(client)
			case <-ctx.Done():
			}
		})

		t.logger.WithField("address", address).Info("BLE device connected")
		t.callbacks().OnLinkState(device.LinkConnected)
	})
	return nil
}

// Disconnect implements device.Transport. LinkDisconnected is reported when the link is gone.
func (t *Transport) Disconnect() error {
	t.mu.Lock()
	switch t.state {
	case device.LinkDisconnected:
		t.mu.Unlock()
		return device.ErrNotConnected
	case device.LinkDisconnecting:
		t.mu.Unlock()
		return nil
	case device.LinkConnecting:
		t.state = device.LinkDisconnecting
		cancel := t.cancel
		t.mu.Unlock()
		// The dial goroutine reports the outcome.
		cancel()
		return nil
	}
	t.state = device.LinkDisconnecting
	client := t.client
	t.mu.Unlock()

	t.logger.Info("Disconnecting BLE device...")
	groutine.Go(context.Background(), "ble-disconnect", func(ctx context.Context) {
		if err := NormalizeError(client.CancelConnection()); err != nil {
			t.logger.WithField("error", err).Warn("BLE device disconnected with errors")
		}
		t.linkLost(client)
	})
	return nil
}

// linkLost reports LinkDisconnected once per client.
func (t *Transport) linkLost(client GATTClient) {
	if !t.reset(client) {
		return
	}
	t.logger.Info("BLE device disconnected")
	t.callbacks().OnLinkState(device.LinkDisconnected)
}

// reset drops all link state. With a non-nil client it only acts if that
// client still owns the link, and reports whether it did.
func (t *Transport) reset(client GATTClient) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if client != nil && t.client != client {
		return false
	}
	if t.cancel != nil {
		t.cancel()
	}
	t.client = nil
	t.cancel = nil
	t.state = device.LinkDisconnected
	t.chars = hashmap.New[string, *ble.Characteristic]()
	return true
}

// DiscoverServices implements device.Transport. A failed discovery drops the link.
func (t *Transport) DiscoverServices() error {
	client, err := t.connected()
	if err != nil {
		return err
	}

	groutine.Go(context.Background(), "ble-discover", func(ctx context.Context) {
		profile, err := client.DiscoverProfile(true)
		if err != nil {
			t.logger.WithField("error", NormalizeError(err)).Error("Failed to discover profile")
			if cancelErr := client.CancelConnection(); cancelErr != nil {
				t.logger.WithField("cancel_error", cancelErr).Warn("Failed to cancel connection after discovery failure")
			}
			t.linkLost(client)
			return
		}

		t.mu.Lock()
		chars := t.chars
		t.mu.Unlock()

		services := make([]ble.UUID, 0, len(profile.Services))
		for _, svc := range profile.Services {
			services = append(services, svc.UUID)
			for _, c := range svc.Characteristics {
				chars.Set(charKey(svc.UUID, c.UUID), c)
			}
			t.logger.WithFields(logrus.Fields{
				"service_uuid":    device.UUIDKey(svc.UUID),
				"service":         device.DisplayName(svc.UUID),
				"characteristics": len(svc.Characteristics),
			}).Debug("Found service")
		}
		t.logger.WithFields(logrus.Fields{
			"services":        len(services),
			"characteristics": chars.Len(),
		}).Debug("Profile discovered successfully")

		t.callbacks().OnServicesDiscovered(services)
	})
	return nil
}

// ReadCharacteristic implements device.Transport.
func (t *Transport) ReadCharacteristic(service, char ble.UUID) error {
	client, err := t.connected()
	if err != nil {
		return err
	}
	c, err := t.lookup(service, char)
	if err != nil {
		return err
	}

	groutine.Go(context.Background(), "ble-read", func(ctx context.Context) {
		value, err := client.ReadCharacteristic(c)
		t.callbacks().OnCharacteristicRead(char, value, NormalizeError(err))
	})
	return nil
}

// WriteCharacteristic implements device.Transport. Writes always request a response.
func (t *Transport) WriteCharacteristic(service, char ble.UUID, value []byte) error {
	client, err := t.connected()
	if err != nil {
		return err
	}
	c, err := t.lookup(service, char)
	if err != nil {
		return err
	}

	groutine.Go(context.Background(), "ble-write", func(ctx context.Context) {
		err := client.WriteCharacteristic(c, value, false)
		t.callbacks().OnCharacteristicWrite(char, NormalizeError(err))
	})
	return nil
}

// WriteDescriptor implements device.Transport.
//
// Writes to the Client Characteristic Configuration descriptor become
// go-ble subscriptions, since go-ble owns the notification handler.
func (t *Transport) WriteDescriptor(service, char, desc ble.UUID, value []byte) error {
	client, err := t.connected()
	if err != nil {
		return err
	}
	c, err := t.lookup(service, char)
	if err != nil {
		return err
	}

	if device.SameUUID(desc, ble.ClientCharacteristicConfigUUID) {
		return t.writeCCCD(client, c, char, desc, value)
	}

	var d *ble.Descriptor
	for _, candidate := range c.Descriptors {
		if device.SameUUID(candidate.UUID, desc) {
			d = candidate
			break
		}
	}
	if d == nil {
		return &device.NotFoundError{
			Resource: "descriptor",
			UUIDs:    []string{device.UUIDKey(char), device.UUIDKey(desc)},
		}
	}

	groutine.Go(context.Background(), "ble-write-descriptor", func(ctx context.Context) {
		err := client.WriteDescriptor(d, value)
		t.callbacks().OnDescriptorWrite(char, desc, NormalizeError(err))
	})
	return nil
}

func (t *Transport) writeCCCD(client GATTClient, c *ble.Characteristic, char, desc ble.UUID, value []byte) error {
	if len(value) == 0 {
		return fmt.Errorf("%w: empty client characteristic configuration", device.ErrUnsupported)
	}
	indicate := value[0]&0x02 != 0
	enable := value[0]&0x03 != 0

	groutine.Go(context.Background(), "ble-subscribe", func(ctx context.Context) {
		var err error
		if enable {
			err = client.Subscribe(c, indicate, func(data []byte) {
				t.callbacks().OnCharacteristicChanged(char, append([]byte(nil), data...))
			})
		} else {
			err = client.Unsubscribe(c, false)
		}
		err = NormalizeError(err)

		t.logger.WithFields(logrus.Fields{
			"char_uuid": device.UUIDKey(char),
			"enable":    enable,
			"error":     err,
		}).Debug("Notification subscription updated")
		t.callbacks().OnDescriptorWrite(char, desc, err)
	})
	return nil
}

type nopCallbacks struct{}

func (nopCallbacks) OnLinkState(device.LinkState)                 {}
func (nopCallbacks) OnServicesDiscovered([]ble.UUID)              {}
func (nopCallbacks) OnCharacteristicRead(ble.UUID, []byte, error) {}
func (nopCallbacks) OnCharacteristicWrite(ble.UUID, error)        {}
func (nopCallbacks) OnDescriptorWrite(ble.UUID, ble.UUID, error)  {}
func (nopCallbacks) OnCharacteristicChanged(ble.UUID, []byte)     {}
