package testutils

import (
	"context"

	"github.com/go-ble/ble"
)

// Advertisement is an in-memory ble.Advertisement. Methods the builder does
// not cover panic through the nil embedded interface.
type Advertisement struct {
	ble.Advertisement
	name        string
	addr        ble.Addr
	rssi        int
	services    []ble.UUID
	connectable bool
}

func (a *Advertisement) LocalName() string        { return a.name }
func (a *Advertisement) Addr() ble.Addr           { return a.addr }
func (a *Advertisement) RSSI() int                { return a.rssi }
func (a *Advertisement) Services() []ble.UUID     { return a.services }
func (a *Advertisement) Connectable() bool        { return a.connectable }
func (a *Advertisement) ManufacturerData() []byte { return nil }

// AdvertisementBuilder builds advertisements for scanner tests.
// The builder starts with connectable=true.
type AdvertisementBuilder struct {
	adv Advertisement
}

// NewAdvertisementBuilder creates a builder for a connectable advertisement.
func NewAdvertisementBuilder() *AdvertisementBuilder {
	return &AdvertisementBuilder{adv: Advertisement{connectable: true}}
}

// WithName sets the local name.
func (b *AdvertisementBuilder) WithName(name string) *AdvertisementBuilder {
	b.adv.name = name
	return b
}

// WithAddress sets the device address.
func (b *AdvertisementBuilder) WithAddress(addr string) *AdvertisementBuilder {
	b.adv.addr = ble.NewAddr(addr)
	return b
}

// WithRSSI sets the signal strength.
func (b *AdvertisementBuilder) WithRSSI(rssi int) *AdvertisementBuilder {
	b.adv.rssi = rssi
	return b
}

// WithServices adds advertised service UUIDs, short ("ffe0") or full form.
func (b *AdvertisementBuilder) WithServices(uuids ...string) *AdvertisementBuilder {
	for _, u := range uuids {
		b.adv.services = append(b.adv.services, ble.MustParse(u))
	}
	return b
}

// WithConnectable sets whether the device accepts connections.
func (b *AdvertisementBuilder) WithConnectable(c bool) *AdvertisementBuilder {
	b.adv.connectable = c
	return b
}

// Build returns a copy of the configured advertisement.
func (b *AdvertisementBuilder) Build() *Advertisement {
	adv := b.adv
	adv.services = append([]ble.UUID(nil), b.adv.services...)
	return &adv
}

// ScanDevice is a ble.Device that replays advertisements on Scan.
type ScanDevice struct {
	ble.Device
	Advertisements []ble.Advertisement
	ScanErr        error
	AllowDup       bool // last value passed to Scan
}

// Scan delivers every advertisement, then blocks until ctx is done.
func (d *ScanDevice) Scan(ctx context.Context, allowDup bool, h ble.AdvHandler) error {
	d.AllowDup = allowDup
	if d.ScanErr != nil {
		return d.ScanErr
	}
	for _, adv := range d.Advertisements {
		h(adv)
	}
	<-ctx.Done()
	return ctx.Err()
}
