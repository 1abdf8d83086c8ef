package session

import (
	"github.com/go-ble/ble"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"

	"github.com/srg/remotte/internal/capability"
	"github.com/srg/remotte/internal/codec"
	"github.com/srg/remotte/internal/device"
	"github.com/srg/remotte/internal/sensor"
)

// link is the state scoped to one connection. It is discarded when the link goes down.
type link struct {
	id      string
	address string
	table   *capability.Table
	decoder *codec.Decoder

	services mapset.Set[string]
	// active lists the sensors whose configuration commands were submitted.
	active     []sensor.Kind
	configured bool
	teardown   bool
}

func newLink(address string, v sensor.Variant) *link {
	l := &link{
		id:       uuid.NewString(),
		address:  address,
		services: mapset.NewThreadUnsafeSet[string](),
	}
	l.setVariant(v)
	return l
}

func (l *link) setVariant(v sensor.Variant) {
	l.table = capability.MustFor(v)
	l.decoder = codec.NewDecoder(v)
}

func (l *link) hasService(svc ble.UUID) bool {
	return l.services.Contains(device.UUIDKey(svc))
}
