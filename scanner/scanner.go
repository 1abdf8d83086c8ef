// Package scanner finds Remotte and SensorTag peripherals in advertising range.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cornelk/hashmap"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/go-ble/ble"
	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"

	"github.com/srg/remotte/internal/capability"
	"github.com/srg/remotte/internal/device"
	goble "github.com/srg/remotte/internal/device/go-ble"
	"github.com/srg/remotte/internal/sensor"
)

// ProgressCallback is called when the scan phase changes
type ProgressCallback func(phase string)

// Peripheral is one discovered device, updated on every advertisement.
type Peripheral struct {
	Address     string
	Name        string
	RSSI        int
	Connectable bool
	Variant     sensor.Variant
	LastSeen    time.Time
}

// ScanOptions configures scanning behavior
type ScanOptions struct {
	Duration        time.Duration `default:"30s"`
	DuplicateFilter bool          `default:"true"`
	BlockList       []string
	// All reports every advertiser, not only recognized peripherals.
	All bool
}

// DefaultScanOptions returns default scanning options
func DefaultScanOptions() *ScanOptions {
	opts := &ScanOptions{}
	defaults.SetDefaults(opts)
	return opts
}

// Names advertised by the supported peripherals, lower case.
var knownNames = map[string]sensor.Variant{
	"remotte":           sensor.VariantRemotte,
	"sensortag":         sensor.VariantSensorTag,
	"ti ble sensor tag": sensor.VariantSensorTag,
}

// Scanner handles BLE device discovery
type Scanner struct {
	logger    *logrus.Logger
	newDevice func() (ble.Device, error)
	services  mapset.Set[string]

	devices *hashmap.Map[string, *Peripheral]
	blocked mapset.Set[string]
	all     bool
	onFound func(Peripheral)
}

// NewScanner creates a scanner on the platform BLE device.
func NewScanner(logger *logrus.Logger) *Scanner {
	return NewScannerWithDevice(logger, goble.DeviceFactory)
}

// NewScannerWithDevice creates a scanner on devices produced by newDevice.
func NewScannerWithDevice(logger *logrus.Logger, newDevice func() (ble.Device, error)) *Scanner {
	if logger == nil {
		logger = logrus.New()
	}

	services := mapset.NewSet[string]()
	for _, v := range []sensor.Variant{sensor.VariantRemotte, sensor.VariantSensorTag} {
		for _, p := range capability.MustFor(v).Sensors() {
			services.Add(device.UUIDKey(p.Service))
		}
	}

	return &Scanner{
		logger:    logger,
		newDevice: newDevice,
		services:  services,
	}
}

// Scan listens for advertisements until opts.Duration elapses or ctx is done.
// onFound is called once per newly discovered peripheral. The result is sorted
// by signal strength, strongest first.
func (s *Scanner) Scan(ctx context.Context, opts *ScanOptions, onFound func(Peripheral), progress ProgressCallback) ([]Peripheral, error) {
	if opts == nil {
		opts = DefaultScanOptions()
	}
	if progress == nil {
		progress = func(string) {}
	}
	if onFound == nil {
		onFound = func(Peripheral) {}
	}

	dev, err := s.newDevice()
	if err != nil {
		return nil, fmt.Errorf("failed to create BLE device: %w", goble.NormalizeError(err))
	}

	s.devices = hashmap.New[string, *Peripheral]()
	s.blocked = mapset.NewSet[string]()
	for _, addr := range opts.BlockList {
		s.blocked.Add(strings.ToUpper(addr))
	}
	s.all = opts.All
	s.onFound = onFound

	s.logger.WithField("duration", opts.Duration).Info("Starting BLE scan...")
	progress("Scanning")

	scanCtx, cancel := context.WithTimeout(ctx, opts.Duration)
	defer cancel()
	err = dev.Scan(scanCtx, !opts.DuplicateFilter, s.handleAdvertisement)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("scan failed: %w", goble.NormalizeError(err))
	}

	s.logger.WithField("device_count", s.devices.Len()).Info("BLE scan completed")
	progress("Processing results")

	found := make([]Peripheral, 0, s.devices.Len())
	s.devices.Range(func(_ string, p *Peripheral) bool {
		found = append(found, *p)
		return true
	})
	sort.Slice(found, func(i, j int) bool {
		if found[i].RSSI != found[j].RSSI {
			return found[i].RSSI > found[j].RSSI
		}
		return found[i].Address < found[j].Address
	})
	return found, nil
}

// handleAdvertisement updates existing or adds a new peripheral
func (s *Scanner) handleAdvertisement(adv ble.Advertisement) {
	addr := strings.ToUpper(adv.Addr().String())

	if p, ok := s.devices.Get(addr); ok {
		p.RSSI = adv.RSSI()
		p.LastSeen = time.Now()
		if name := adv.LocalName(); name != "" {
			p.Name = name
		}
		return
	}

	if s.blocked.Contains(addr) {
		return
	}
	variant, known := s.recognize(adv)
	if !known && !s.all {
		return
	}

	p := &Peripheral{
		Address:     addr,
		Name:        adv.LocalName(),
		RSSI:        adv.RSSI(),
		Connectable: adv.Connectable(),
		Variant:     variant,
		LastSeen:    time.Now(),
	}
	if _, loaded := s.devices.GetOrInsert(addr, p); loaded {
		return
	}

	s.logger.WithFields(logrus.Fields{
		"device":  p.Name,
		"address": p.Address,
		"rssi":    p.RSSI,
		"variant": p.Variant,
	}).Info("Discovered new device")
	s.onFound(*p)
}

// recognize matches the local name first, then the advertised sensor services.
func (s *Scanner) recognize(adv ble.Advertisement) (sensor.Variant, bool) {
	name := strings.ToLower(adv.LocalName())
	for prefix, v := range knownNames {
		if strings.HasPrefix(name, prefix) {
			return v, true
		}
	}
	for _, u := range adv.Services() {
		if s.services.Contains(device.UUIDKey(u)) {
			return sensor.VariantRemotte, true
		}
	}
	return sensor.VariantRemotte, false
}
