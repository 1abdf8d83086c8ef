package scanner_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-ble/ble"
	"github.com/stretchr/testify/suite"

	"github.com/srg/remotte/internal/device"
	"github.com/srg/remotte/internal/sensor"
	"github.com/srg/remotte/internal/testutils"
	"github.com/srg/remotte/scanner"
)

type ScannerTestSuite struct {
	suite.Suite
	dev *testutils.ScanDevice
}

func (suite *ScannerTestSuite) SetupTest() {
	suite.dev = &testutils.ScanDevice{Advertisements: []ble.Advertisement{
		testutils.NewAdvertisementBuilder().
			WithAddress("aa:bb:cc:dd:ee:01").
			WithName("Remotte").
			WithRSSI(-60).
			Build(),
		testutils.NewAdvertisementBuilder().
			WithAddress("aa:bb:cc:dd:ee:02").
			WithName("TI BLE Sensor Tag").
			WithRSSI(-45).
			Build(),
		testutils.NewAdvertisementBuilder().
			WithAddress("aa:bb:cc:dd:ee:03").
			WithRSSI(-70).
			WithServices("ffe0").
			Build(),
		testutils.NewAdvertisementBuilder().
			WithAddress("aa:bb:cc:dd:ee:04").
			WithName("Heart Rate").
			WithRSSI(-30).
			WithServices("180d").
			Build(),
		// Repeated advertisement updates the first entry.
		testutils.NewAdvertisementBuilder().
			WithAddress("aa:bb:cc:dd:ee:01").
			WithRSSI(-50).
			Build(),
	}}
}

func (suite *ScannerTestSuite) scanner() *scanner.Scanner {
	return scanner.NewScannerWithDevice(testutils.QuietLogger(), func() (ble.Device, error) {
		return suite.dev, nil
	})
}

func (suite *ScannerTestSuite) options() *scanner.ScanOptions {
	opts := scanner.DefaultScanOptions()
	opts.Duration = 20 * time.Millisecond
	return opts
}

func (suite *ScannerTestSuite) TestDefaultScanOptions() {
	opts := scanner.DefaultScanOptions()
	suite.Equal(30*time.Second, opts.Duration)
	suite.True(opts.DuplicateFilter)
	suite.False(opts.All)
}

func (suite *ScannerTestSuite) TestFindsKnownPeripherals() {
	var found []string
	var phases []string
	result, err := suite.scanner().Scan(context.Background(), suite.options(),
		func(p scanner.Peripheral) { found = append(found, p.Address) },
		func(phase string) { phases = append(phases, phase) },
	)
	suite.Require().NoError(err)

	suite.Equal([]string{"AA:BB:CC:DD:EE:01", "AA:BB:CC:DD:EE:02", "AA:BB:CC:DD:EE:03"}, found)
	suite.Equal([]string{"Scanning", "Processing results"}, phases)
	suite.False(suite.dev.AllowDup, "duplicate filter MUST be passed as allowDup=false")

	suite.Require().Len(result, 3)
	suite.Equal("AA:BB:CC:DD:EE:02", result[0].Address, "strongest signal first")
	suite.Equal(sensor.VariantSensorTag, result[0].Variant)

	suite.Equal("AA:BB:CC:DD:EE:01", result[1].Address)
	suite.Equal("Remotte", result[1].Name, "empty name in a later advertisement MUST NOT clear it")
	suite.Equal(-50, result[1].RSSI)

	suite.Equal("AA:BB:CC:DD:EE:03", result[2].Address)
	suite.Equal(sensor.VariantRemotte, result[2].Variant)
}

func (suite *ScannerTestSuite) TestAllAndBlockList() {
	opts := suite.options()
	opts.All = true
	opts.BlockList = []string{"aa:bb:cc:dd:ee:02"}

	result, err := suite.scanner().Scan(context.Background(), opts, nil, nil)
	suite.Require().NoError(err)

	var addrs []string
	for _, p := range result {
		addrs = append(addrs, p.Address)
	}
	suite.Equal([]string{"AA:BB:CC:DD:EE:04", "AA:BB:CC:DD:EE:01", "AA:BB:CC:DD:EE:03"}, addrs)
}

func (suite *ScannerTestSuite) TestCancelledContextReturnsPartialResult() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := suite.options()
	opts.Duration = time.Hour
	result, err := suite.scanner().Scan(ctx, opts, nil, nil)
	suite.Require().NoError(err)
	suite.Len(result, 3)
}

func (suite *ScannerTestSuite) TestErrors() {
	suite.Run("device creation", func() {
		s := scanner.NewScannerWithDevice(testutils.QuietLogger(), func() (ble.Device, error) {
			return nil, errors.New("can't init hci: no devices available")
		})
		_, err := s.Scan(context.Background(), suite.options(), nil, nil)
		suite.ErrorIs(err, device.ErrBluetoothOff)
	})

	suite.Run("scan", func() {
		suite.dev.ScanErr = errors.New("radio busy")
		_, err := suite.scanner().Scan(context.Background(), suite.options(), nil, nil)
		suite.Require().Error(err)
		suite.Contains(err.Error(), "scan failed: radio busy")
	})
}

func TestScannerTestSuite(t *testing.T) {
	suite.Run(t, new(ScannerTestSuite))
}
