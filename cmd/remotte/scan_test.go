package main

import (
	"testing"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"

	"github.com/srg/remotte/internal/testutils"
	"github.com/srg/remotte/scanner"
)

type ScanCmdTestSuite struct {
	CommandTestSuite
	dev        *testutils.ScanDevice
	oldScanner func(*logrus.Logger) *scanner.Scanner
}

func (s *ScanCmdTestSuite) SetupTest() {
	s.CommandTestSuite.SetupTest()
	s.dev = &testutils.ScanDevice{Advertisements: []ble.Advertisement{
		testutils.NewAdvertisementBuilder().WithAddress("b0:b4:48:c9:4e:83").WithName("Remotte").WithRSSI(-58).Build(),
		testutils.NewAdvertisementBuilder().WithAddress("b0:b4:48:c9:4e:84").WithName("SensorTag").WithRSSI(-41).Build(),
		testutils.NewAdvertisementBuilder().WithAddress("11:22:33:44:55:66").WithName("Speaker").WithRSSI(-20).Build(),
	}}
	s.oldScanner = newScanner
	newScanner = func(logger *logrus.Logger) *scanner.Scanner {
		return scanner.NewScannerWithDevice(logger, func() (ble.Device, error) { return s.dev, nil })
	}
}

func (s *ScanCmdTestSuite) TearDownTest() {
	newScanner = s.oldScanner
	s.CommandTestSuite.TearDownTest()
}

func (s *ScanCmdTestSuite) TestTable() {
	stdout, stderr, err := s.ExecuteCommand("scan", "--duration", "20ms")
	s.Require().NoError(err)

	s.AssertText(stdout, `
NAME       ADDRESS            RSSI     VARIANT
SensorTag  B0:B4:48:C9:4E:84  -41 dBm  sensortag
Remotte    B0:B4:48:C9:4E:83  -58 dBm  remotte
`)
	s.Contains(stderr, "Found B0:B4:48:C9:4E:83 Remotte")
	s.NotContains(stderr, "Speaker")
}

func (s *ScanCmdTestSuite) TestJSON() {
	stdout, _, err := s.ExecuteCommand("scan", "--duration", "20ms", "--all", "--format", "json")
	s.Require().NoError(err)

	testutils.NewJSONAsserter(s.T(), testutils.WithStrictKeys()).Assert(stdout, `[
		{"name": "Speaker", "address": "11:22:33:44:55:66", "rssi": -20, "variant": "remotte", "connectable": true},
		{"name": "SensorTag", "address": "B0:B4:48:C9:4E:84", "rssi": -41, "variant": "sensortag", "connectable": true},
		{"name": "Remotte", "address": "B0:B4:48:C9:4E:83", "rssi": -58, "variant": "remotte", "connectable": true}
	]`)
}

func (s *ScanCmdTestSuite) TestNothingFound() {
	s.dev.Advertisements = nil
	stdout, _, err := s.ExecuteCommand("scan", "--duration", "20ms")
	s.Require().NoError(err)
	s.AssertText(stdout, "No devices discovered")
}

func (s *ScanCmdTestSuite) TestInvalidArguments() {
	_, _, err := s.ExecuteCommand("scan", "--format", "xml")
	s.Require().Error(err)
	s.Contains(err.Error(), "invalid format")

	_, _, err = s.ExecuteCommand("scan", "--duration", "0s")
	s.Require().Error(err)
}

func TestScanCmdTestSuite(t *testing.T) {
	suite.Run(t, new(ScanCmdTestSuite))
}
