package main

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"

	"github.com/srg/remotte/internal/device"
	"github.com/srg/remotte/internal/testutils"
	"github.com/srg/remotte/pkg/config"
)

const testDeviceAddress = "00:00:00:00:00:01"

var (
	temperatureService = ble.MustParse("f000aa00-0451-4000-b000-000000000000")
	temperatureData    = ble.MustParse("f000aa01-0451-4000-b000-000000000000")
	hapticService      = ble.MustParse("f000aa80-0451-4000-b000-000000000000")
	keysService        = ble.MustParse("ffe0")
	keysData           = ble.MustParse("ffe1")
	batteryLevel       = ble.MustParse("2a19")
	manufacturerName   = ble.MustParse("2a29")
)

// CommandTestSuite runs the command tree against an in-memory transport.
// All cmd/remotte suites embed it.
type CommandTestSuite struct {
	suite.Suite
	fake         *testutils.FakeTransport
	oldTransport func(*config.Config, *logrus.Logger) device.Transport
}

func (s *CommandTestSuite) SetupTest() {
	s.fake = testutils.NewAutoTransport(
		ble.BatteryUUID, ble.DeviceInfoUUID, temperatureService, keysService, hapticService,
	)
	s.oldTransport = newTransport
	newTransport = func(*config.Config, *logrus.Logger) device.Transport { return s.fake }
}

func (s *CommandTestSuite) TearDownTest() {
	newTransport = s.oldTransport
}

// ExecuteCommand runs a fresh command tree with args and returns stdout, stderr and the error.
func (s *CommandTestSuite) ExecuteCommand(args ...string) (string, string, error) {
	return s.ExecuteCommandContext(context.Background(), args...)
}

// ExecuteCommandContext is ExecuteCommand with ctx as the command context.
func (s *CommandTestSuite) ExecuteCommandContext(ctx context.Context, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

type notification struct {
	char  ble.UUID
	value []byte
}

// NotifyWhenRecorded delivers notifications, in order, once op has been sent to the fake.
func (s *CommandTestSuite) NotifyWhenRecorded(op string, notes ...notification) {
	fake := s.fake
	s.WhenRecorded(op, func() {
		for _, n := range notes {
			fake.Notify(n.char, n.value)
		}
	})
}

// WhenRecorded runs fn once op has been sent to the fake.
func (s *CommandTestSuite) WhenRecorded(op string, fn func()) {
	fake := s.fake
	go func() {
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if slices.Contains(fake.Ops(), op) {
				fn()
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()
}

func (s *CommandTestSuite) AssertText(actual, expected string) {
	testutils.NewTextAsserter(s.T(), testutils.WithTrimSpace(), testutils.WithStripANSI()).
		Assert(actual, strings.TrimLeft(expected, "\n"))
}
