package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/srg/remotte/internal/testutils"
)

const keysSubscribed = "write Simple Keys Data/Client Characteristic Configuration 01 00"

type StreamCmdTestSuite struct {
	CommandTestSuite
}

func (s *StreamCmdTestSuite) TestTextOutput() {
	// GOAL: readings arrive between the connection events in publish order
	s.NotifyWhenRecorded(keysSubscribed,
		notification{char: temperatureData, value: []byte{0, 0, 0x00, 0x0c}},
		notification{char: keysData, value: []byte{0x02}},
	)

	stdout, stderr, err := s.runStreamWithKeys()
	s.Require().NoError(err)

	s.AssertText(stdout, `
connecting
connected
temperature   24.00 °C
keys          power=true center=false
disconnecting
disconnected
`)
	s.Contains(stderr, "Streaming from "+testDeviceAddress)
}

func (s *StreamCmdTestSuite) TestSensorsAreSwitchedOffOnExit() {
	_, _, err := s.runStreamWithKeys()
	s.Require().NoError(err)

	ops := s.fake.Ops()
	s.Equal("connect "+testDeviceAddress, ops[0])
	s.Contains(ops, "write IR Temperature Config 01")
	s.Contains(ops, "write IR Temperature Period 32")
	s.Contains(ops, keysSubscribed)
	s.Contains(ops, "write IR Temperature Config 00")
	s.Contains(ops, "write Simple Keys Data/Client Characteristic Configuration 00 00")
	s.Equal("disconnect", ops[len(ops)-1])
}

func (s *StreamCmdTestSuite) TestInterruptWhileConnectingTearsDownLink() {
	s.fake = testutils.NewFakeTransport()
	fake := s.fake
	ctx, interrupt := context.WithCancel(context.Background())
	defer interrupt()
	s.WhenRecorded("connect "+testDeviceAddress, interrupt)
	s.WhenRecorded("disconnect", fake.LinkDown)

	_, _, err := s.ExecuteCommandContext(ctx, "stream", testDeviceAddress, "--keys")
	s.Require().ErrorIs(err, context.Canceled)
	s.Equal([]string{"connect " + testDeviceAddress, "disconnect"}, s.fake.Ops())
}

func (s *StreamCmdTestSuite) TestJSONOutput() {
	stdout, _, err := s.ExecuteCommand("stream", testDeviceAddress, "--keys", "--format", "json", "--duration", "200ms")
	s.Require().NoError(err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	s.Require().Len(lines, 4)

	ja := testutils.NewJSONAsserter(s.T(), testutils.WithStrictKeys())
	var lastSeq uint64
	for i, event := range []string{"connecting", "connected", "disconnecting", "disconnected"} {
		ja.Assert(lines[i], fmt.Sprintf(`{
			"seq": "<<PRESENCE>>",
			"ts_us": "<<PRESENCE>>",
			"link_id": "<<PRESENCE>>",
			"type": "connection",
			"event": %q
		}`, event))

		var rec eventRecord
		s.Require().NoError(json.Unmarshal([]byte(lines[i]), &rec))
		if i > 0 {
			s.Greater(rec.Seq, lastSeq, "sequence numbers MUST increase")
		}
		lastSeq = rec.Seq
	}
}

func (s *StreamCmdTestSuite) TestSensorsFromConfigFile() {
	path := filepath.Join(s.T().TempDir(), "remotte.yaml")
	s.Require().NoError(os.WriteFile(path, []byte("connect_timeout: 2s\nsensors:\n  keys: true\n"), 0o600))

	_, _, err := s.ExecuteCommand("stream", testDeviceAddress, "--config", path, "--duration", "200ms")
	s.Require().NoError(err)
	s.Contains(s.fake.Ops(), keysSubscribed)
	s.NotContains(s.fake.Ops(), "write IR Temperature Config 01")
}

func (s *StreamCmdTestSuite) TestNoSensorsSelected() {
	_, _, err := s.ExecuteCommand("stream", testDeviceAddress)
	s.Require().Error(err)
	s.Contains(err.Error(), "no sensors enabled")
	s.Empty(s.fake.Ops(), "nothing MUST be sent without sensors")
}

func (s *StreamCmdTestSuite) TestInvalidFormat() {
	_, _, err := s.ExecuteCommand("stream", testDeviceAddress, "--keys", "--format", "xml")
	s.Require().Error(err)
	s.Contains(err.Error(), "invalid format")
}

func (s *StreamCmdTestSuite) TestInvalidPeriod() {
	_, _, err := s.ExecuteCommand("stream", testDeviceAddress, "--temperature", "--period", "5")
	s.Require().Error(err)
	s.Empty(s.fake.Ops())
}

func (s *StreamCmdTestSuite) TestInvalidLogLevel() {
	_, _, err := s.ExecuteCommand("stream", testDeviceAddress, "--keys", "--log-level", "chatty")
	s.Require().Error(err)
	s.Contains(err.Error(), "invalid log level")
}

func (s *StreamCmdTestSuite) runStreamWithKeys() (string, string, error) {
	return s.ExecuteCommand("stream", testDeviceAddress, "--temperature", "--keys", "--period", "500", "--duration", "300ms")
}

func TestStreamCmdTestSuite(t *testing.T) {
	suite.Run(t, new(StreamCmdTestSuite))
}
