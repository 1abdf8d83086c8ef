package remotte

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/go-ble/ble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/remotte/internal/device"
	"github.com/srg/remotte/internal/sensor"
	"github.com/srg/remotte/internal/session"
	"github.com/srg/remotte/internal/testutils"
	"github.com/srg/remotte/pkg/config"
)

const address = "AA:BB:CC:DD:EE:FF"

var (
	temperatureService = ble.MustParse("f000aa00-0451-4000-b000-000000000000")
	temperatureData    = ble.MustParse("f000aa01-0451-4000-b000-000000000000")
	keysService        = ble.MustParse("ffe0")
	keysData           = ble.MustParse("ffe1")
)

func newClient(t *testing.T, fake *testutils.FakeTransport) *Client {
	t.Helper()
	c, err := NewWithTransport(fake, nil, testutils.QuietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(time.Second) })
	return c
}

func ctxTimeout(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestClientStreamsReadings(t *testing.T) {
	fake := testutils.NewAutoTransport(ble.BatteryUUID, ble.DeviceInfoUUID, temperatureService, keysService)
	c := newClient(t, fake)

	var mu sync.Mutex
	var seen []string
	c.Subscribe(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.String())
	})

	cfg := sensor.NewConfiguration(sensor.VariantRemotte)
	cfg.Enable(sensor.Temperature, 500)
	cfg.Enable(sensor.Keys, 0)
	require.NoError(t, c.Configure(cfg))
	require.NoError(t, c.ConnectAndWait(ctxTimeout(t), address))

	require.Eventually(t, func() bool { return c.State() == session.Streaming }, time.Second, time.Millisecond)

	wait, cancel := c.Expect(func(e Event) bool { _, ok := e.Reading.(sensor.KeyReading); return ok })
	defer cancel()
	fake.Notify(temperatureData, []byte{0, 0, 0x00, 0x0c})
	fake.Notify(keysData, []byte{0x02})
	e, err := wait(ctxTimeout(t))
	require.NoError(t, err)
	assert.Equal(t, sensor.KeyReading{Power: true}, e.Reading)

	require.NoError(t, c.DisconnectAndWait(ctxTimeout(t), address))
	assert.Equal(t, session.Idle, c.State())

	require.NoError(t, c.Close(time.Second))
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 6)
	assert.Equal(t, "connecting", seen[0])
	assert.Equal(t, "connected", seen[1])
	assert.Contains(t, seen[2], "temperature")
	assert.Contains(t, seen[3], "keys")
	assert.Equal(t, "disconnecting", seen[4])
	assert.Equal(t, "disconnected", seen[5])
}

func TestClientReadAttributeAndWait(t *testing.T) {
	fake := testutils.NewAutoTransport(ble.BatteryUUID, ble.DeviceInfoUUID)
	fake.SetReadValue(ble.MustParse("2a19"), []byte{64})
	fake.SetReadValue(ble.MustParse("2a29"), []byte("Remotte\x00"))
	c := newClient(t, fake)

	require.NoError(t, c.ConnectAndWait(ctxTimeout(t), address))

	battery, err := c.ReadAttributeAndWait(ctxTimeout(t), sensor.BatteryLevel)
	require.NoError(t, err)
	pct, ok := battery.Percent()
	assert.True(t, ok)
	assert.Equal(t, 64, pct)

	maker, err := c.ReadAttributeAndWait(ctxTimeout(t), sensor.ManufacturerName)
	require.NoError(t, err)
	assert.Equal(t, "Remotte", maker.Text())
}

func TestClientDisconnectSurvivesReadingBacklog(t *testing.T) {
	fake := testutils.NewAutoTransport(ble.BatteryUUID, ble.DeviceInfoUUID, keysService)
	cfg := config.DefaultConfig()
	cfg.EventBuffer = 4
	c, err := NewWithTransport(fake, cfg, testutils.QuietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(time.Second) })

	require.NoError(t, c.ConnectAndWait(ctxTimeout(t), address))

	blocked := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	c.Subscribe(func(e Event) {
		if e.Kind == session.EventReading {
			once.Do(func() {
				close(blocked)
				<-release
			})
		}
	})

	fake.Notify(keysData, []byte{0x01})
	<-blocked
	for i := 0; i < 20; i++ {
		fake.Notify(keysData, []byte{0x02})
	}

	done := make(chan error, 1)
	ctx := ctxTimeout(t)
	go func() { done <- c.DisconnectAndWait(ctx, address) }()
	require.Eventually(t, func() bool { return c.State() == session.Idle }, time.Second, time.Millisecond)
	close(release)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("disconnected event was never delivered")
	}
	assert.Positive(t, c.Metrics().Overwritten, "readings were overwritten")
}

func TestClientConnectAndWaitTearsDownOnCancel(t *testing.T) {
	fake := testutils.NewFakeTransport()
	c := newClient(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.ConnectAndWait(ctx, address) }()

	require.Eventually(t, func() bool { return c.State() == session.Connecting }, time.Second, time.Millisecond)
	cancel()
	require.Eventually(t, func() bool { return slices.Contains(fake.Ops(), "disconnect") }, time.Second, time.Millisecond)
	fake.LinkDown()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("ConnectAndWait did not return")
	}
	assert.Equal(t, session.Idle, c.State())
	assert.Equal(t, []string{"connect " + address, "disconnect"}, fake.Ops())
}

func TestClientConnectFailure(t *testing.T) {
	fake := testutils.NewAutoTransport()
	fake.ConnectErr = device.ErrTimeout
	c := newClient(t, fake)

	err := c.ConnectAndWait(ctxTimeout(t), address)
	assert.ErrorIs(t, err, ErrConnectionFailed)
	assert.Equal(t, session.Idle, c.State())
}

func TestClientPreconditions(t *testing.T) {
	fake := testutils.NewAutoTransport()
	fake.AvailableErr = device.ErrBluetoothOff
	c := newClient(t, fake)

	assert.ErrorIs(t, c.ConnectAndWait(ctxTimeout(t), address), device.ErrBluetoothOff)
	assert.ErrorIs(t, c.Disconnect(address), device.ErrNotConnected)
	assert.ErrorIs(t, c.EnableHaptic(true, false), device.ErrNotConnected)
}

func TestClientWaitForHonorsContext(t *testing.T) {
	c := newClient(t, testutils.NewFakeTransport())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.WaitFor(ctx, func(Event) bool { return true })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewWithTransportValidatesConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.EventBuffer = 0
	_, err := NewWithTransport(testutils.NewFakeTransport(), cfg, testutils.QuietLogger())
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
