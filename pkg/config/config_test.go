package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/remotte/internal/sensor"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "remotte.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, uint32(256), cfg.EventBuffer)
	assert.Equal(t, sensor.VariantRemotte, cfg.Sensors.Variant)
	assert.Equal(t, sensor.DefaultPeriodMs, cfg.Sensors.Temperature.PeriodMs)
	assert.Empty(t, cfg.Sensors.EnabledKinds())
	assert.NoError(t, cfg.Validate())
}

func TestConfig_NewLogger(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		want     logrus.Level
	}{
		{name: "debug", logLevel: "debug", want: logrus.DebugLevel},
		{name: "info", logLevel: "info", want: logrus.InfoLevel},
		{name: "warn", logLevel: "warning", want: logrus.WarnLevel},
		{name: "error", logLevel: "error", want: logrus.ErrorLevel},
		{name: "unknown falls back to info", logLevel: "chatty", want: logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.logLevel}

			logger := cfg.NewLogger()

			assert.NotNil(t, logger)
			assert.Equal(t, tt.want, logger.GetLevel())

			formatter, ok := logger.Formatter.(*logrus.TextFormatter)
			assert.True(t, ok)
			assert.True(t, formatter.FullTimestamp)
			assert.Equal(t, time.RFC3339, formatter.TimestampFormat)
		})
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
connect_timeout: 5s
sensors:
  variant: sensortag
  accelerometer:
    enabled: true
    notify: true
    period_ms: 250
  altimeter:
    enabled: true
  keys: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, uint32(256), cfg.EventBuffer, "unset keys keep defaults")
	assert.Equal(t, sensor.VariantSensorTag, cfg.Sensors.Variant)
	assert.Equal(t, sensor.SensorSettings{Enabled: true, Notify: true, PeriodMs: 250}, cfg.Sensors.Accelerometer)
	assert.Equal(t, sensor.SensorSettings{Enabled: true, PeriodMs: sensor.DefaultPeriodMs}, cfg.Sensors.Altimeter)
	assert.Equal(t, []sensor.Kind{sensor.Accelerometer, sensor.Altimeter, sensor.Keys}, cfg.Sensors.EnabledKinds())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed yaml", body: "log_level: [debug"},
		{name: "unknown variant", body: "sensors:\n  variant: ti-ble\n"},
		{name: "unknown log level", body: "log_level: chatty\n"},
		{name: "period out of range", body: "sensors:\n  temperature:\n    enabled: true\n    notify: true\n    period_ms: 50\n"},
		{name: "notify without enable", body: "sensors:\n  gyroscope:\n    notify: true\n"},
		{name: "zero timeout", body: "connect_timeout: 0s\n"},
		{name: "zero buffer", body: "event_buffer: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidateWrapsSensorErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sensors.Temperature = sensor.SensorSettings{Enabled: true, Notify: true, PeriodMs: 3000}

	err := cfg.Validate()
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorIs(t, err, sensor.ErrInvalidConfiguration)
}
