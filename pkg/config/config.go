package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/srg/remotte/internal/sensor"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds application configuration
//
// EventBuffer is the size of the client notification ring buffer.
type Config struct {
	LogLevel       string                     `yaml:"log_level" json:"log_level" default:"info"`
	ConnectTimeout time.Duration              `yaml:"connect_timeout" json:"connect_timeout" default:"30s"`
	EventBuffer    uint32                     `yaml:"event_buffer" json:"event_buffer" default:"256"`
	Sensors        sensor.SensorConfiguration `yaml:"sensors" json:"sensors"`
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	c := &Config{}
	defaults.SetDefaults(c)
	return c
}

// Load reads a YAML file over the defaults. Keys missing from the file keep their default.
func Load(path string) (*Config, error) {
	c := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse config %q: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return c, nil
}

// Level parses LogLevel.
func (c *Config) Level() (logrus.Level, error) {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return lvl, nil
}

// Validate checks every field, including the sensor configuration.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("%w: connect_timeout must be positive, got %v", ErrInvalidConfig, c.ConnectTimeout)
	}
	if c.EventBuffer == 0 {
		return fmt.Errorf("%w: event_buffer must be > 0", ErrInvalidConfig)
	}
	if err := c.Sensors.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	lvl, err := c.Level()
	if err != nil {
		logger.WithField("log_level", c.LogLevel).Warn("Unknown log level, using info")
	}
	logger.SetLevel(lvl)

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}
