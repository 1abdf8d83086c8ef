package main

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/srg/remotte/internal/device"
	goble "github.com/srg/remotte/internal/device/go-ble"
	"github.com/srg/remotte/pkg/config"
	"github.com/srg/remotte/pkg/remotte"
)

const closeTimeout = 5 * time.Second

// newTransport builds the radio transport (can be overridden in tests).
var newTransport = func(cfg *config.Config, logger *logrus.Logger) device.Transport {
	return goble.New(logger, &goble.Options{ConnectTimeout: cfg.ConnectTimeout})
}

// loadConfig reads --config and applies the flags that override it.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("variant") {
		cfg.Sensors.Variant = opts.variant
	}
	if cmd.Flags().Changed("timeout") || opts.configPath == "" {
		cfg.ConnectTimeout = opts.timeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openClient configures logging, loads configuration and starts a client.
func openClient(cmd *cobra.Command, opts *rootOptions) (*remotte.Client, *config.Config, error) {
	logger, err := configureLogger(cmd, "verbose")
	if err != nil {
		return nil, nil, err
	}
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, nil, err
	}

	client, err := remotte.NewWithTransport(newTransport(cfg, logger), cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return client, cfg, nil
}
