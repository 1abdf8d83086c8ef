package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/srg/remotte/internal/sensor"
	"github.com/srg/remotte/pkg/remotte"
)

type streamOptions struct {
	temperature   bool
	accelerometer bool
	gyroscope     bool
	altimeter     bool
	keys          bool
	periodMs      int
	format        string
	duration      time.Duration
}

func newStreamCmd(root *rootOptions) *cobra.Command {
	opts := &streamOptions{}

	cmd := &cobra.Command{
		Use:   "stream <device-address>",
		Short: "Stream sensor readings",
		Long: fmt.Sprintf(`Connects, enables the selected sensors and prints every reading until
interrupted. On exit the sensors are switched off before the link is closed.

Sensor flags override the sensors section of --config.

Examples:
  # Temperature and keys every 500 ms
  remotte stream %[1]s --temperature --keys --period 500

  # SensorTag accelerometer as JSON lines for 10 seconds
  remotte stream %[1]s --variant sensortag --accelerometer --format json --duration 10s

  # Sensors from a profile
  remotte stream %[1]s --config remotte.yaml`, exampleDeviceAddress),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStream(cmd, root, opts, args[0])
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.temperature, "temperature", false, "Enable the temperature sensor")
	f.BoolVar(&opts.accelerometer, "accelerometer", false, "Enable the accelerometer")
	f.BoolVar(&opts.gyroscope, "gyroscope", false, "Enable the gyroscope")
	f.BoolVar(&opts.altimeter, "altimeter", false, "Enable the altimeter")
	f.BoolVar(&opts.keys, "keys", false, "Report key presses")
	f.IntVar(&opts.periodMs, "period", sensor.DefaultPeriodMs, fmt.Sprintf("Sampling period in ms (%d-%d)", sensor.MinPeriodMs, sensor.MaxPeriodMs))
	f.StringVar(&opts.format, "format", formatText, "Output format (text, json)")
	f.DurationVar(&opts.duration, "duration", 0, "Stop after this long (default: until Ctrl+C)")
	return cmd
}

func (o *streamOptions) anySensor() bool {
	return o.temperature || o.accelerometer || o.gyroscope || o.altimeter || o.keys
}

// sensors returns the configuration selected by flags, or base when no sensor flag is set.
func (o *streamOptions) sensors(base sensor.SensorConfiguration) (sensor.SensorConfiguration, error) {
	cfg := base
	if o.anySensor() {
		cfg = sensor.NewConfiguration(base.Variant)
		for k, on := range map[sensor.Kind]bool{
			sensor.Temperature:   o.temperature,
			sensor.Accelerometer: o.accelerometer,
			sensor.Gyroscope:     o.gyroscope,
			sensor.Altimeter:     o.altimeter,
			sensor.Keys:          o.keys,
		} {
			if on {
				cfg.Enable(k, o.periodMs)
			}
		}
	}
	if len(cfg.EnabledKinds()) == 0 {
		return cfg, errors.New("no sensors enabled: use --temperature, --accelerometer, --gyroscope, --altimeter, --keys or --config")
	}
	return cfg, cfg.Validate()
}

func runStream(cmd *cobra.Command, root *rootOptions, opts *streamOptions, address string) error {
	printer, err := newEventPrinter(cmd.OutOrStdout(), opts.format)
	if err != nil {
		return err
	}

	client, cfg, err := openClient(cmd, root)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close(closeTimeout) }()

	sensors, err := opts.sensors(cfg.Sensors)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	unsubscribe := client.Subscribe(printer.Print)
	defer unsubscribe()

	if err := client.Configure(sensors); err != nil {
		return err
	}

	connectCtx, cancelConnect := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancelConnect()
	if err := client.ConnectAndWait(connectCtx, address); err != nil {
		return err
	}
	lost, cancelLost := client.Expect(func(e remotte.Event) bool { return e.IsConnection(sensor.Disconnected) })
	defer cancelLost()

	if opts.format == formatText {
		fmt.Fprintf(cmd.ErrOrStderr(), "Streaming from %s. Press Ctrl+C to stop...\n", address)
	}

	if _, err := lost(ctx); err == nil {
		return ErrConnectionLost
	}

	disconnectCtx, cancelDisconnect := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancelDisconnect()
	return client.DisconnectAndWait(disconnectCtx, address)
}
