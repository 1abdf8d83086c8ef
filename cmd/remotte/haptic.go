package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/srg/remotte/internal/capability"
	"github.com/srg/remotte/internal/device"
)

type hapticOptions struct {
	vibrator bool
	buzzer   bool
	hold     time.Duration
}

func newHapticCmd(root *rootOptions) *cobra.Command {
	opts := &hapticOptions{}

	cmd := &cobra.Command{
		Use:   "haptic <device-address>",
		Short: "Drive the Remotte vibrator and buzzer",
		Long: fmt.Sprintf(`Connects to a Remotte, switches on the selected actuators, waits for
--hold and disconnects. SensorTag peripherals have no actuators.

Examples:
  # Vibrate for two seconds
  remotte haptic %[1]s --vibrator --hold 2s

  # Vibrate and beep
  remotte haptic %[1]s --vibrator --buzzer`, exampleDeviceAddress),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHaptic(cmd, root, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.vibrator, "vibrator", false, "Enable the vibrator")
	cmd.Flags().BoolVar(&opts.buzzer, "buzzer", false, "Enable the buzzer")
	cmd.Flags().DurationVar(&opts.hold, "hold", time.Second, "How long to stay connected after enabling")
	return cmd
}

func runHaptic(cmd *cobra.Command, root *rootOptions, opts *hapticOptions, address string) error {
	if !opts.vibrator && !opts.buzzer {
		return errors.New("nothing to do: use --vibrator and/or --buzzer")
	}

	client, cfg, err := openClient(cmd, root)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close(closeTimeout) }()

	if _, _, ok := capability.MustFor(cfg.Sensors.Variant).Haptic(); !ok {
		return fmt.Errorf("%w: %s has no haptic actuators", device.ErrUnsupported, cfg.Sensors.Variant)
	}

	cmd.SilenceUsage = true

	ctx := cmd.Context()

	connectCtx, cancelConnect := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancelConnect()
	if err := client.ConnectAndWait(connectCtx, address); err != nil {
		return err
	}

	hapticErr := client.EnableHaptic(opts.vibrator, opts.buzzer)
	if hapticErr == nil {
		select {
		case <-time.After(opts.hold):
		case <-ctx.Done():
		}
	}

	// Queued behind the haptic write, so the write goes out first.
	disconnectCtx, cancelDisconnect := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancelDisconnect()
	if err := client.DisconnectAndWait(disconnectCtx, address); err != nil && hapticErr == nil {
		return err
	}
	return hapticErr
}
