package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/srg/remotte/internal/sensor"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const exampleDeviceAddress = "B0:B4:48:C9:4E:83"

// formatVersion adds 'v' prefix if version starts with a digit
func formatVersion(ver string) string {
	if len(ver) > 0 && unicode.IsDigit(rune(ver[0])) {
		return "v" + ver
	}
	return ver
}

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	variant    sensor.Variant
	timeout    time.Duration
}

// newRootCmd builds the command tree. Each call returns fresh flag state.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "remotte",
		Short: "Remotte and SensorTag BLE sensor client",
		Long: `Connects to a Remotte remote or a TI SensorTag over Bluetooth Low Energy:

- Find peripherals in range
- Stream temperature, accelerometer, gyroscope, altimeter and key events
- Read battery level and device information
- Drive the Remotte vibrator and buzzer

Sensors can be selected with flags or a YAML profile (--config).`,
		Version: fmt.Sprintf("%s (commit %s, built %s)", formatVersion(version), commit, date),
		// Silence Cobra's "Error:" prefix - main() prints clean errors
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.Bool("verbose", false, "Verbose logging (same as --log-level debug)")
	flags.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	flags.Var(&opts.variant, "variant", "Peripheral variant (remotte, sensortag)")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "Connection timeout")

	root.AddCommand(newScanCmd())
	root.AddCommand(newStreamCmd(opts))
	root.AddCommand(newReadCmd(opts))
	root.AddCommand(newHapticCmd(opts))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Ctrl+C is a normal exit, not an error - exit silently
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", FormatUserError(err))
		os.Exit(1)
	}
}
