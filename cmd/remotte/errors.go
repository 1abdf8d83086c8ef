package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/srg/remotte/internal/device"
	"github.com/srg/remotte/pkg/remotte"
)

// Command-level errors
var (
	// ErrConnectionLost indicates the link dropped while streaming.
	// This is distinct from device.ErrNotConnected, which indicates an attempt to use
	// a device that was never connected or was already disconnected.
	ErrConnectionLost = errors.New("connection lost")
)

// FormatUserError turns internal errors into a one-line message for the terminal.
func FormatUserError(err error) string {
	var nf *device.NotFoundError
	switch {
	case errors.Is(err, device.ErrBluetoothOff):
		return "Bluetooth is turned off or no adapter is available"
	case errors.Is(err, remotte.ErrConnectionFailed):
		return fmt.Sprintf("could not connect: %v", err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, device.ErrTimeout):
		return fmt.Sprintf("timed out: %v", err)
	case errors.Is(err, ErrConnectionLost):
		return "connection to the peripheral was lost"
	case errors.As(err, &nf):
		return nf.Error()
	default:
		return err.Error()
	}
}
