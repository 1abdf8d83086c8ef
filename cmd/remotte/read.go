package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/srg/remotte/internal/sensor"
)

type readOptions struct {
	hex     bool
	timeout time.Duration
}

func newReadCmd(root *rootOptions) *cobra.Command {
	opts := &readOptions{}

	names := make([]string, 0, len(sensor.Attributes()))
	for _, a := range sensor.Attributes() {
		names = append(names, a.String())
	}

	cmd := &cobra.Command{
		Use:   "read <device-address> <attribute>",
		Short: "Read a device attribute",
		Long: fmt.Sprintf(`Connects, reads one attribute and disconnects.

Attributes: %[2]s

Examples:
  # Battery level
  remotte read %[1]s battery

  # Raw firmware revision bytes
  remotte read %[1]s firmware --hex`, exampleDeviceAddress, strings.Join(names, ", ")),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRead(cmd, root, opts, args[0], args[1])
		},
	}

	cmd.Flags().BoolVar(&opts.hex, "hex", false, "Print the raw value as hex")
	cmd.Flags().DurationVar(&opts.timeout, "read-timeout", 5*time.Second, "Read timeout")
	return cmd
}

func runRead(cmd *cobra.Command, root *rootOptions, opts *readOptions, address, name string) error {
	attr, err := sensor.ParseAttribute(name)
	if err != nil {
		return err
	}

	client, cfg, err := openClient(cmd, root)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close(closeTimeout) }()

	cmd.SilenceUsage = true

	ctx := cmd.Context()

	connectCtx, cancelConnect := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancelConnect()
	if err := client.ConnectAndWait(connectCtx, address); err != nil {
		return err
	}

	readCtx, cancelRead := context.WithTimeout(ctx, opts.timeout)
	defer cancelRead()
	reading, readErr := client.ReadAttributeAndWait(readCtx, attr)
	if readErr == nil {
		if opts.hex {
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(reading.Value))
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), reading.String())
		}
	}

	disconnectCtx, cancelDisconnect := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancelDisconnect()
	if err := client.DisconnectAndWait(disconnectCtx, address); err != nil && readErr == nil {
		return err
	}
	if readErr != nil {
		return fmt.Errorf("failed to read %s: %w", attr, readErr)
	}
	return nil
}
