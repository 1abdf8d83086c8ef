package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/srg/remotte/scanner"
)

const formatTable = "table"

// newScanner builds the advertisement scanner (can be overridden in tests).
var newScanner = func(logger *logrus.Logger) *scanner.Scanner {
	return scanner.NewScanner(logger)
}

type scanOptions struct {
	duration   time.Duration
	format     string
	all        bool
	block      []string
	duplicates bool
}

type scanRecord struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	RSSI        int    `json:"rssi"`
	Variant     string `json:"variant"`
	Connectable bool   `json:"connectable"`
}

func newScanCmd() *cobra.Command {
	opts := &scanOptions{}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Find Remotte and SensorTag peripherals",
		Long: `Listens for advertisements and lists the Remotte and SensorTag peripherals
in range, strongest signal first. Peripherals are recognized by their
advertised name or sensor services.

Examples:
  # Default 30 second scan
  remotte scan

  # Every advertiser, as JSON
  remotte scan --all --format json --duration 5s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScan(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.DurationVarP(&opts.duration, "duration", "d", 30*time.Second, "Scan duration")
	f.StringVarP(&opts.format, "format", "f", formatTable, "Output format (table, json)")
	f.BoolVar(&opts.all, "all", false, "List every advertiser, not only known peripherals")
	f.StringSliceVar(&opts.block, "block", nil, "Hide devices with these addresses")
	f.BoolVar(&opts.duplicates, "no-duplicates", true, "Filter duplicate advertisements")
	return cmd
}

func runScan(cmd *cobra.Command, opts *scanOptions) error {
	if opts.format != formatTable && opts.format != formatJSON {
		return fmt.Errorf("invalid format: %s (must be %s or %s)", opts.format, formatTable, formatJSON)
	}
	if opts.duration <= 0 {
		return fmt.Errorf("invalid duration: %v", opts.duration)
	}

	logger, err := configureLogger(cmd, "verbose")
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stderr := cmd.ErrOrStderr()
	onFound := func(p scanner.Peripheral) {
		if opts.format == formatTable {
			fmt.Fprintf(stderr, "Found %s %s\n", p.Address, displayName(p))
		}
	}
	progress := func(phase string) {
		if opts.format == formatTable {
			fmt.Fprintf(stderr, "%s...\n", phase)
		}
	}

	found, err := newScanner(logger).Scan(ctx, &scanner.ScanOptions{
		Duration:        opts.duration,
		DuplicateFilter: opts.duplicates,
		BlockList:       opts.block,
		All:             opts.all,
	}, onFound, progress)
	if err != nil {
		return err
	}

	if opts.format == formatJSON {
		return printPeripheralsJSON(cmd.OutOrStdout(), found)
	}
	return printPeripheralsTable(cmd.OutOrStdout(), found)
}

func displayName(p scanner.Peripheral) string {
	if p.Name == "" {
		return "(unnamed)"
	}
	return p.Name
}

func printPeripheralsTable(out io.Writer, found []scanner.Peripheral) error {
	if len(found) == 0 {
		fmt.Fprintln(out, "No devices discovered")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tADDRESS\tRSSI\tVARIANT")
	for _, p := range found {
		name := displayName(p)
		if len(name) > 20 {
			name = name[:17] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%d dBm\t%s\n", name, p.Address, p.RSSI, p.Variant)
	}
	return w.Flush()
}

func printPeripheralsJSON(out io.Writer, found []scanner.Peripheral) error {
	records := make([]scanRecord, 0, len(found))
	for _, p := range found {
		records = append(records, scanRecord{
			Name:        p.Name,
			Address:     p.Address,
			RSSI:        p.RSSI,
			Variant:     p.Variant.String(),
			Connectable: p.Connectable,
		})
	}
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(records)
}
