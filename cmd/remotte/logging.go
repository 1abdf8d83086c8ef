package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/srg/remotte/pkg/config"
)

// cliLogLevels are the values --log-level accepts.
var cliLogLevels = []string{"debug", "info", "warn", "error"}

// configureLogger builds the command logger from --log-level and --verbose,
// --log-level taking precedence. With neither set the logger stays silent.
func configureLogger(cmd *cobra.Command, verboseFlagName string) (*logrus.Logger, error) {
	cfg := &config.Config{LogLevel: logrus.PanicLevel.String()}

	if name, _ := cmd.Flags().GetString("log-level"); name != "" {
		if !slices.Contains(cliLogLevels, name) {
			return nil, fmt.Errorf("invalid log level: %s (must be %s)", name, strings.Join(cliLogLevels, ", "))
		}
		cfg.LogLevel = name
	} else if verbose, _ := cmd.Flags().GetBool(verboseFlagName); verbose {
		cfg.LogLevel = logrus.DebugLevel.String()
	}

	logger := cfg.NewLogger()
	logger.SetOutput(cmd.ErrOrStderr())
	return logger, nil
}
