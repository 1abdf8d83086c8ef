package testutils

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// QuietLogger returns a logger that discards output unless REMOTTE_TEST_LOG is set,
// in which case it logs at debug level to stderr to trace execution flow.
func QuietLogger() *logrus.Logger {
	logger := logrus.New()
	if os.Getenv("REMOTTE_TEST_LOG") != "" {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetOutput(os.Stderr)
		return logger
	}
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.PanicLevel)
	return logger
}
