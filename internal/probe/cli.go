package probe

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/happymap/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging initialises the logger, writing to the console and, when
// logFile is set, to that file too.
func SetupLogging(logFile string, verbose bool) error {
	level := "info"
	if verbose {
		level = "debug"
	}
	var w io.Writer = os.Stdout
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
	}
	if err := logger.Init(logger.WithWriter(w), logger.WithLevel(level)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// ShowHelp prints usage information for the probe tool.
func ShowHelp() {
	os.Stdout.WriteString(`Happiness Dashboard Probe
=========================

Drives a running dashboard through every control and checks that the views
stay consistent: filtered counts, playback wrap, highlight and reset.

Usage:
  go run ./cmd/probe [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -sessions int
        Number of sessions to drive (default 20)
  -workers int
        Number of concurrent workers (default CPU cores)
  -timeout duration
        HTTP request timeout (default 10s)
  -output string
        JSON report file (default: none)
  -log string
        Log file in addition to stdout (default: none)
  -verbose
        Log every session
  -help
        Show this help message

Examples:
  go run ./cmd/probe -sessions 100 -workers 16
  go run ./cmd/probe -url http://localhost:8080 -output reports/probe.json
`)
}
