package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/happymap/internal/probe"
)

// Default configuration constants.
const (
	defaultSessions     = 20
	defaultTimeout      = 10 * time.Second
	defaultProbeTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		sessions   = flag.Int("sessions", defaultSessions, "Number of sessions to drive")
		workers    = flag.Int("workers", runtime.NumCPU(), "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "JSON report file")
		logFile    = flag.String("log", "", "Log file in addition to stdout")
		verbose    = flag.Bool("verbose", false, "Log every session")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		probe.ShowHelp()
		return
	}

	if err := probe.SetupLogging(*logFile, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultProbeTimeout)
	defer cancel()

	cfg := &probe.Config{
		BaseURL:    *baseURL,
		Sessions:   max(*sessions, 1),
		Workers:    max(*workers, 1),
		Timeout:    *timeout,
		OutputFile: *outputFile,
		Verbose:    *verbose,
	}

	if _, err := probe.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Probe failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
