package simulator

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/okian/chicane/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "sim_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the passage simulator.
func ShowHelp() {
	os.Stdout.WriteString(`Chicane Passage Simulator
=========================

A concurrent load and reconciliation tool for the chicane timing service.
The target stage, device, and rider registrations must be seeded in the
service configuration before a run.

Usage:
  go run cmd/passage-sim/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -stage string
        Stage ID to submit passages for (default "stage-1")
  -device string
        Decoder device ID (default "decoder-1")
  -riders int
        Number of riders on course (default 200)
  -laps int
        Laps per rider (default 5)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -sync-share float
        Fraction of passages held back and uploaded via /sync (default 0.2)
  -dup-rate float
        Fraction of live passages re-sent as duplicates (default 0.05)
  -output string
        Output file for generated passages (default: generated_passages_TIMESTAMP.json)
  -log string
        Log file for simulation output (default: sim_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Simulate with default settings
  go run cmd/passage-sim/main.go

  # Bigger field, all live traffic
  go run cmd/passage-sim/main.go -riders 500 -laps 10 -sync-share 0

  # Stress the offline reconciliation path
  go run cmd/passage-sim/main.go -sync-share 0.8 -dup-rate 0.2 -verbose
`)
}
