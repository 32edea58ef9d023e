package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/chicane/internal/simulator"
)

// Default configuration constants.
const (
	defaultRiders        = 200
	defaultLaps          = 5
	defaultWorkers       = 2 // multiplier for runtime.NumCPU()
	defaultTimeout       = 30 * time.Second
	defaultSimTimeout    = 10 * time.Minute
	defaultSyncShare     = 0.2
	defaultDuplicateRate = 0.05
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		stageID    = flag.String("stage", "stage-1", "Stage ID to submit passages for")
		deviceID   = flag.String("device", "decoder-1", "Decoder device ID")
		riders     = flag.Int("riders", defaultRiders, "Number of riders on course")
		laps       = flag.Int("laps", defaultLaps, "Laps per rider")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		syncShare  = flag.Float64("sync-share", defaultSyncShare, "Fraction of passages held back and uploaded via /sync")
		dupRate    = flag.Float64("dup-rate", defaultDuplicateRate, "Fraction of live passages re-sent as duplicates")
		outputFile = flag.String("output", "", "Output file for generated passages (default: generated_passages_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file for simulation output (default: sim_log_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulator.ShowHelp()
		return
	}

	// Setup logging
	if err := simulator.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultSimTimeout)
	defer cancel()

	// Create simulation configuration
	config := &simulator.Config{
		BaseURL:       *baseURL,
		StageID:       *stageID,
		DeviceID:      *deviceID,
		NumRiders:     *riders,
		Laps:          *laps,
		Workers:       *workers,
		Timeout:       *timeout,
		SyncShare:     *syncShare,
		DuplicateRate: *dupRate,
		OutputFile:    *outputFile,
		LogFile:       *logFile,
		Verbose:       *verbose,
	}

	// Run the simulation
	if err := simulator.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		return
	}
}
