package simulator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/chicane/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Default sync batch sizing.
const (
	syncBatchSize = 200
)

// Run executes the complete passage simulation.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting passage simulation",
		logger.String("baseURL", config.BaseURL),
		logger.String("stage", config.StageID),
		logger.String("device", config.DeviceID),
		logger.Int("riders", config.NumRiders),
		logger.Int("laps", config.Laps),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate the field's passages
	passages, err := generatePassages(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("passage generation failed: %w", err)
	}

	// Step 3: Hold back a share for offline sync, duplicate a sample of
	// the live traffic, then submit the live share concurrently
	live, held := splitForSync(passages, config.SyncShare)
	live = injectDuplicates(live, config.DuplicateRate)

	if err := submitLivePassages(ctx, config, live, stats); err != nil {
		return fmt.Errorf("live submission failed: %w", err)
	}

	// Step 4: Wait for the live queue to drain
	logger.Get().Info(ctx, "waiting for live passages to be processed")
	time.Sleep(DrainDelay)

	// Step 5: Upload the held-back share through sync batches
	if err := submitSyncBatches(ctx, config, held, syncBatchSize, stats); err != nil {
		return fmt.Errorf("sync upload failed: %w", err)
	}

	// Step 6: Retrieve the reconciled timeline
	rows, err := retrieveTimeline(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("timeline retrieval failed: %w", err)
	}

	// Step 7: Verify results
	if err := verifyResults(config, rows, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 8: Save passages to file
	if err := savePassagesToFile(ctx, config, passages); err != nil {
		logger.Get().Warn(ctx, "failed to save passages to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "simulation completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// savePassagesToFile saves the generated passages to a JSON file.
func savePassagesToFile(ctx context.Context, config *Config, passages []Passage) error {
	if len(passages) == 0 {
		return fmt.Errorf("no passages to save")
	}

	// Determine output filename
	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_passages_" + timestamp + ".json"
	}

	// Ensure the directory exists
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	// Write JSON array
	if _, err := file.WriteString("[\n"); err != nil {
		return fmt.Errorf("failed to write opening bracket: %w", err)
	}

	for i, p := range passages {
		jsonData, err := marshalJSON(p)
		if err != nil {
			return fmt.Errorf("failed to marshal passage %d: %w", i, err)
		}

		if _, err := file.Write(jsonData); err != nil {
			return fmt.Errorf("failed to write passage %d: %w", i, err)
		}

		if i < len(passages)-1 {
			if _, err := file.WriteString(","); err != nil {
				return fmt.Errorf("failed to write comma: %w", err)
			}
		}
		_, _ = file.WriteString("\n")
	}

	if _, err := file.WriteString("]\n"); err != nil {
		return fmt.Errorf("failed to write closing bracket: %w", err)
	}

	logger.Get().Info(ctx, "passages saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final simulation statistics.
func displayFinalStats(stats *Stats) {
	var acceptRate, passagesPerSecond float64

	if stats.PassagesSubmitted > 0 {
		acceptRate = float64(stats.PassagesAccepted) / float64(stats.PassagesSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		passagesPerSecond = float64(stats.PassagesSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("passagesGenerated", stats.PassagesGenerated),
		logger.Int("passagesSubmitted", stats.PassagesSubmitted),
		logger.Int("passagesAccepted", stats.PassagesAccepted),
		logger.Int("passagesThrottled", stats.PassagesThrottled),
		logger.Int("passagesFailed", stats.PassagesFailed),
		logger.Int("syncBatchesSent", stats.SyncBatchesSent),
		logger.Int("syncAccepted", stats.SyncAccepted),
		logger.Int("timelineRows", stats.TimelineRows),
		logger.Int("timelineDiscards", stats.TimelineDiscards),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("passagesPerSecond", passagesPerSecond))
}
