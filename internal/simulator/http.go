package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := marshalJSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// marshalJSON marshals a struct to JSON
func marshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// unmarshalJSON unmarshals JSON to a struct
func unmarshalJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitLivePassages submits passages concurrently using worker pools
func submitLivePassages(ctx context.Context, config *Config, passages []Passage, stats *Stats) error {
	log.Printf("submitting %d live passages with %d workers...", len(passages), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/passages"

	// Counters for statistics
	var (
		accepted  int64
		throttled int64
		failed    int64
		submitted int64
	)

	// Progress reporting
	var lastReport time.Time
	reportInterval := 1 * time.Second

	// Create worker pool
	passageChan := make(chan Passage, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for p := range passageChan {
				select {
				case <-ctx.Done():
					return
				default:
					result := submitSinglePassage(ctx, client, url, p)

					atomic.AddInt64(&submitted, 1)
					switch result {
					case "accepted":
						atomic.AddInt64(&accepted, 1)
					case "throttled":
						atomic.AddInt64(&throttled, 1)
					case "failed":
						atomic.AddInt64(&failed, 1)
					}

					// Progress reporting
					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&submitted)
						acc := atomic.LoadInt64(&accepted)
						thr := atomic.LoadInt64(&throttled)
						fail := atomic.LoadInt64(&failed)

						if config.Verbose {
							log.Printf("progress: %d/%d submitted (accepted: %d, throttled: %d, failed: %d)",
								total, len(passages), acc, thr, fail)
						} else {
							fmt.Printf("\rsubmitted: %d/%d (accepted: %d, throttled: %d, failed: %d)",
								total, len(passages), acc, thr, fail)
						}
					}
				}
			}
		}(i)
	}

	// Send passages to workers
	go func() {
		defer close(passageChan)
		for _, p := range passages {
			select {
			case <-ctx.Done():
				return
			case passageChan <- p:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	if !config.Verbose {
		fmt.Println() // New line after progress indicator
	}

	stats.PassagesSubmitted = int(atomic.LoadInt64(&submitted))
	stats.PassagesAccepted = int(atomic.LoadInt64(&accepted))
	stats.PassagesThrottled = int(atomic.LoadInt64(&throttled))
	stats.PassagesFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`live submission completed:
   Accepted: %d
   Throttled: %d
   Failed: %d
`, stats.PassagesAccepted, stats.PassagesThrottled, stats.PassagesFailed)

	return nil
}

// submitSinglePassage submits a single passage and returns the result
func submitSinglePassage(ctx context.Context, client *HTTPClient, url string, p Passage) string {
	resp, err := client.Post(ctx, url, p)
	if err != nil {
		return "failed"
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return "failed"
	}

	switch resp.StatusCode {
	case StatusAccepted:
		var ack AckResponse
		if err := unmarshalJSON(body, &ack); err == nil && ack.Status == "accepted" {
			return "accepted"
		}
		return "accepted" // Assume accepted for 202 even if parsing fails
	case StatusTooManyRequests:
		return "throttled"
	default:
		return "failed"
	}
}

// syncRequest is the wire shape of a batch upload.
type syncRequest struct {
	DeviceID string    `json:"device_id"`
	Passages []Passage `json:"passages"`
}

// submitSyncBatches uploads the held-back passages in chunks through the
// offline sync endpoint and aggregates the merge reports.
func submitSyncBatches(ctx context.Context, config *Config, held []Passage, batchSize int, stats *Stats) error {
	if len(held) == 0 {
		return nil
	}
	log.Printf("uploading %d buffered passages via sync in batches of %d...", len(held), batchSize)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/sync"

	for start := 0; start < len(held); start += batchSize {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		end := minInt(start+batchSize, len(held))
		req := syncRequest{DeviceID: config.DeviceID, Passages: held[start:end]}

		resp, err := client.Post(ctx, url, req)
		if err != nil {
			return fmt.Errorf("sync batch failed: %w", err)
		}
		body, err := readResponseBody(resp)
		if err != nil {
			return fmt.Errorf("failed to read sync response: %w", err)
		}
		if resp.StatusCode != StatusOK {
			return fmt.Errorf("sync batch HTTP %d: %s", resp.StatusCode, string(body))
		}

		var report MergeReport
		if err := unmarshalJSON(body, &report); err != nil {
			return fmt.Errorf("failed to parse merge report: %w", err)
		}

		stats.SyncBatchesSent++
		stats.SyncAccepted += report.Accepted
		stats.SyncDiscarded += report.Discarded

		if config.Verbose {
			log.Printf("sync batch %s: accepted=%d rejected=%d discarded=%d failed=%d",
				report.SyncID, report.Accepted, report.Rejected, report.Discarded, report.Failed)
		}
	}

	log.Printf("sync upload completed: %d batches, %d accepted, %d discarded",
		stats.SyncBatchesSent, stats.SyncAccepted, stats.SyncDiscarded)
	return nil
}
