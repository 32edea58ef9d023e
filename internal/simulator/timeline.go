package simulator

import (
	"context"
	"fmt"
	"log"
	"net/url"
)

// retrieveTimeline fetches the committed timeline for the simulated stage.
func retrieveTimeline(ctx context.Context, config *Config, stats *Stats) ([]TimelineRow, error) {
	log.Printf("retrieving timeline for stage %s...", config.StageID)

	client := newHTTPClient(config.Timeout)
	endpoint := config.BaseURL + "/timeline?stage=" + url.QueryEscape(config.StageID)

	resp, err := client.Get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var rows []TimelineRow
	if err := unmarshalJSON(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	stats.TimelineRows = len(rows)
	for _, row := range rows {
		if row.Discarded {
			stats.TimelineDiscards++
		}
	}

	log.Printf("retrieved %d timeline rows (%d discarded)", stats.TimelineRows, stats.TimelineDiscards)
	return rows, nil
}
