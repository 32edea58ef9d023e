package simulator

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/okian/chicane/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	paceTypeDivisor    = 5
)

// Lap pace ranges in seconds. Riders are assigned a pace profile and
// every lap jitters around it, like a real field spreading out.
const (
	frontRunnerMin   = 82.0
	frontRunnerRange = 6.0
	midPackMin       = 90.0
	midPackRange     = 10.0
	backMarkerMin    = 102.0
	backMarkerRange  = 14.0
	lapJitterRange   = 4.0
)

// Pace profile cases.
const (
	caseFrontRunner = 0
	caseMidPack     = 1
	caseBackMarker  = 2
)

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// generatePassages creates every rider's full lap sequence for the stage.
// Passages carry monotonically increasing timestamps per rider but are
// returned interleaved across the field, the way a start line sees them.
func generatePassages(ctx context.Context, config *Config, stats *Stats) ([]Passage, error) {
	logger.Get().Info(ctx, "generating rider passages",
		logger.Int("riders", config.NumRiders),
		logger.Int("laps", config.Laps))

	start := time.Now().UTC()

	// One timeline slice per rider, then interleave by crossing time so
	// submission order resembles live traffic.
	perRider := make([][]timedPassage, config.NumRiders)
	for r := 0; r < config.NumRiders; r++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		perRider[r] = generateRiderLaps(config, r+1, start)
	}

	passages := make([]Passage, 0, config.NumRiders*config.Laps)
	cursors := make([]int, config.NumRiders)
	for {
		best := -1
		var bestAt time.Time
		for r := 0; r < config.NumRiders; r++ {
			if cursors[r] >= len(perRider[r]) {
				continue
			}
			at := perRider[r][cursors[r]].at
			if best == -1 || at.Before(bestAt) {
				best = r
				bestAt = at
			}
		}
		if best == -1 {
			break
		}
		passages = append(passages, perRider[best][cursors[best]].passage)
		cursors[best]++
	}

	stats.PassagesGenerated = len(passages)
	logger.Get().Info(ctx, "generated passages successfully", logger.Int("count", len(passages)))

	return passages, nil
}

// timedPassage pairs a passage with its crossing time for interleaving.
type timedPassage struct {
	at      time.Time
	passage Passage
}

// generateRiderLaps produces one rider's lap crossings with a stable pace
// profile and per-lap jitter.
func generateRiderLaps(config *Config, riderNumber int, stageStart time.Time) []timedPassage {
	pace := generatePaceSeconds()
	ts := stageStart

	laps := make([]timedPassage, 0, config.Laps)
	for lap := 1; lap <= config.Laps; lap++ {
		lapSeconds := pace + (getRandomFloat()-0.5)*lapJitterRange
		ts = ts.Add(time.Duration(lapSeconds * float64(time.Second)))

		laps = append(laps, timedPassage{
			at: ts,
			passage: Passage{
				PassageID: uuid.New().String(),
				DeviceID:  config.DeviceID,
				Rider:     riderNumber,
				StageID:   config.StageID,
				Kind:      "passage",
				TS:        ts.Format(time.RFC3339Nano),
			},
		})
	}
	return laps
}

// generatePaceSeconds assigns a rider's base lap time from a spread of
// pace profiles.
func generatePaceSeconds() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(paceTypeDivisor))
	switch n.Int64() {
	case caseFrontRunner:
		return frontRunnerMin + getRandomFloat()*frontRunnerRange
	case caseMidPack, caseBackMarker:
		return midPackMin + getRandomFloat()*midPackRange
	default:
		return backMarkerMin + getRandomFloat()*backMarkerRange
	}
}

// splitForSync carves off the tail of each rider's timeline to be uploaded
// later as offline sync batches. The held-back share arrives out of order,
// which is exactly the reconciliation path under test.
func splitForSync(passages []Passage, share float64) (live, held []Passage) {
	if share <= 0 {
		return passages, nil
	}
	cut := len(passages) - int(float64(len(passages))*share)
	// Copies, not subslices: duplicate injection appends to the live share
	// and must not clobber the original slice's tail.
	live = make([]Passage, cut)
	copy(live, passages[:cut])

	held = make([]Passage, len(passages[cut:]))
	copy(held, passages[cut:])
	// Reverse the held share so the batch arrives newest first.
	for i, j := 0, len(held)-1; i < j; i, j = i+1, j-1 {
		held[i], held[j] = held[j], held[i]
	}
	return live, held
}

// injectDuplicates re-appends a sample of passages verbatim to exercise
// replay detection.
func injectDuplicates(passages []Passage, rate float64) []Passage {
	if rate <= 0 {
		return passages
	}
	out := passages
	for _, p := range passages {
		if getRandomFloat() < rate {
			out = append(out, p)
		}
	}
	return out
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
