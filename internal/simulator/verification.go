package simulator

import (
	"fmt"
	"log"
	"sort"
)

// verifyResults checks the reconciled timeline against the generated field.
func verifyResults(config *Config, rows []TimelineRow, stats *Stats) error {
	log.Println("verifying timeline...")

	if len(rows) == 0 {
		return fmt.Errorf("no timeline rows to verify")
	}

	accepted := make(map[int][]TimelineRow, config.NumRiders)
	for _, row := range rows {
		if row.Discarded {
			continue
		}
		accepted[row.Rider] = append(accepted[row.Rider], row)
	}

	var incomplete, gappy int
	for rider, marks := range accepted {
		sort.Slice(marks, func(i, j int) bool { return marks[i].Index < marks[j].Index })

		if len(marks) != config.Laps {
			incomplete++
			if config.Verbose {
				log.Printf("rider %d has %d of %d laps", rider, len(marks), config.Laps)
			}
		}
		for i, m := range marks {
			if m.Index != i+1 {
				gappy++
				if config.Verbose {
					log.Printf("rider %d lap sequence gap at index %d", rider, m.Index)
				}
				break
			}
		}
	}

	if len(accepted) != config.NumRiders {
		log.Printf("warning: timeline covers %d of %d riders", len(accepted), config.NumRiders)
	}
	if incomplete > 0 {
		log.Printf("warning: %d riders have incomplete lap sets", incomplete)
	}
	if gappy > 0 {
		return fmt.Errorf("%d riders have gaps in their lap sequence", gappy)
	}

	displayLeaders(accepted, config.Laps)

	log.Println("timeline verification completed")
	return nil
}

// displayLeaders prints the riders that completed the full distance, in
// finishing order of their last lap.
func displayLeaders(accepted map[int][]TimelineRow, laps int) {
	type finisher struct {
		rider int
		last  TimelineRow
	}

	finishers := make([]finisher, 0, len(accepted))
	for rider, marks := range accepted {
		if len(marks) == laps {
			finishers = append(finishers, finisher{rider: rider, last: marks[len(marks)-1]})
		}
	}
	sort.Slice(finishers, func(i, j int) bool { return finishers[i].rider < finishers[j].rider })

	topN := minInt(10, len(finishers))
	log.Printf("%d riders completed all %d laps; first %d:", len(finishers), laps, topN)
	for i := 0; i < topN; i++ {
		f := finishers[i]
		log.Printf("   #%d final lap %s", f.rider, f.last.ElapsedDisplay)
	}
}
