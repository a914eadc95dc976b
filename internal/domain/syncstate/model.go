package syncstate

import "time"

// Fingerprint is the compact summary of the last successfully synchronized
// upstream snapshot. It is loaded once at startup and written back only
// after a cycle fully succeeds for the scopes it covers, so any scope that
// failed keeps its old value and is retried on the next cycle.
type Fingerprint struct {
	FinishedGameweeks map[int]bool   `json:"finished_gameweeks"`
	FixtureResults    map[int]string `json:"fixture_results"`
	TransferCounts    map[int64]int  `json:"transfer_counts"`
	CurrentGameweek   int            `json:"current_gameweek"`
	NextGameweek      int            `json:"next_gameweek"`
	LastRunAt         time.Time      `json:"last_run_at"`
}

// Empty reports whether the fingerprint carries no prior observations,
// which forces a full refresh.
func (f Fingerprint) Empty() bool {
	return len(f.FinishedGameweeks) == 0 &&
		len(f.FixtureResults) == 0 &&
		len(f.TransferCounts) == 0 &&
		f.CurrentGameweek == 0 &&
		f.NextGameweek == 0
}

// FinishedCount returns the number of gameweeks recorded as finished.
func (f Fingerprint) FinishedCount() int {
	count := 0
	for _, finished := range f.FinishedGameweeks {
		if finished {
			count++
		}
	}
	return count
}

// Clone returns a deep copy so cycle bookkeeping never mutates the loaded state.
func (f Fingerprint) Clone() Fingerprint {
	out := Fingerprint{
		FinishedGameweeks: make(map[int]bool, len(f.FinishedGameweeks)),
		FixtureResults:    make(map[int]string, len(f.FixtureResults)),
		TransferCounts:    make(map[int64]int, len(f.TransferCounts)),
		CurrentGameweek:   f.CurrentGameweek,
		NextGameweek:      f.NextGameweek,
		LastRunAt:         f.LastRunAt,
	}
	for k, v := range f.FinishedGameweeks {
		out.FinishedGameweeks[k] = v
	}
	for k, v := range f.FixtureResults {
		out.FixtureResults[k] = v
	}
	for k, v := range f.TransferCounts {
		out.TransferCounts[k] = v
	}
	return out
}
