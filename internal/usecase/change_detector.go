package usecase

import (
	"sort"

	"github.com/riskibarqy/fpl-sync/internal/domain/syncstate"
)

// GameweekReason records why a gameweek needs a refresh. Finished wins over
// a fixture correction, which wins over a pointer move, when several apply.
type GameweekReason string

const (
	ReasonGameweekFinished  GameweekReason = "gameweek_finished"
	ReasonFixtureCorrection GameweekReason = "fixture_correction"
	ReasonPointerMoved      GameweekReason = "pointer_moved"
	ReasonFullRefresh       GameweekReason = "full_refresh"
)

var gameweekReasonRank = map[GameweekReason]int{
	ReasonFullRefresh:       0,
	ReasonGameweekFinished:  1,
	ReasonFixtureCorrection: 2,
	ReasonPointerMoved:      3,
}

type GameweekSignal struct {
	GameweekID int
	Reason     GameweekReason
}

type EntrySignal struct {
	EntryID int64
}

// ChangeSet is the detector output: the gameweek and entry scopes the
// orchestrator must refresh this cycle, in deterministic order.
type ChangeSet struct {
	Gameweeks []GameweekSignal
	Entries   []EntrySignal
}

func (c ChangeSet) Empty() bool {
	return len(c.Gameweeks) == 0 && len(c.Entries) == 0
}

// SnapshotSummary is the compact view of a fresh upstream snapshot that
// change detection compares against the stored fingerprint. FixtureResults
// holds checksums only for fixtures with a recorded score.
type SnapshotSummary struct {
	FinishedGameweeks map[int]bool
	FixtureResults    map[int]string
	FixtureGameweeks  map[int]int
	TransferCounts    map[int64]int
	CurrentGameweek   int
	NextGameweek      int
}

// DetectChanges compares the previous fingerprint against the fresh summary
// and returns the scopes to refresh. It performs no I/O and running it twice
// on the same inputs yields the same set. An empty fingerprint forces a full
// refresh of every finished gameweek and every tracked entry.
func DetectChanges(prev syncstate.Fingerprint, fresh SnapshotSummary) ChangeSet {
	gwReasons := make(map[int]GameweekReason)
	entries := make(map[int64]bool)

	addGameweek := func(id int, reason GameweekReason) {
		if id <= 0 {
			return
		}
		current, ok := gwReasons[id]
		if !ok || gameweekReasonRank[reason] < gameweekReasonRank[current] {
			gwReasons[id] = reason
		}
	}

	if prev.Empty() {
		for id, finished := range fresh.FinishedGameweeks {
			if finished {
				addGameweek(id, ReasonFullRefresh)
			}
		}
		addGameweek(fresh.CurrentGameweek, ReasonFullRefresh)
		for entryID := range fresh.TransferCounts {
			entries[entryID] = true
		}
		return buildChangeSet(gwReasons, entries)
	}

	for id, finished := range fresh.FinishedGameweeks {
		if finished && !prev.FinishedGameweeks[id] {
			addGameweek(id, ReasonGameweekFinished)
		}
	}

	// Late corrections: a changed checksum re-triggers the pair even for
	// gameweeks that finished long ago.
	for fixtureID, checksum := range fresh.FixtureResults {
		if prev.FixtureResults[fixtureID] != checksum {
			addGameweek(fresh.FixtureGameweeks[fixtureID], ReasonFixtureCorrection)
		}
	}

	if fresh.CurrentGameweek != prev.CurrentGameweek || fresh.NextGameweek != prev.NextGameweek {
		addGameweek(fresh.CurrentGameweek, ReasonPointerMoved)
	}

	for entryID, count := range fresh.TransferCounts {
		if count > prev.TransferCounts[entryID] {
			entries[entryID] = true
		}
	}

	return buildChangeSet(gwReasons, entries)
}

func buildChangeSet(gwReasons map[int]GameweekReason, entries map[int64]bool) ChangeSet {
	out := ChangeSet{
		Gameweeks: make([]GameweekSignal, 0, len(gwReasons)),
		Entries:   make([]EntrySignal, 0, len(entries)),
	}
	for id, reason := range gwReasons {
		out.Gameweeks = append(out.Gameweeks, GameweekSignal{GameweekID: id, Reason: reason})
	}
	sort.SliceStable(out.Gameweeks, func(i, j int) bool {
		return out.Gameweeks[i].GameweekID < out.Gameweeks[j].GameweekID
	})
	for entryID := range entries {
		out.Entries = append(out.Entries, EntrySignal{EntryID: entryID})
	}
	sort.SliceStable(out.Entries, func(i, j int) bool {
		return out.Entries[i].EntryID < out.Entries[j].EntryID
	})
	return out
}
