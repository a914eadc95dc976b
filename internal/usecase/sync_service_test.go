package usecase

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/riskibarqy/fpl-sync/internal/domain/syncstate"
	"github.com/riskibarqy/fpl-sync/internal/platform/logging"
)

type syncFixture struct {
	svc       *SyncService
	provider  *stubProvider
	store     *memStateStore
	teamStats *memTeamStatsRepo
	entryRepo *memEntryRepo
}

// newSyncFixture wires a full cycle over a small world: teams 1 and 2,
// gameweeks 1-3 finished with one scored fixture each, gameweek 4 current,
// one tracked entry with one transfer on record.
func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()

	provider := &stubProvider{
		bootstrap: ExternalBootstrap{
			Teams: []ExternalTeam{
				{ID: 1, Name: "Arsenal", ShortName: "ARS", Code: 3},
				{ID: 2, Name: "Chelsea", ShortName: "CHE", Code: 8},
			},
			Players: []ExternalPlayer{
				{ID: 100, TeamID: 1, WebName: "Saka", ElementType: 3, Status: "a"},
				{ID: 200, TeamID: 2, WebName: "Palmer", ElementType: 3, Status: "a"},
			},
			Gameweeks: []ExternalGameweek{
				{ID: 1, Name: "Gameweek 1", DeadlineTime: time.Date(2025, 8, 15, 17, 30, 0, 0, time.UTC), Finished: true, IsPrevious: false},
				{ID: 2, Name: "Gameweek 2", DeadlineTime: time.Date(2025, 8, 22, 17, 30, 0, 0, time.UTC), Finished: true},
				{ID: 3, Name: "Gameweek 3", DeadlineTime: time.Date(2025, 8, 29, 17, 30, 0, 0, time.UTC), Finished: true, IsPrevious: true},
				{ID: 4, Name: "Gameweek 4", DeadlineTime: time.Date(2025, 9, 5, 17, 30, 0, 0, time.UTC), IsCurrent: true},
				{ID: 5, Name: "Gameweek 5", DeadlineTime: time.Date(2025, 9, 12, 17, 30, 0, 0, time.UTC), IsNext: true},
			},
		},
		liveStats:    make(map[int][]ExternalPlayerGameweekStat),
		liveStatsErr: make(map[int]error),
		entries: map[int64]ExternalEntry{
			500: {ID: 500, Name: "The Team", PlayerName: "Jo Manager", OverallPoints: 180, OverallRank: 90000},
		},
		histories: map[int64]ExternalEntryHistory{
			500: {Current: []ExternalEntryGameweekHistory{
				{GameweekID: 1, Points: 60, TotalPoints: 60, OverallRank: 90000},
			}},
		},
		transfers: map[int64][]ExternalEntryTransfer{
			500: {{GameweekID: 2, PlayerInID: 100, PlayerOutID: 200}},
		},
		picks: map[int64]ExternalEntryPicks{
			500: {GameweekID: 1, Picks: []ExternalEntryPick{{PlayerID: 100}}},
		},
	}
	for gw := 1; gw <= 3; gw++ {
		provider.fixtures = append(provider.fixtures, ExternalFixture{
			ID: gw, GameweekID: intPtr(gw), HomeTeamID: 1, AwayTeamID: 2,
			HomeScore: intPtr(1), AwayScore: intPtr(0), Finished: true,
			DifficultyHome: 2, DifficultyAway: 3,
		})
		provider.liveStats[gw] = []ExternalPlayerGameweekStat{
			{PlayerID: 100, Minutes: 90, TotalPoints: 6, FixtureID: gw},
			{PlayerID: 200, Minutes: 90, TotalPoints: 2, FixtureID: gw},
		}
	}
	provider.fixtures = append(provider.fixtures, ExternalFixture{
		ID: 4, GameweekID: intPtr(4), HomeTeamID: 1, AwayTeamID: 2,
	})

	teams := newMemTeamRepo()
	players := newMemPlayerRepo()
	gameweeks := newMemGameweekRepo()
	fixtures := newMemFixtureRepo()
	playerStats := newMemPlayerStatsRepo()
	teamStats := newMemTeamStatsRepo()
	entryRepo := newMemEntryRepo()
	store := &memStateStore{}

	logger := logging.NewNop()
	ingestion := NewIngestionService(teams, players, gameweeks, fixtures, playerStats, logger)
	aggregation := NewAggregationService(players, playerStats, fixtures, teamStats, logger)
	entries := NewEntryService(provider, entryRepo, logger)

	svc := NewSyncService(provider, ingestion, aggregation, entries, store, SyncConfig{
		MaxWorkers:      2,
		TrackedEntryIDs: []int64{500},
	}, logger)

	return &syncFixture{svc: svc, provider: provider, store: store, teamStats: teamStats, entryRepo: entryRepo}
}

// matchingFingerprint is the fingerprint a fully successful cycle over the
// fixture world would leave behind.
func matchingFingerprint() syncstate.Fingerprint {
	return syncstate.Fingerprint{
		FinishedGameweeks: map[int]bool{1: true, 2: true, 3: true},
		FixtureResults:    map[int]string{1: "1:0:1", 2: "1:0:1", 3: "1:0:1"},
		TransferCounts:    map[int64]int{500: 1},
		CurrentGameweek:   4,
		NextGameweek:      5,
	}
}

func TestRunCycle_PoolFailureFallsBackToSequential(t *testing.T) {
	t.Parallel()

	f := newSyncFixture(t)
	f.svc.newPool = func(int) (*ants.Pool, error) { return nil, errStub }

	result, err := f.svc.RunCycle(context.Background(), false)
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if result.Outcome != OutcomeRefreshed || len(result.ScopeErrors) != 0 {
		t.Fatalf("sequential fallback did not complete cleanly: %+v", result)
	}
	if result.GameweeksRefreshed != 4 {
		t.Fatalf("gameweeks refreshed = %d, want 4", result.GameweeksRefreshed)
	}
	for gw := 1; gw <= 3; gw++ {
		if _, ok := f.teamStats.get(1, gw); !ok {
			t.Fatalf("missing team aggregate for gameweek %d", gw)
		}
	}
}

func TestRunCycle_FullRefreshOnEmptyState(t *testing.T) {
	t.Parallel()

	f := newSyncFixture(t)
	result, err := f.svc.RunCycle(context.Background(), false)
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}

	if result.Outcome != OutcomeRefreshed {
		t.Fatalf("outcome = %s, want %s", result.Outcome, OutcomeRefreshed)
	}
	if result.GameweeksRefreshed != 4 {
		t.Fatalf("gameweeks refreshed = %d, want finished 1-3 plus current 4", result.GameweeksRefreshed)
	}
	if result.EntriesRefreshed != 1 {
		t.Fatalf("entries refreshed = %d, want 1", result.EntriesRefreshed)
	}

	for gw := 1; gw <= 3; gw++ {
		if _, ok := f.teamStats.get(1, gw); !ok {
			t.Fatalf("missing team aggregate for gameweek %d", gw)
		}
	}
	if _, found, _ := f.entryRepo.GetByID(context.Background(), 500); !found {
		t.Fatal("tracked entry not refreshed")
	}

	fp := f.store.current()
	if !fp.FinishedGameweeks[1] || !fp.FinishedGameweeks[2] || !fp.FinishedGameweeks[3] {
		t.Fatalf("fingerprint finished gameweeks = %v", fp.FinishedGameweeks)
	}
	if fp.CurrentGameweek != 4 || fp.NextGameweek != 5 {
		t.Fatalf("fingerprint pointers = %d/%d", fp.CurrentGameweek, fp.NextGameweek)
	}
	if fp.TransferCounts[500] != 1 {
		t.Fatalf("fingerprint transfer count = %d, want 1", fp.TransferCounts[500])
	}
	if fp.LastRunAt.IsZero() {
		t.Fatal("fingerprint last run not stamped")
	}
}

func TestRunCycle_NoChange(t *testing.T) {
	t.Parallel()

	f := newSyncFixture(t)
	f.store.fp = matchingFingerprint()

	result, err := f.svc.RunCycle(context.Background(), false)
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if result.Outcome != OutcomeNoChange {
		t.Fatalf("outcome = %s, want %s", result.Outcome, OutcomeNoChange)
	}
	if len(f.provider.liveStatsCalls) != 0 {
		t.Fatalf("no-change cycle fetched live stats for %v", f.provider.liveStatsCalls)
	}
	if f.store.saves != 1 {
		t.Fatalf("state saves = %d, want the timestamp refreshed once", f.store.saves)
	}
}

func TestRunCycle_ForceRefreshIgnoresFingerprint(t *testing.T) {
	t.Parallel()

	f := newSyncFixture(t)
	f.store.fp = matchingFingerprint()

	result, err := f.svc.RunCycle(context.Background(), true)
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if result.Outcome != OutcomeRefreshed {
		t.Fatalf("outcome = %s, want %s", result.Outcome, OutcomeRefreshed)
	}

	calls := append([]int(nil), f.provider.liveStatsCalls...)
	sort.Ints(calls)
	if len(calls) != 4 || calls[0] != 1 || calls[3] != 4 {
		t.Fatalf("live stat fetches = %v, want gameweeks 1-4", calls)
	}
}

func TestRunCycle_PartialFailureIsolation(t *testing.T) {
	t.Parallel()

	f := newSyncFixture(t)
	f.provider.liveStatsErr[2] = errStub

	result, err := f.svc.RunCycle(context.Background(), false)
	if err != nil {
		t.Fatalf("scope failure must not fail the cycle: %v", err)
	}
	if result.Outcome != OutcomeRefreshedWithErrors {
		t.Fatalf("outcome = %s, want %s", result.Outcome, OutcomeRefreshedWithErrors)
	}
	if len(result.ScopeErrors) != 1 {
		t.Fatalf("scope errors = %v, want exactly the gameweek 2 failure", result.ScopeErrors)
	}

	// Siblings still refreshed.
	if _, ok := f.teamStats.get(1, 1); !ok {
		t.Fatal("gameweek 1 should be refreshed despite gameweek 2 failing")
	}
	if _, ok := f.teamStats.get(1, 3); !ok {
		t.Fatal("gameweek 3 should be refreshed despite gameweek 2 failing")
	}
	if _, ok := f.teamStats.get(1, 2); ok {
		t.Fatal("gameweek 2 must not have aggregates after its fetch failed")
	}

	// The failed scope keeps its old fingerprint so it is re-detected.
	fp := f.store.current()
	if fp.FinishedGameweeks[2] {
		t.Fatal("fingerprint advanced for failed gameweek 2")
	}
	if !fp.FinishedGameweeks[1] || !fp.FinishedGameweeks[3] {
		t.Fatalf("fingerprint finished gameweeks = %v", fp.FinishedGameweeks)
	}
	if _, ok := fp.FixtureResults[2]; ok {
		t.Fatal("fixture checksum advanced for failed gameweek 2")
	}

	changes := DetectChanges(fp, mustSummary(t, f))
	found := false
	for _, signal := range changes.Gameweeks {
		if signal.GameweekID == 2 {
			found = true
		}
	}
	if !found {
		t.Fatalf("next cycle must re-detect gameweek 2, got %+v", changes.Gameweeks)
	}
}

func TestRunCycle_EntryFailureKeepsOldTransferCount(t *testing.T) {
	t.Parallel()

	f := newSyncFixture(t)
	f.provider.entryErr = map[int64]error{500: errStub}

	result, err := f.svc.RunCycle(context.Background(), false)
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if result.Outcome != OutcomeRefreshedWithErrors {
		t.Fatalf("outcome = %s, want %s", result.Outcome, OutcomeRefreshedWithErrors)
	}

	fp := f.store.current()
	if _, ok := fp.TransferCounts[500]; ok {
		t.Fatal("transfer count advanced for failed entry 500")
	}
}

func TestRunCycle_BootstrapFailureIsFatal(t *testing.T) {
	t.Parallel()

	f := newSyncFixture(t)
	f.provider.bootstrapErr = errStub

	result, err := f.svc.RunCycle(context.Background(), false)
	if err == nil {
		t.Fatal("expected error")
	}
	if result.Outcome != OutcomeFailed {
		t.Fatalf("outcome = %s, want %s", result.Outcome, OutcomeFailed)
	}
	if f.store.saves != 0 {
		t.Fatal("fingerprint must not advance on a fatal snapshot failure")
	}
}

func mustSummary(t *testing.T, f *syncFixture) SnapshotSummary {
	t.Helper()
	summary, failed := f.svc.buildSummary(context.Background(), f.provider.bootstrap, f.provider.fixtures)
	if len(failed) != 0 {
		t.Fatalf("summary fetch failures: %v", failed)
	}
	return summary
}
