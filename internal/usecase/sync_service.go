package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/sourcegraph/conc/pool"

	"github.com/riskibarqy/fpl-sync/internal/domain/fixture"
	"github.com/riskibarqy/fpl-sync/internal/domain/syncstate"
	"github.com/riskibarqy/fpl-sync/internal/platform/logging"
)

type SyncOutcome string

const (
	OutcomeNoChange            SyncOutcome = "no_change"
	OutcomeRefreshed           SyncOutcome = "refreshed"
	OutcomeRefreshedWithErrors SyncOutcome = "refreshed_with_errors"
	OutcomeFailed              SyncOutcome = "failed"
)

type SyncResult struct {
	Outcome            SyncOutcome
	GameweeksRefreshed int
	EntriesRefreshed   int
	ScopeErrors        []error
}

type SyncConfig struct {
	MaxWorkers      int
	TrackedEntryIDs []int64
}

// SyncService runs one synchronization cycle: snapshot, change detection,
// scoped refreshes in dependency order, fingerprint advance. Independent
// gameweek and entry scopes run concurrently; a scope failure never stops
// its siblings and keeps that scope's old fingerprint so the next cycle
// retries it.
type SyncService struct {
	provider    SnapshotProvider
	ingestion   *IngestionService
	aggregation *AggregationService
	entries     *EntryService
	stateStore  syncstate.Store
	cfg         SyncConfig
	logger      *logging.Logger
	now         func() time.Time
	newPool     func(size int) (*ants.Pool, error)
}

func NewSyncService(
	provider SnapshotProvider,
	ingestion *IngestionService,
	aggregation *AggregationService,
	entries *EntryService,
	stateStore syncstate.Store,
	cfg SyncConfig,
	logger *logging.Logger,
) *SyncService {
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = 1
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SyncService{
		provider:    provider,
		ingestion:   ingestion,
		aggregation: aggregation,
		entries:     entries,
		stateStore:  stateStore,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
		newPool:     func(size int) (*ants.Pool, error) { return ants.NewPool(size) },
	}
}

// RunCycle executes a full cycle. With forceRefresh the stored fingerprint
// is ignored for detection, so every finished gameweek and tracked entry is
// refreshed; the fingerprint still advances only for succeeded scopes.
func (s *SyncService) RunCycle(ctx context.Context, forceRefresh bool) (SyncResult, error) {
	ctx, span := startUsecaseSpan(ctx, "SyncService.RunCycle")
	defer span.End()

	prev, err := s.stateStore.Load(ctx)
	if err != nil {
		return SyncResult{Outcome: OutcomeFailed}, fmt.Errorf("load sync state: %w", err)
	}

	bootstrap, err := s.provider.FetchBootstrap(ctx)
	if err != nil {
		return SyncResult{Outcome: OutcomeFailed}, fmt.Errorf("fetch bootstrap: %w", err)
	}
	fixtures, err := s.provider.FetchFixtures(ctx)
	if err != nil {
		return SyncResult{Outcome: OutcomeFailed}, fmt.Errorf("fetch fixtures: %w", err)
	}

	summary, failedEntryCounts := s.buildSummary(ctx, bootstrap, fixtures)

	detectBase := prev
	if forceRefresh {
		detectBase = syncstate.Fingerprint{}
	}
	changes := DetectChanges(detectBase, summary)

	// Reference data is cheap and everything depends on it, so it is
	// refreshed opportunistically every cycle.
	if err := s.ingestion.SyncReferenceData(ctx, bootstrap, fixtures); err != nil {
		return SyncResult{Outcome: OutcomeFailed}, fmt.Errorf("sync reference data: %w", err)
	}

	result := SyncResult{}
	failedGameweeks := make(map[int]bool)
	failedEntries := make(map[int64]bool)
	for entryID, fetchErr := range failedEntryCounts {
		failedEntries[entryID] = true
		result.ScopeErrors = append(result.ScopeErrors, fmt.Errorf("entry %d: transfer count: %w", entryID, fetchErr))
	}

	if !changes.Empty() {
		playerTeams := make(map[int]int, len(bootstrap.Players))
		for _, p := range bootstrap.Players {
			playerTeams[p.ID] = p.TeamID
		}

		gwErrs := s.refreshGameweeks(ctx, changes.Gameweeks, playerTeams, fixtures, failedGameweeks)
		result.ScopeErrors = append(result.ScopeErrors, gwErrs...)
		result.GameweeksRefreshed = len(changes.Gameweeks) - len(failedGameweeks)

		entryErrs := s.refreshEntries(ctx, changes.Entries, failedEntries)
		result.ScopeErrors = append(result.ScopeErrors, entryErrs...)
		result.EntriesRefreshed = len(changes.Entries) - countFailedSignals(changes.Entries, failedEntries)
	}

	next := s.advanceFingerprint(prev, summary, failedGameweeks, failedEntries)
	if err := s.stateStore.Save(ctx, next); err != nil {
		s.logger.ErrorContext(ctx, "save sync state failed", "error", err)
		result.ScopeErrors = append(result.ScopeErrors, fmt.Errorf("save sync state: %w", err))
	}

	switch {
	case len(result.ScopeErrors) > 0:
		result.Outcome = OutcomeRefreshedWithErrors
	case changes.Empty():
		result.Outcome = OutcomeNoChange
	default:
		result.Outcome = OutcomeRefreshed
	}
	return result, nil
}

// buildSummary derives the change-detection summary from a fresh snapshot.
// Transfer counts require one request per tracked entry; entries whose
// count could not be fetched are reported back as failed scopes.
func (s *SyncService) buildSummary(ctx context.Context, bootstrap ExternalBootstrap, fixtures []ExternalFixture) (SnapshotSummary, map[int64]error) {
	summary := SnapshotSummary{
		FinishedGameweeks: make(map[int]bool, len(bootstrap.Gameweeks)),
		FixtureResults:    make(map[int]string, len(fixtures)),
		FixtureGameweeks:  make(map[int]int, len(fixtures)),
		TransferCounts:    make(map[int64]int, len(s.cfg.TrackedEntryIDs)),
	}

	for _, gw := range bootstrap.Gameweeks {
		if gw.Finished {
			summary.FinishedGameweeks[gw.ID] = true
		}
		if gw.IsCurrent {
			summary.CurrentGameweek = gw.ID
		}
		if gw.IsNext {
			summary.NextGameweek = gw.ID
		}
	}

	for _, fx := range fixtures {
		if fx.GameweekID == nil || fx.HomeScore == nil || fx.AwayScore == nil {
			continue
		}
		row := fixture.Fixture{
			HomeScore: fx.HomeScore,
			AwayScore: fx.AwayScore,
			Finished:  fx.Finished,
		}
		summary.FixtureResults[fx.ID] = row.ResultChecksum()
		summary.FixtureGameweeks[fx.ID] = *fx.GameweekID
	}

	failed := make(map[int64]error)
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(s.cfg.MaxWorkers)
	for _, entryID := range s.cfg.TrackedEntryIDs {
		entryID := entryID
		p.Go(func() {
			transfers, err := s.provider.FetchEntryTransfers(ctx, entryID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.WarnContext(ctx, "fetch transfer count failed", "entry_id", entryID, "error", err)
				failed[entryID] = err
				return
			}
			summary.TransferCounts[entryID] = len(transfers)
		})
	}
	p.Wait()

	return summary, failed
}

// refreshGameweeks runs each gameweek scope on a bounded worker pool.
// Within one scope the player stat upsert is a barrier before aggregation,
// so aggregation never reads a half-written gameweek.
func (s *SyncService) refreshGameweeks(
	ctx context.Context,
	signals []GameweekSignal,
	playerTeams map[int]int,
	fixtures []ExternalFixture,
	failed map[int]bool,
) []error {
	if len(signals) == 0 {
		return nil
	}

	workers, err := s.newPool(s.cfg.MaxWorkers)
	if err != nil {
		// Sequential execution keeps the worker bound; unbounded goroutines
		// would not.
		s.logger.WarnContext(ctx, "gameweek worker pool unavailable, running scopes sequentially", "error", err)
		workers = nil
	}
	if workers != nil {
		defer workers.Release()
	}

	var mu sync.Mutex
	var errs []error
	var wg sync.WaitGroup

	for _, signal := range signals {
		signal := signal
		task := func() {
			defer wg.Done()

			err := s.refreshGameweek(ctx, signal, playerTeams, fixtures)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed[signal.GameweekID] = true
				errs = append(errs, fmt.Errorf("gameweek %d (%s): %w", signal.GameweekID, signal.Reason, err))
			}
		}

		wg.Add(1)
		if workers != nil {
			if err := workers.Submit(task); err != nil {
				wg.Done()
				mu.Lock()
				failed[signal.GameweekID] = true
				errs = append(errs, fmt.Errorf("submit gameweek %d: %w", signal.GameweekID, err))
				mu.Unlock()
			}
			continue
		}
		task()
	}
	wg.Wait()

	return errs
}

func (s *SyncService) refreshGameweek(ctx context.Context, signal GameweekSignal, playerTeams map[int]int, fixtures []ExternalFixture) error {
	// Cancellation is cooperative between scopes: a scope already running
	// completes, queued ones bail out here.
	if err := ctx.Err(); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "refreshing gameweek scope", "gameweek_id", signal.GameweekID, "reason", signal.Reason)

	stats, err := s.provider.FetchLiveStats(ctx, signal.GameweekID)
	if err != nil {
		return fmt.Errorf("fetch live stats: %w", err)
	}
	if err := s.ingestion.SyncPlayerStats(ctx, signal.GameweekID, stats, playerTeams, fixtures); err != nil {
		return fmt.Errorf("sync player stats: %w", err)
	}
	if err := s.aggregation.Recompute(ctx, []int{signal.GameweekID}); err != nil {
		return fmt.Errorf("recompute team stats: %w", err)
	}
	return nil
}

func (s *SyncService) refreshEntries(ctx context.Context, signals []EntrySignal, failed map[int64]bool) []error {
	if len(signals) == 0 {
		return nil
	}

	var mu sync.Mutex
	var errs []error

	p := pool.New().WithMaxGoroutines(s.cfg.MaxWorkers)
	for _, signal := range signals {
		signal := signal
		p.Go(func() {
			if err := ctx.Err(); err != nil {
				mu.Lock()
				failed[signal.EntryID] = true
				errs = append(errs, fmt.Errorf("entry %d: %w", signal.EntryID, err))
				mu.Unlock()
				return
			}

			s.logger.InfoContext(ctx, "refreshing entry scope", "entry_id", signal.EntryID)
			if err := s.entries.SyncEntry(ctx, signal.EntryID); err != nil {
				mu.Lock()
				failed[signal.EntryID] = true
				errs = append(errs, fmt.Errorf("entry %d: %w", signal.EntryID, err))
				mu.Unlock()
			}
		})
	}
	p.Wait()

	return errs
}

// advanceFingerprint builds the next fingerprint from the fresh summary,
// restoring the previous observations for every failed scope so those are
// re-detected and retried next cycle.
func (s *SyncService) advanceFingerprint(
	prev syncstate.Fingerprint,
	summary SnapshotSummary,
	failedGameweeks map[int]bool,
	failedEntries map[int64]bool,
) syncstate.Fingerprint {
	next := syncstate.Fingerprint{
		FinishedGameweeks: make(map[int]bool, len(summary.FinishedGameweeks)),
		FixtureResults:    make(map[int]string, len(summary.FixtureResults)),
		TransferCounts:    make(map[int64]int, len(summary.TransferCounts)),
		CurrentGameweek:   summary.CurrentGameweek,
		NextGameweek:      summary.NextGameweek,
		LastRunAt:         s.now().UTC(),
	}

	for id, finished := range summary.FinishedGameweeks {
		if failedGameweeks[id] {
			continue
		}
		next.FinishedGameweeks[id] = finished
	}
	for id := range failedGameweeks {
		if prev.FinishedGameweeks[id] {
			next.FinishedGameweeks[id] = true
		}
	}

	for fixtureID, checksum := range summary.FixtureResults {
		if failedGameweeks[summary.FixtureGameweeks[fixtureID]] {
			if old, ok := prev.FixtureResults[fixtureID]; ok {
				next.FixtureResults[fixtureID] = old
			}
			continue
		}
		next.FixtureResults[fixtureID] = checksum
	}

	for entryID, count := range summary.TransferCounts {
		if failedEntries[entryID] {
			continue
		}
		next.TransferCounts[entryID] = count
	}
	for entryID := range failedEntries {
		if old, ok := prev.TransferCounts[entryID]; ok {
			next.TransferCounts[entryID] = old
		}
	}

	return next
}

func countFailedSignals(signals []EntrySignal, failed map[int64]bool) int {
	count := 0
	for _, signal := range signals {
		if failed[signal.EntryID] {
			count++
		}
	}
	return count
}
