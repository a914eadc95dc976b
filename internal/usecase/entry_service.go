package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/riskibarqy/fpl-sync/internal/domain/entry"
	"github.com/riskibarqy/fpl-sync/internal/platform/logging"
)

// EntryService refreshes tracked manager accounts: profile with rank delta,
// gameweek history, transfers and the rolled-up summary.
type EntryService struct {
	provider  SnapshotProvider
	entryRepo entry.Repository
	logger    *logging.Logger
	now       func() time.Time
}

func NewEntryService(provider SnapshotProvider, entryRepo entry.Repository, logger *logging.Logger) *EntryService {
	if logger == nil {
		logger = logging.Default()
	}
	return &EntryService{
		provider:  provider,
		entryRepo: entryRepo,
		logger:    logger,
		now:       time.Now,
	}
}

// SyncEntry refreshes one entry end to end. The rank delta is the new
// overall rank minus the previous one, so a negative delta means the manager
// climbed the table. The first observation stores delta zero with the
// previous rank unset.
func (s *EntryService) SyncEntry(ctx context.Context, entryID int64) error {
	ctx, span := startUsecaseSpan(ctx, "EntryService.SyncEntry")
	defer span.End()

	if entryID <= 0 {
		return fmt.Errorf("%w: entry id must be greater than zero", ErrInvalidInput)
	}

	fresh, err := s.provider.FetchEntry(ctx, entryID)
	if err != nil {
		return fmt.Errorf("fetch entry entry_id=%d: %w", entryID, err)
	}

	existing, found, err := s.entryRepo.GetByID(ctx, entryID)
	if err != nil {
		return fmt.Errorf("load entry entry_id=%d: %w", entryID, err)
	}

	now := s.now().UTC()
	row := entry.Entry{
		ID:            fresh.ID,
		Name:          fresh.Name,
		PlayerName:    fresh.PlayerName,
		OverallPoints: fresh.OverallPoints,
		OverallRank:   fresh.OverallRank,
		UpdatedAt:     now,
	}
	switch {
	case !found:
		row.RankDelta = 0
	case existing.OverallRank != fresh.OverallRank && existing.OverallRank > 0:
		prev := existing.OverallRank
		row.PreviousOverallRank = &prev
		row.RankDelta = fresh.OverallRank - prev
	default:
		row.PreviousOverallRank = existing.PreviousOverallRank
		row.RankDelta = existing.RankDelta
	}

	history, err := s.provider.FetchEntryHistory(ctx, entryID)
	if err != nil {
		return fmt.Errorf("fetch entry history entry_id=%d: %w", entryID, err)
	}

	chipByGameweek := make(map[int]string, len(history.Chips))
	for _, chip := range history.Chips {
		chipByGameweek[chip.GameweekID] = chip.Name
	}

	historyRows := make([]entry.GameweekHistory, 0, len(history.Current))
	latestGameweek := 0
	for _, item := range history.Current {
		if item.GameweekID > latestGameweek {
			latestGameweek = item.GameweekID
		}
		historyRows = append(historyRows, entry.GameweekHistory{
			EntryID:       entryID,
			GameweekID:    item.GameweekID,
			Points:        item.Points,
			TotalPoints:   item.TotalPoints,
			OverallRank:   item.OverallRank,
			GameweekRank:  item.GameweekRank,
			TransfersMade: item.TransfersMade,
			TransfersCost: item.TransfersCost,
			Bank:          item.Bank,
			TeamValue:     item.TeamValue,
			Chip:          chipByGameweek[item.GameweekID],
			UpdatedAt:     now,
		})
	}

	if latestGameweek > 0 {
		picks, err := s.provider.FetchEntryPicks(ctx, entryID, latestGameweek)
		if err != nil {
			// The squad is a convenience snapshot; the rest of the entry
			// refresh still applies without it.
			s.logger.WarnContext(ctx, "fetch entry picks failed", "entry_id", entryID, "gameweek_id", latestGameweek, "error", err)
		} else {
			squad := make([]int, 0, len(picks.Picks))
			for _, pick := range picks.Picks {
				squad = append(squad, pick.PlayerID)
			}
			row.Squad = squad
		}
	}
	if row.Squad == nil && found {
		row.Squad = existing.Squad
	}

	if err := s.entryRepo.Upsert(ctx, row); err != nil {
		return fmt.Errorf("upsert entry entry_id=%d: %w", entryID, err)
	}
	if err := s.entryRepo.UpsertHistory(ctx, historyRows); err != nil {
		return fmt.Errorf("upsert entry history entry_id=%d: %w", entryID, err)
	}

	transfers, err := s.provider.FetchEntryTransfers(ctx, entryID)
	if err != nil {
		return fmt.Errorf("fetch entry transfers entry_id=%d: %w", entryID, err)
	}
	transferRows := make([]entry.Transfer, 0, len(transfers))
	for _, item := range transfers {
		transferRows = append(transferRows, entry.Transfer{
			EntryID:       entryID,
			GameweekID:    item.GameweekID,
			PlayerInID:    item.PlayerInID,
			PlayerInCost:  item.PlayerInCost,
			PlayerOutID:   item.PlayerOutID,
			PlayerOutCost: item.PlayerOutCost,
			OccurredAt:    item.OccurredAt,
		})
	}
	if err := s.entryRepo.UpsertTransfers(ctx, transferRows); err != nil {
		return fmt.Errorf("upsert entry transfers entry_id=%d: %w", entryID, err)
	}

	return s.RecomputeSummary(ctx, entryID)
}

// RecomputeSummary rescans the entry's stored history rows and rebuilds the
// derived summary from scratch.
func (s *EntryService) RecomputeSummary(ctx context.Context, entryID int64) error {
	ctx, span := startUsecaseSpan(ctx, "EntryService.RecomputeSummary")
	defer span.End()

	rows, err := s.entryRepo.ListHistory(ctx, entryID)
	if err != nil {
		return fmt.Errorf("list entry history entry_id=%d: %w", entryID, err)
	}

	summary := SummarizeHistory(rows)
	if err := s.entryRepo.UpdateSummary(ctx, entryID, summary); err != nil {
		return fmt.Errorf("update entry summary entry_id=%d: %w", entryID, err)
	}
	return nil
}

// SummarizeHistory derives best/worst rank, cumulative transfer totals and
// the de-duplicated chip set from an entry's history rows.
func SummarizeHistory(rows []entry.GameweekHistory) entry.Summary {
	var summary entry.Summary
	chipSet := make(map[string]bool)

	sorted := append([]entry.GameweekHistory(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].GameweekID < sorted[j].GameweekID })

	for _, row := range sorted {
		summary.TotalTransfers += row.TransfersMade
		summary.TotalTransferCost += row.TransfersCost
		if row.Chip != "" && !chipSet[row.Chip] {
			chipSet[row.Chip] = true
			summary.ChipsUsed = append(summary.ChipsUsed, row.Chip)
		}

		if row.OverallRank <= 0 {
			continue
		}
		if summary.BestRank == nil || row.OverallRank < *summary.BestRank {
			rank, gw := row.OverallRank, row.GameweekID
			summary.BestRank, summary.BestRankGameweek = &rank, &gw
		}
		if summary.WorstRank == nil || row.OverallRank > *summary.WorstRank {
			rank, gw := row.OverallRank, row.GameweekID
			summary.WorstRank, summary.WorstRankGameweek = &rank, &gw
		}
	}

	return summary
}
