package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/fpl-sync/internal/domain/entry"
	qb "github.com/riskibarqy/fpl-sync/internal/platform/querybuilder"
)

type entryTableModel struct {
	ID                  int64         `db:"id"`
	Name                string        `db:"name"`
	PlayerName          string        `db:"player_name"`
	OverallPoints       int           `db:"overall_points"`
	OverallRank         int           `db:"overall_rank"`
	PreviousOverallRank sql.NullInt64 `db:"previous_overall_rank"`
	RankDelta           int           `db:"rank_delta"`
	Squad               []byte        `db:"squad"`
	BestRank            sql.NullInt64 `db:"best_rank"`
	BestRankGameweek    sql.NullInt64 `db:"best_rank_gameweek"`
	WorstRank           sql.NullInt64 `db:"worst_rank"`
	WorstRankGameweek   sql.NullInt64 `db:"worst_rank_gameweek"`
	TotalTransfers      int           `db:"total_transfers"`
	TotalTransferCost   int           `db:"total_transfer_cost"`
	ChipsUsed           []byte        `db:"chips_used"`
	UpdatedAt           time.Time     `db:"updated_at"`
}

type entryHistoryTableModel struct {
	EntryID       int64     `db:"entry_id"`
	GameweekID    int       `db:"gameweek_id"`
	Points        int       `db:"points"`
	TotalPoints   int       `db:"total_points"`
	OverallRank   int       `db:"overall_rank"`
	GameweekRank  int       `db:"gameweek_rank"`
	TransfersMade int       `db:"transfers_made"`
	TransfersCost int       `db:"transfers_cost"`
	Bank          int       `db:"bank"`
	TeamValue     int       `db:"team_value"`
	Chip          string    `db:"chip"`
	Squad         []byte    `db:"squad"`
	UpdatedAt     time.Time `db:"updated_at"`
}

type entryTransferTableModel struct {
	EntryID       int64     `db:"entry_id"`
	GameweekID    int       `db:"gameweek_id"`
	PlayerInID    int       `db:"player_in_id"`
	PlayerInCost  int       `db:"player_in_cost"`
	PlayerOutID   int       `db:"player_out_id"`
	PlayerOutCost int       `db:"player_out_cost"`
	OccurredAt    time.Time `db:"occurred_at"`
}

type EntryRepository struct {
	db *sqlx.DB
}

func NewEntryRepository(db *sqlx.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

func (r *EntryRepository) GetByID(ctx context.Context, entryID int64) (entry.Entry, bool, error) {
	query, args, err := qb.Select("*").From("entries").
		Where(qb.Eq("id", entryID)).
		ToSQL()
	if err != nil {
		return entry.Entry{}, false, fmt.Errorf("build select entry query: %w", err)
	}

	var row entryTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return entry.Entry{}, false, nil
		}
		return entry.Entry{}, false, fmt.Errorf("select entry: %w", err)
	}

	out, err := row.toDomain()
	if err != nil {
		return entry.Entry{}, false, err
	}
	return out, true, nil
}

func (r *EntryRepository) Upsert(ctx context.Context, item entry.Entry) error {
	model, err := fromEntryDomain(item)
	if err != nil {
		return err
	}

	query, args, err := qb.InsertModel("entries", model, `ON CONFLICT (id)
DO UPDATE SET
    name = EXCLUDED.name,
    player_name = EXCLUDED.player_name,
    overall_points = EXCLUDED.overall_points,
    overall_rank = EXCLUDED.overall_rank,
    previous_overall_rank = EXCLUDED.previous_overall_rank,
    rank_delta = EXCLUDED.rank_delta,
    squad = EXCLUDED.squad,
    updated_at = EXCLUDED.updated_at`)
	if err != nil {
		return fmt.Errorf("build upsert entry query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return wrapWriteError(fmt.Sprintf("upsert entry id=%d", item.ID), err)
	}
	return nil
}

func (r *EntryRepository) UpdateSummary(ctx context.Context, entryID int64, summary entry.Summary) error {
	chips, err := sonic.Marshal(chipListOrEmpty(summary.ChipsUsed))
	if err != nil {
		return fmt.Errorf("encode chips used: %w", err)
	}

	query, args, err := qb.Update("entries").
		Set("best_rank", nullIntFromIntPtr(summary.BestRank)).
		Set("best_rank_gameweek", nullIntFromIntPtr(summary.BestRankGameweek)).
		Set("worst_rank", nullIntFromIntPtr(summary.WorstRank)).
		Set("worst_rank_gameweek", nullIntFromIntPtr(summary.WorstRankGameweek)).
		Set("total_transfers", summary.TotalTransfers).
		Set("total_transfer_cost", summary.TotalTransferCost).
		Set("chips_used", chips).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("id", entryID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update entry summary query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update entry summary id=%d: %w", entryID, err)
	}
	return nil
}

func (r *EntryRepository) ListHistory(ctx context.Context, entryID int64) ([]entry.GameweekHistory, error) {
	query, args, err := qb.Select("*").From("entry_gameweek_history").
		Where(qb.Eq("entry_id", entryID)).
		OrderBy("gameweek_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select entry history query: %w", err)
	}

	var rows []entryHistoryTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select entry history: %w", err)
	}

	out := make([]entry.GameweekHistory, 0, len(rows))
	for _, row := range rows {
		item, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *EntryRepository) UpsertHistory(ctx context.Context, items []entry.GameweekHistory) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert entry history tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, item := range items {
		model, err := fromEntryHistoryDomain(item)
		if err != nil {
			return err
		}
		query, args, err := qb.InsertModel("entry_gameweek_history", model, `ON CONFLICT (entry_id, gameweek_id)
DO UPDATE SET
    points = EXCLUDED.points,
    total_points = EXCLUDED.total_points,
    overall_rank = EXCLUDED.overall_rank,
    gameweek_rank = EXCLUDED.gameweek_rank,
    transfers_made = EXCLUDED.transfers_made,
    transfers_cost = EXCLUDED.transfers_cost,
    bank = EXCLUDED.bank,
    team_value = EXCLUDED.team_value,
    chip = EXCLUDED.chip,
    squad = EXCLUDED.squad,
    updated_at = EXCLUDED.updated_at`)
		if err != nil {
			return fmt.Errorf("build upsert entry history query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return wrapWriteError(fmt.Sprintf("upsert entry history entry_id=%d gameweek_id=%d", item.EntryID, item.GameweekID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert entry history tx: %w", err)
	}
	return nil
}

func (r *EntryRepository) UpsertTransfers(ctx context.Context, items []entry.Transfer) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert entry transfers tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, item := range items {
		model := entryTransferTableModel{
			EntryID:       item.EntryID,
			GameweekID:    item.GameweekID,
			PlayerInID:    item.PlayerInID,
			PlayerInCost:  item.PlayerInCost,
			PlayerOutID:   item.PlayerOutID,
			PlayerOutCost: item.PlayerOutCost,
			OccurredAt:    item.OccurredAt,
		}
		// Transfers are immutable events, so replays resolve to DO NOTHING.
		query, args, err := qb.InsertModel("entry_transfers", model, `ON CONFLICT (entry_id, gameweek_id, player_in_id, player_out_id)
DO NOTHING`)
		if err != nil {
			return fmt.Errorf("build upsert entry transfer query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return wrapWriteError(fmt.Sprintf("upsert entry transfer entry_id=%d gameweek_id=%d", item.EntryID, item.GameweekID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert entry transfers tx: %w", err)
	}
	return nil
}

func (m entryTableModel) toDomain() (entry.Entry, error) {
	out := entry.Entry{
		ID:                  m.ID,
		Name:                m.Name,
		PlayerName:          m.PlayerName,
		OverallPoints:       m.OverallPoints,
		OverallRank:         m.OverallRank,
		PreviousOverallRank: intPtrFromNullInt(m.PreviousOverallRank),
		RankDelta:           m.RankDelta,
		BestRank:            intPtrFromNullInt(m.BestRank),
		BestRankGameweek:    intPtrFromNullInt(m.BestRankGameweek),
		WorstRank:           intPtrFromNullInt(m.WorstRank),
		WorstRankGameweek:   intPtrFromNullInt(m.WorstRankGameweek),
		TotalTransfers:      m.TotalTransfers,
		TotalTransferCost:   m.TotalTransferCost,
		UpdatedAt:           m.UpdatedAt,
	}
	if len(m.Squad) > 0 {
		if err := sonic.Unmarshal(m.Squad, &out.Squad); err != nil {
			return entry.Entry{}, fmt.Errorf("decode entry squad id=%d: %w", m.ID, err)
		}
	}
	if len(m.ChipsUsed) > 0 {
		if err := sonic.Unmarshal(m.ChipsUsed, &out.ChipsUsed); err != nil {
			return entry.Entry{}, fmt.Errorf("decode entry chips id=%d: %w", m.ID, err)
		}
	}
	return out, nil
}

func fromEntryDomain(item entry.Entry) (entryTableModel, error) {
	squad, err := sonic.Marshal(squadListOrEmpty(item.Squad))
	if err != nil {
		return entryTableModel{}, fmt.Errorf("encode entry squad: %w", err)
	}
	chips, err := sonic.Marshal(chipListOrEmpty(item.ChipsUsed))
	if err != nil {
		return entryTableModel{}, fmt.Errorf("encode entry chips: %w", err)
	}

	return entryTableModel{
		ID:                  item.ID,
		Name:                item.Name,
		PlayerName:          item.PlayerName,
		OverallPoints:       item.OverallPoints,
		OverallRank:         item.OverallRank,
		PreviousOverallRank: nullIntFromIntPtr(item.PreviousOverallRank),
		RankDelta:           item.RankDelta,
		Squad:               squad,
		BestRank:            nullIntFromIntPtr(item.BestRank),
		BestRankGameweek:    nullIntFromIntPtr(item.BestRankGameweek),
		WorstRank:           nullIntFromIntPtr(item.WorstRank),
		WorstRankGameweek:   nullIntFromIntPtr(item.WorstRankGameweek),
		TotalTransfers:      item.TotalTransfers,
		TotalTransferCost:   item.TotalTransferCost,
		ChipsUsed:           chips,
		UpdatedAt:           item.UpdatedAt,
	}, nil
}

func (m entryHistoryTableModel) toDomain() (entry.GameweekHistory, error) {
	out := entry.GameweekHistory{
		EntryID:       m.EntryID,
		GameweekID:    m.GameweekID,
		Points:        m.Points,
		TotalPoints:   m.TotalPoints,
		OverallRank:   m.OverallRank,
		GameweekRank:  m.GameweekRank,
		TransfersMade: m.TransfersMade,
		TransfersCost: m.TransfersCost,
		Bank:          m.Bank,
		TeamValue:     m.TeamValue,
		Chip:          m.Chip,
		UpdatedAt:     m.UpdatedAt,
	}
	if len(m.Squad) > 0 {
		if err := sonic.Unmarshal(m.Squad, &out.Squad); err != nil {
			return entry.GameweekHistory{}, fmt.Errorf("decode history squad entry_id=%d gameweek_id=%d: %w", m.EntryID, m.GameweekID, err)
		}
	}
	return out, nil
}

func fromEntryHistoryDomain(item entry.GameweekHistory) (entryHistoryTableModel, error) {
	squad, err := sonic.Marshal(squadListOrEmpty(item.Squad))
	if err != nil {
		return entryHistoryTableModel{}, fmt.Errorf("encode history squad: %w", err)
	}

	return entryHistoryTableModel{
		EntryID:       item.EntryID,
		GameweekID:    item.GameweekID,
		Points:        item.Points,
		TotalPoints:   item.TotalPoints,
		OverallRank:   item.OverallRank,
		GameweekRank:  item.GameweekRank,
		TransfersMade: item.TransfersMade,
		TransfersCost: item.TransfersCost,
		Bank:          item.Bank,
		TeamValue:     item.TeamValue,
		Chip:          item.Chip,
		Squad:         squad,
		UpdatedAt:     item.UpdatedAt,
	}, nil
}

func squadListOrEmpty(squad []int) []int {
	if squad == nil {
		return []int{}
	}
	return squad
}

func chipListOrEmpty(chips []string) []string {
	if chips == nil {
		return []string{}
	}
	return chips
}
