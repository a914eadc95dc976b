package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/fpl-sync/internal/domain/gameweek"
	qb "github.com/riskibarqy/fpl-sync/internal/platform/querybuilder"
)

type gameweekTableModel struct {
	ID                int           `db:"id"`
	Name              string        `db:"name"`
	DeadlineTime      time.Time     `db:"deadline_time"`
	IsCurrent         bool          `db:"is_current"`
	IsNext            bool          `db:"is_next"`
	IsPrevious        bool          `db:"is_previous"`
	Finished          bool          `db:"finished"`
	DataChecked       bool          `db:"data_checked"`
	HighestScore      sql.NullInt64 `db:"highest_score"`
	AverageEntryScore sql.NullInt64 `db:"average_entry_score"`
	UpdatedAt         time.Time     `db:"updated_at"`
}

type GameweekRepository struct {
	db *sqlx.DB
}

func NewGameweekRepository(db *sqlx.DB) *GameweekRepository {
	return &GameweekRepository{db: db}
}

func (r *GameweekRepository) List(ctx context.Context) ([]gameweek.Gameweek, error) {
	query, args, err := qb.Select("*").From("gameweeks").OrderBy("id").ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select gameweeks query: %w", err)
	}

	var rows []gameweekTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select gameweeks: %w", err)
	}

	out := make([]gameweek.Gameweek, 0, len(rows))
	for _, row := range rows {
		out = append(out, gameweek.Gameweek{
			ID:                row.ID,
			Name:              row.Name,
			DeadlineTime:      row.DeadlineTime,
			IsCurrent:         row.IsCurrent,
			IsNext:            row.IsNext,
			IsPrevious:        row.IsPrevious,
			Finished:          row.Finished,
			DataChecked:       row.DataChecked,
			HighestScore:      intPtrFromNullInt(row.HighestScore),
			AverageEntryScore: intPtrFromNullInt(row.AverageEntryScore),
			UpdatedAt:         row.UpdatedAt,
		})
	}
	return out, nil
}

func (r *GameweekRepository) Upsert(ctx context.Context, items []gameweek.Gameweek) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert gameweeks tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, item := range items {
		model := gameweekTableModel{
			ID:                item.ID,
			Name:              item.Name,
			DeadlineTime:      item.DeadlineTime,
			IsCurrent:         item.IsCurrent,
			IsNext:            item.IsNext,
			IsPrevious:        item.IsPrevious,
			Finished:          item.Finished,
			DataChecked:       item.DataChecked,
			HighestScore:      nullIntFromIntPtr(item.HighestScore),
			AverageEntryScore: nullIntFromIntPtr(item.AverageEntryScore),
			UpdatedAt:         item.UpdatedAt,
		}
		// finished and data_checked are OR-ed with the stored value so a
		// transient upstream revert can never unfinish a gameweek.
		query, args, err := qb.InsertModel("gameweeks", model, `ON CONFLICT (id)
DO UPDATE SET
    name = EXCLUDED.name,
    deadline_time = EXCLUDED.deadline_time,
    is_current = EXCLUDED.is_current,
    is_next = EXCLUDED.is_next,
    is_previous = EXCLUDED.is_previous,
    finished = gameweeks.finished OR EXCLUDED.finished,
    data_checked = gameweeks.data_checked OR EXCLUDED.data_checked,
    highest_score = COALESCE(EXCLUDED.highest_score, gameweeks.highest_score),
    average_entry_score = COALESCE(EXCLUDED.average_entry_score, gameweeks.average_entry_score),
    updated_at = EXCLUDED.updated_at`)
		if err != nil {
			return fmt.Errorf("build upsert gameweek query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return wrapWriteError(fmt.Sprintf("upsert gameweek id=%d", item.ID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert gameweeks tx: %w", err)
	}
	return nil
}
