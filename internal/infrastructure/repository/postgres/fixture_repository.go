package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/fpl-sync/internal/domain/fixture"
	qb "github.com/riskibarqy/fpl-sync/internal/platform/querybuilder"
)

type fixtureTableModel struct {
	ID             int           `db:"id"`
	GameweekID     sql.NullInt64 `db:"gameweek_id"`
	HomeTeamID     int           `db:"home_team_id"`
	AwayTeamID     int           `db:"away_team_id"`
	HomeScore      sql.NullInt64 `db:"home_score"`
	AwayScore      sql.NullInt64 `db:"away_score"`
	Finished       bool          `db:"finished"`
	KickoffTime    sql.NullTime  `db:"kickoff_time"`
	DifficultyHome int           `db:"difficulty_home"`
	DifficultyAway int           `db:"difficulty_away"`
	UpdatedAt      time.Time     `db:"updated_at"`
}

func (m fixtureTableModel) toDomain() fixture.Fixture {
	out := fixture.Fixture{
		ID:             m.ID,
		GameweekID:     int(m.GameweekID.Int64),
		HomeTeamID:     m.HomeTeamID,
		AwayTeamID:     m.AwayTeamID,
		HomeScore:      intPtrFromNullInt(m.HomeScore),
		AwayScore:      intPtrFromNullInt(m.AwayScore),
		Finished:       m.Finished,
		DifficultyHome: m.DifficultyHome,
		DifficultyAway: m.DifficultyAway,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.KickoffTime.Valid {
		kickoff := m.KickoffTime.Time
		out.KickoffTime = &kickoff
	}
	return out
}

type FixtureRepository struct {
	db *sqlx.DB
}

func NewFixtureRepository(db *sqlx.DB) *FixtureRepository {
	return &FixtureRepository{db: db}
}

func (r *FixtureRepository) List(ctx context.Context) ([]fixture.Fixture, error) {
	query, args, err := qb.Select("*").From("fixtures").OrderBy("id").ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select fixtures query: %w", err)
	}

	var rows []fixtureTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select fixtures: %w", err)
	}

	out := make([]fixture.Fixture, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *FixtureRepository) ListByGameweek(ctx context.Context, gameweekID int) ([]fixture.Fixture, error) {
	query, args, err := qb.Select("*").From("fixtures").
		Where(qb.Eq("gameweek_id", gameweekID)).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select fixtures by gameweek query: %w", err)
	}

	var rows []fixtureTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select fixtures by gameweek: %w", err)
	}

	out := make([]fixture.Fixture, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *FixtureRepository) Upsert(ctx context.Context, items []fixture.Fixture) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert fixtures tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, item := range items {
		model := fixtureTableModel{
			ID:             item.ID,
			GameweekID:     nullIntFromInt(item.GameweekID),
			HomeTeamID:     item.HomeTeamID,
			AwayTeamID:     item.AwayTeamID,
			HomeScore:      nullIntFromIntPtr(item.HomeScore),
			AwayScore:      nullIntFromIntPtr(item.AwayScore),
			Finished:       item.Finished,
			DifficultyHome: item.DifficultyHome,
			DifficultyAway: item.DifficultyAway,
			UpdatedAt:      item.UpdatedAt,
		}
		if item.KickoffTime != nil {
			model.KickoffTime = sql.NullTime{Time: *item.KickoffTime, Valid: true}
		}
		query, args, err := qb.InsertModel("fixtures", model, `ON CONFLICT (id)
DO UPDATE SET
    gameweek_id = EXCLUDED.gameweek_id,
    home_team_id = EXCLUDED.home_team_id,
    away_team_id = EXCLUDED.away_team_id,
    home_score = EXCLUDED.home_score,
    away_score = EXCLUDED.away_score,
    finished = EXCLUDED.finished,
    kickoff_time = EXCLUDED.kickoff_time,
    difficulty_home = EXCLUDED.difficulty_home,
    difficulty_away = EXCLUDED.difficulty_away,
    updated_at = EXCLUDED.updated_at`)
		if err != nil {
			return fmt.Errorf("build upsert fixture query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return wrapWriteError(fmt.Sprintf("upsert fixture id=%d", item.ID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert fixtures tx: %w", err)
	}
	return nil
}
