package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/fpl-sync/internal/domain/playerstats"
	qb "github.com/riskibarqy/fpl-sync/internal/platform/querybuilder"
)

type playerGameweekStatTableModel struct {
	PlayerID        int           `db:"player_id"`
	GameweekID      int           `db:"gameweek_id"`
	FixtureID       sql.NullInt64 `db:"fixture_id"`
	Minutes         int           `db:"minutes"`
	GoalsScored     int           `db:"goals_scored"`
	Assists         int           `db:"assists"`
	CleanSheets     int           `db:"clean_sheets"`
	GoalsConceded   int           `db:"goals_conceded"`
	OwnGoals        int           `db:"own_goals"`
	PenaltiesSaved  int           `db:"penalties_saved"`
	PenaltiesMissed int           `db:"penalties_missed"`
	YellowCards     int           `db:"yellow_cards"`
	RedCards        int           `db:"red_cards"`
	Saves           int           `db:"saves"`
	Bonus           int           `db:"bonus"`
	BPS             int           `db:"bps"`
	Influence       float64       `db:"influence"`
	Creativity      float64       `db:"creativity"`
	Threat          float64       `db:"threat"`
	ICTIndex        float64       `db:"ict_index"`
	ExpectedGoals   float64       `db:"expected_goals"`
	ExpectedAssists float64       `db:"expected_assists"`
	TotalPoints     int           `db:"total_points"`
	UpdatedAt       time.Time     `db:"updated_at"`
}

type PlayerStatsRepository struct {
	db *sqlx.DB
}

func NewPlayerStatsRepository(db *sqlx.DB) *PlayerStatsRepository {
	return &PlayerStatsRepository{db: db}
}

func (r *PlayerStatsRepository) ListByGameweeks(ctx context.Context, gameweekIDs []int) ([]playerstats.GameweekStat, error) {
	if len(gameweekIDs) == 0 {
		return nil, nil
	}

	query, args, err := qb.Select("*").From("player_gameweek_stats").
		Where(qb.In("gameweek_id", intsToAny(gameweekIDs))).
		OrderBy("gameweek_id", "player_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select player stats query: %w", err)
	}

	var rows []playerGameweekStatTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select player stats: %w", err)
	}

	out := make([]playerstats.GameweekStat, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *PlayerStatsRepository) ListGameweekIDs(ctx context.Context) ([]int, error) {
	query, args, err := qb.Select("DISTINCT gameweek_id").From("player_gameweek_stats").
		OrderBy("gameweek_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select stat gameweek ids query: %w", err)
	}

	var out []int
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("select stat gameweek ids: %w", err)
	}
	return out, nil
}

func (r *PlayerStatsRepository) Upsert(ctx context.Context, items []playerstats.GameweekStat) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert player stats tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, item := range items {
		query, args, err := qb.InsertModel("player_gameweek_stats", fromPlayerStatDomain(item), `ON CONFLICT (player_id, gameweek_id)
DO UPDATE SET
    fixture_id = EXCLUDED.fixture_id,
    minutes = EXCLUDED.minutes,
    goals_scored = EXCLUDED.goals_scored,
    assists = EXCLUDED.assists,
    clean_sheets = EXCLUDED.clean_sheets,
    goals_conceded = EXCLUDED.goals_conceded,
    own_goals = EXCLUDED.own_goals,
    penalties_saved = EXCLUDED.penalties_saved,
    penalties_missed = EXCLUDED.penalties_missed,
    yellow_cards = EXCLUDED.yellow_cards,
    red_cards = EXCLUDED.red_cards,
    saves = EXCLUDED.saves,
    bonus = EXCLUDED.bonus,
    bps = EXCLUDED.bps,
    influence = EXCLUDED.influence,
    creativity = EXCLUDED.creativity,
    threat = EXCLUDED.threat,
    ict_index = EXCLUDED.ict_index,
    expected_goals = EXCLUDED.expected_goals,
    expected_assists = EXCLUDED.expected_assists,
    total_points = EXCLUDED.total_points,
    updated_at = EXCLUDED.updated_at`)
		if err != nil {
			return fmt.Errorf("build upsert player stat query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return wrapWriteError(fmt.Sprintf("upsert player stat player_id=%d gameweek_id=%d", item.PlayerID, item.GameweekID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert player stats tx: %w", err)
	}
	return nil
}

func (m playerGameweekStatTableModel) toDomain() playerstats.GameweekStat {
	return playerstats.GameweekStat{
		PlayerID:        m.PlayerID,
		GameweekID:      m.GameweekID,
		FixtureID:       intPtrFromNullInt(m.FixtureID),
		Minutes:         m.Minutes,
		GoalsScored:     m.GoalsScored,
		Assists:         m.Assists,
		CleanSheets:     m.CleanSheets,
		GoalsConceded:   m.GoalsConceded,
		OwnGoals:        m.OwnGoals,
		PenaltiesSaved:  m.PenaltiesSaved,
		PenaltiesMissed: m.PenaltiesMissed,
		YellowCards:     m.YellowCards,
		RedCards:        m.RedCards,
		Saves:           m.Saves,
		Bonus:           m.Bonus,
		BPS:             m.BPS,
		Influence:       m.Influence,
		Creativity:      m.Creativity,
		Threat:          m.Threat,
		ICTIndex:        m.ICTIndex,
		ExpectedGoals:   m.ExpectedGoals,
		ExpectedAssists: m.ExpectedAssists,
		TotalPoints:     m.TotalPoints,
		UpdatedAt:       m.UpdatedAt,
	}
}

func fromPlayerStatDomain(item playerstats.GameweekStat) playerGameweekStatTableModel {
	return playerGameweekStatTableModel{
		PlayerID:        item.PlayerID,
		GameweekID:      item.GameweekID,
		FixtureID:       nullIntFromIntPtr(item.FixtureID),
		Minutes:         item.Minutes,
		GoalsScored:     item.GoalsScored,
		Assists:         item.Assists,
		CleanSheets:     item.CleanSheets,
		GoalsConceded:   item.GoalsConceded,
		OwnGoals:        item.OwnGoals,
		PenaltiesSaved:  item.PenaltiesSaved,
		PenaltiesMissed: item.PenaltiesMissed,
		YellowCards:     item.YellowCards,
		RedCards:        item.RedCards,
		Saves:           item.Saves,
		Bonus:           item.Bonus,
		BPS:             item.BPS,
		Influence:       item.Influence,
		Creativity:      item.Creativity,
		Threat:          item.Threat,
		ICTIndex:        item.ICTIndex,
		ExpectedGoals:   item.ExpectedGoals,
		ExpectedAssists: item.ExpectedAssists,
		TotalPoints:     item.TotalPoints,
		UpdatedAt:       item.UpdatedAt,
	}
}
