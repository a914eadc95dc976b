package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/fpl-sync/internal/domain/teamstats"
	qb "github.com/riskibarqy/fpl-sync/internal/platform/querybuilder"
)

type teamGameweekStatTableModel struct {
	TeamID             int       `db:"team_id"`
	GameweekID         int       `db:"gameweek_id"`
	FixtureID          int       `db:"fixture_id"`
	OpponentTeamID     int       `db:"opponent_team_id"`
	IsHome             bool      `db:"is_home"`
	Difficulty         int       `db:"difficulty"`
	Result             string    `db:"result"`
	CleanSheet         bool      `db:"clean_sheet"`
	GoalsFor           int       `db:"goals_for"`
	GoalsAgainst       int       `db:"goals_against"`
	PlayersUsed        int       `db:"players_used"`
	Goals              int       `db:"goals"`
	Assists            int       `db:"assists"`
	YellowCards        int       `db:"yellow_cards"`
	RedCards           int       `db:"red_cards"`
	Saves              int       `db:"saves"`
	Bonus              int       `db:"bonus"`
	GoalsConceded      int       `db:"goals_conceded"`
	OwnGoals           int       `db:"own_goals"`
	PenaltiesSaved     int       `db:"penalties_saved"`
	PenaltiesMissed    int       `db:"penalties_missed"`
	ExpectedGoals      float64   `db:"expected_goals"`
	ExpectedAssists    float64   `db:"expected_assists"`
	InfluenceAvg       float64   `db:"influence_avg"`
	CreativityAvg      float64   `db:"creativity_avg"`
	ThreatAvg          float64   `db:"threat_avg"`
	ICTIndexSum        float64   `db:"ict_index_sum"`
	ICTIndexAvg        float64   `db:"ict_index_avg"`
	TotalFantasyPoints int       `db:"total_fantasy_points"`
	AvgFantasyPoints   float64   `db:"avg_fantasy_points"`
	Form3GW            float64   `db:"form_3gw"`
	Form6GW            float64   `db:"form_6gw"`
	ComputedAt         time.Time `db:"computed_at"`
}

// teamGameweekStatInsertModel leaves computed_at to the column default so
// recomputing unchanged inputs writes byte-identical rows.
type teamGameweekStatInsertModel struct {
	TeamID             int     `db:"team_id"`
	GameweekID         int     `db:"gameweek_id"`
	FixtureID          int     `db:"fixture_id"`
	OpponentTeamID     int     `db:"opponent_team_id"`
	IsHome             bool    `db:"is_home"`
	Difficulty         int     `db:"difficulty"`
	Result             string  `db:"result"`
	CleanSheet         bool    `db:"clean_sheet"`
	GoalsFor           int     `db:"goals_for"`
	GoalsAgainst       int     `db:"goals_against"`
	PlayersUsed        int     `db:"players_used"`
	Goals              int     `db:"goals"`
	Assists            int     `db:"assists"`
	YellowCards        int     `db:"yellow_cards"`
	RedCards           int     `db:"red_cards"`
	Saves              int     `db:"saves"`
	Bonus              int     `db:"bonus"`
	GoalsConceded      int     `db:"goals_conceded"`
	OwnGoals           int     `db:"own_goals"`
	PenaltiesSaved     int     `db:"penalties_saved"`
	PenaltiesMissed    int     `db:"penalties_missed"`
	ExpectedGoals      float64 `db:"expected_goals"`
	ExpectedAssists    float64 `db:"expected_assists"`
	InfluenceAvg       float64 `db:"influence_avg"`
	CreativityAvg      float64 `db:"creativity_avg"`
	ThreatAvg          float64 `db:"threat_avg"`
	ICTIndexSum        float64 `db:"ict_index_sum"`
	ICTIndexAvg        float64 `db:"ict_index_avg"`
	TotalFantasyPoints int     `db:"total_fantasy_points"`
	AvgFantasyPoints   float64 `db:"avg_fantasy_points"`
	Form3GW            float64 `db:"form_3gw"`
	Form6GW            float64 `db:"form_6gw"`
}

type TeamStatsRepository struct {
	db *sqlx.DB
}

func NewTeamStatsRepository(db *sqlx.DB) *TeamStatsRepository {
	return &TeamStatsRepository{db: db}
}

func (r *TeamStatsRepository) ListByTeam(ctx context.Context, teamID int) ([]teamstats.GameweekStat, error) {
	query, args, err := qb.Select("*").From("team_gameweek_stats").
		Where(qb.Eq("team_id", teamID)).
		OrderBy("gameweek_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select team stats by team query: %w", err)
	}

	var rows []teamGameweekStatTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select team stats by team: %w", err)
	}

	out := make([]teamstats.GameweekStat, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *TeamStatsRepository) ListByGameweeks(ctx context.Context, gameweekIDs []int) ([]teamstats.GameweekStat, error) {
	if len(gameweekIDs) == 0 {
		return nil, nil
	}

	query, args, err := qb.Select("*").From("team_gameweek_stats").
		Where(qb.In("gameweek_id", intsToAny(gameweekIDs))).
		OrderBy("gameweek_id", "team_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select team stats query: %w", err)
	}

	var rows []teamGameweekStatTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select team stats: %w", err)
	}

	out := make([]teamstats.GameweekStat, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *TeamStatsRepository) ReplaceByGameweek(ctx context.Context, gameweekID int, rows []teamstats.GameweekStat) error {
	if gameweekID <= 0 {
		return fmt.Errorf("gameweek id must be greater than zero")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace team stats tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	clearQuery, clearArgs, err := qb.DeleteFrom("team_gameweek_stats").
		Where(qb.Eq("gameweek_id", gameweekID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build clear team stats query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, clearQuery, clearArgs...); err != nil {
		return fmt.Errorf("clear team stats gameweek_id=%d: %w", gameweekID, err)
	}

	if len(rows) > 0 {
		models := make([]teamGameweekStatInsertModel, 0, len(rows))
		for _, row := range rows {
			models = append(models, fromTeamStatDomain(row))
		}
		query, args, err := qb.InsertModels("team_gameweek_stats", models, "")
		if err != nil {
			return fmt.Errorf("build insert team stats query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return wrapWriteError(fmt.Sprintf("insert team stats gameweek_id=%d", gameweekID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace team stats tx: %w", err)
	}
	return nil
}

func (m teamGameweekStatTableModel) toDomain() teamstats.GameweekStat {
	return teamstats.GameweekStat{
		TeamID:             m.TeamID,
		GameweekID:         m.GameweekID,
		FixtureID:          m.FixtureID,
		OpponentTeamID:     m.OpponentTeamID,
		IsHome:             m.IsHome,
		Difficulty:         m.Difficulty,
		Result:             teamstats.Result(m.Result),
		CleanSheet:         m.CleanSheet,
		GoalsFor:           m.GoalsFor,
		GoalsAgainst:       m.GoalsAgainst,
		PlayersUsed:        m.PlayersUsed,
		Goals:              m.Goals,
		Assists:            m.Assists,
		YellowCards:        m.YellowCards,
		RedCards:           m.RedCards,
		Saves:              m.Saves,
		Bonus:              m.Bonus,
		GoalsConceded:      m.GoalsConceded,
		OwnGoals:           m.OwnGoals,
		PenaltiesSaved:     m.PenaltiesSaved,
		PenaltiesMissed:    m.PenaltiesMissed,
		ExpectedGoals:      m.ExpectedGoals,
		ExpectedAssists:    m.ExpectedAssists,
		InfluenceAvg:       m.InfluenceAvg,
		CreativityAvg:      m.CreativityAvg,
		ThreatAvg:          m.ThreatAvg,
		ICTIndexSum:        m.ICTIndexSum,
		ICTIndexAvg:        m.ICTIndexAvg,
		TotalFantasyPoints: m.TotalFantasyPoints,
		AvgFantasyPoints:   m.AvgFantasyPoints,
		Form3GW:            m.Form3GW,
		Form6GW:            m.Form6GW,
		ComputedAt:         m.ComputedAt,
	}
}

func fromTeamStatDomain(item teamstats.GameweekStat) teamGameweekStatInsertModel {
	return teamGameweekStatInsertModel{
		TeamID:             item.TeamID,
		GameweekID:         item.GameweekID,
		FixtureID:          item.FixtureID,
		OpponentTeamID:     item.OpponentTeamID,
		IsHome:             item.IsHome,
		Difficulty:         item.Difficulty,
		Result:             string(item.Result),
		CleanSheet:         item.CleanSheet,
		GoalsFor:           item.GoalsFor,
		GoalsAgainst:       item.GoalsAgainst,
		PlayersUsed:        item.PlayersUsed,
		Goals:              item.Goals,
		Assists:            item.Assists,
		YellowCards:        item.YellowCards,
		RedCards:           item.RedCards,
		Saves:              item.Saves,
		Bonus:              item.Bonus,
		GoalsConceded:      item.GoalsConceded,
		OwnGoals:           item.OwnGoals,
		PenaltiesSaved:     item.PenaltiesSaved,
		PenaltiesMissed:    item.PenaltiesMissed,
		ExpectedGoals:      item.ExpectedGoals,
		ExpectedAssists:    item.ExpectedAssists,
		InfluenceAvg:       item.InfluenceAvg,
		CreativityAvg:      item.CreativityAvg,
		ThreatAvg:          item.ThreatAvg,
		ICTIndexSum:        item.ICTIndexSum,
		ICTIndexAvg:        item.ICTIndexAvg,
		TotalFantasyPoints: item.TotalFantasyPoints,
		AvgFantasyPoints:   item.AvgFantasyPoints,
		Form3GW:            item.Form3GW,
		Form6GW:            item.Form6GW,
	}
}
