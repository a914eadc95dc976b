package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/fpl-sync/internal/domain/player"
	qb "github.com/riskibarqy/fpl-sync/internal/platform/querybuilder"
)

type playerTableModel struct {
	ID                       int           `db:"id"`
	TeamID                   int           `db:"team_id"`
	FirstName                string        `db:"first_name"`
	SecondName               string        `db:"second_name"`
	WebName                  string        `db:"web_name"`
	Position                 string        `db:"position"`
	NowCost                  int           `db:"now_cost"`
	TotalPoints              int           `db:"total_points"`
	Form                     float64       `db:"form"`
	PointsPerGame            float64       `db:"points_per_game"`
	Status                   string        `db:"status"`
	News                     string        `db:"news"`
	ChanceOfPlayingNextRound sql.NullInt64 `db:"chance_of_playing_next_round"`
	UpdatedAt                time.Time     `db:"updated_at"`
}

type PlayerRepository struct {
	db *sqlx.DB
}

func NewPlayerRepository(db *sqlx.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

func (r *PlayerRepository) List(ctx context.Context) ([]player.Player, error) {
	query, args, err := qb.Select("*").From("players").OrderBy("id").ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select players query: %w", err)
	}

	var rows []playerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select players: %w", err)
	}

	out := make([]player.Player, 0, len(rows))
	for _, row := range rows {
		out = append(out, player.Player{
			ID:                       row.ID,
			TeamID:                   row.TeamID,
			FirstName:                row.FirstName,
			SecondName:               row.SecondName,
			WebName:                  row.WebName,
			Position:                 player.Position(row.Position),
			NowCost:                  row.NowCost,
			TotalPoints:              row.TotalPoints,
			Form:                     row.Form,
			PointsPerGame:            row.PointsPerGame,
			Status:                   player.Status(row.Status),
			News:                     row.News,
			ChanceOfPlayingNextRound: intPtrFromNullInt(row.ChanceOfPlayingNextRound),
			UpdatedAt:                row.UpdatedAt,
		})
	}
	return out, nil
}

func (r *PlayerRepository) Upsert(ctx context.Context, items []player.Player) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert players tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, item := range items {
		model := playerTableModel{
			ID:                       item.ID,
			TeamID:                   item.TeamID,
			FirstName:                item.FirstName,
			SecondName:               item.SecondName,
			WebName:                  item.WebName,
			Position:                 string(item.Position),
			NowCost:                  item.NowCost,
			TotalPoints:              item.TotalPoints,
			Form:                     item.Form,
			PointsPerGame:            item.PointsPerGame,
			Status:                   string(item.Status),
			News:                     item.News,
			ChanceOfPlayingNextRound: nullIntFromIntPtr(item.ChanceOfPlayingNextRound),
			UpdatedAt:                item.UpdatedAt,
		}
		query, args, err := qb.InsertModel("players", model, `ON CONFLICT (id)
DO UPDATE SET
    team_id = EXCLUDED.team_id,
    first_name = EXCLUDED.first_name,
    second_name = EXCLUDED.second_name,
    web_name = EXCLUDED.web_name,
    position = EXCLUDED.position,
    now_cost = EXCLUDED.now_cost,
    total_points = EXCLUDED.total_points,
    form = EXCLUDED.form,
    points_per_game = EXCLUDED.points_per_game,
    status = EXCLUDED.status,
    news = EXCLUDED.news,
    chance_of_playing_next_round = EXCLUDED.chance_of_playing_next_round,
    updated_at = EXCLUDED.updated_at`)
		if err != nil {
			return fmt.Errorf("build upsert player query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return wrapWriteError(fmt.Sprintf("upsert player id=%d", item.ID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert players tx: %w", err)
	}
	return nil
}
