package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/fpl-sync/internal/domain/team"
	qb "github.com/riskibarqy/fpl-sync/internal/platform/querybuilder"
)

type teamTableModel struct {
	ID                  int       `db:"id"`
	Name                string    `db:"name"`
	ShortName           string    `db:"short_name"`
	Code                int       `db:"code"`
	Strength            int       `db:"strength"`
	StrengthOverallHome int       `db:"strength_overall_home"`
	StrengthOverallAway int       `db:"strength_overall_away"`
	StrengthAttackHome  int       `db:"strength_attack_home"`
	StrengthAttackAway  int       `db:"strength_attack_away"`
	StrengthDefenceHome int       `db:"strength_defence_home"`
	StrengthDefenceAway int       `db:"strength_defence_away"`
	UpdatedAt           time.Time `db:"updated_at"`
}

type TeamRepository struct {
	db *sqlx.DB
}

func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) List(ctx context.Context) ([]team.Team, error) {
	query, args, err := qb.Select("*").From("teams").OrderBy("id").ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select teams query: %w", err)
	}

	var rows []teamTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select teams: %w", err)
	}

	out := make([]team.Team, 0, len(rows))
	for _, row := range rows {
		out = append(out, team.Team(row))
	}
	return out, nil
}

func (r *TeamRepository) Upsert(ctx context.Context, items []team.Team) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert teams tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, item := range items {
		model := teamTableModel(item)
		query, args, err := qb.InsertModel("teams", model, `ON CONFLICT (id)
DO UPDATE SET
    name = EXCLUDED.name,
    short_name = EXCLUDED.short_name,
    code = EXCLUDED.code,
    strength = EXCLUDED.strength,
    strength_overall_home = EXCLUDED.strength_overall_home,
    strength_overall_away = EXCLUDED.strength_overall_away,
    strength_attack_home = EXCLUDED.strength_attack_home,
    strength_attack_away = EXCLUDED.strength_attack_away,
    strength_defence_home = EXCLUDED.strength_defence_home,
    strength_defence_away = EXCLUDED.strength_defence_away,
    updated_at = EXCLUDED.updated_at`)
		if err != nil {
			return fmt.Errorf("build upsert team query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return wrapWriteError(fmt.Sprintf("upsert team id=%d", item.ID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert teams tx: %w", err)
	}
	return nil
}
