package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/riskibarqy/fpl-sync/internal/domain/fixture"
	"github.com/riskibarqy/fpl-sync/internal/domain/gameweek"
	"github.com/riskibarqy/fpl-sync/internal/domain/player"
	"github.com/riskibarqy/fpl-sync/internal/domain/playerstats"
	"github.com/riskibarqy/fpl-sync/internal/domain/team"
	"github.com/riskibarqy/fpl-sync/internal/platform/logging"
)

// IngestionService maps upstream snapshots onto domain rows and writes them
// through the repositories. All writes are idempotent upserts on natural
// keys, so replaying the same snapshot is a no-op.
type IngestionService struct {
	teamRepo        team.Repository
	playerRepo      player.Repository
	gameweekRepo    gameweek.Repository
	fixtureRepo     fixture.Repository
	playerStatsRepo playerstats.Repository
	logger          *logging.Logger
	now             func() time.Time
}

func NewIngestionService(
	teamRepo team.Repository,
	playerRepo player.Repository,
	gameweekRepo gameweek.Repository,
	fixtureRepo fixture.Repository,
	playerStatsRepo playerstats.Repository,
	logger *logging.Logger,
) *IngestionService {
	if logger == nil {
		logger = logging.Default()
	}
	return &IngestionService{
		teamRepo:        teamRepo,
		playerRepo:      playerRepo,
		gameweekRepo:    gameweekRepo,
		fixtureRepo:     fixtureRepo,
		playerStatsRepo: playerStatsRepo,
		logger:          logger,
		now:             time.Now,
	}
}

// SyncReferenceData upserts teams, gameweeks, players and fixtures, in that
// dependency order. Invalid upstream rows are skipped with a warning rather
// than failing the whole snapshot.
func (s *IngestionService) SyncReferenceData(ctx context.Context, bootstrap ExternalBootstrap, fixtures []ExternalFixture) error {
	ctx, span := startUsecaseSpan(ctx, "IngestionService.SyncReferenceData")
	defer span.End()

	now := s.now().UTC()

	teams := make([]team.Team, 0, len(bootstrap.Teams))
	for _, item := range bootstrap.Teams {
		row := team.Team{
			ID:                  item.ID,
			Name:                item.Name,
			ShortName:           item.ShortName,
			Code:                item.Code,
			Strength:            item.Strength,
			StrengthOverallHome: item.StrengthOverallHome,
			StrengthOverallAway: item.StrengthOverallAway,
			StrengthAttackHome:  item.StrengthAttackHome,
			StrengthAttackAway:  item.StrengthAttackAway,
			StrengthDefenceHome: item.StrengthDefenceHome,
			StrengthDefenceAway: item.StrengthDefenceAway,
			UpdatedAt:           now,
		}
		if err := row.Validate(); err != nil {
			s.logger.WarnContext(ctx, "skip invalid team row", "team_id", item.ID, "error", err)
			continue
		}
		teams = append(teams, row)
	}
	if err := s.teamRepo.Upsert(ctx, teams); err != nil {
		return fmt.Errorf("upsert teams: %w", err)
	}

	gameweeks := make([]gameweek.Gameweek, 0, len(bootstrap.Gameweeks))
	for _, item := range bootstrap.Gameweeks {
		row := gameweek.Gameweek{
			ID:                item.ID,
			Name:              item.Name,
			DeadlineTime:      item.DeadlineTime,
			IsCurrent:         item.IsCurrent,
			IsNext:            item.IsNext,
			IsPrevious:        item.IsPrevious,
			Finished:          item.Finished,
			DataChecked:       item.DataChecked,
			HighestScore:      item.HighestScore,
			AverageEntryScore: item.AverageEntryScore,
			UpdatedAt:         now,
		}
		if err := row.Validate(); err != nil {
			s.logger.WarnContext(ctx, "skip invalid gameweek row", "gameweek_id", item.ID, "error", err)
			continue
		}
		gameweeks = append(gameweeks, row)
	}
	if err := s.gameweekRepo.Upsert(ctx, gameweeks); err != nil {
		return fmt.Errorf("upsert gameweeks: %w", err)
	}

	players := make([]player.Player, 0, len(bootstrap.Players))
	for _, item := range bootstrap.Players {
		row := player.Player{
			ID:                       item.ID,
			TeamID:                   item.TeamID,
			FirstName:                item.FirstName,
			SecondName:               item.SecondName,
			WebName:                  item.WebName,
			Position:                 player.PositionFromElementType(item.ElementType),
			NowCost:                  item.NowCost,
			TotalPoints:              item.TotalPoints,
			Form:                     item.Form,
			PointsPerGame:            item.PointsPerGame,
			Status:                   player.Status(item.Status),
			News:                     item.News,
			ChanceOfPlayingNextRound: item.ChanceOfPlayingNextRound,
			UpdatedAt:                now,
		}
		if err := row.Validate(); err != nil {
			s.logger.WarnContext(ctx, "skip invalid player row", "player_id", item.ID, "error", err)
			continue
		}
		players = append(players, row)
	}
	if err := s.playerRepo.Upsert(ctx, players); err != nil {
		return fmt.Errorf("upsert players: %w", err)
	}

	fixtureRows := make([]fixture.Fixture, 0, len(fixtures))
	for _, item := range fixtures {
		row := fixture.Fixture{
			ID:             item.ID,
			HomeTeamID:     item.HomeTeamID,
			AwayTeamID:     item.AwayTeamID,
			HomeScore:      item.HomeScore,
			AwayScore:      item.AwayScore,
			Finished:       item.Finished,
			KickoffTime:    item.KickoffTime,
			DifficultyHome: item.DifficultyHome,
			DifficultyAway: item.DifficultyAway,
			UpdatedAt:      now,
		}
		if item.GameweekID != nil {
			row.GameweekID = *item.GameweekID
		}
		if err := row.Validate(); err != nil {
			s.logger.WarnContext(ctx, "skip invalid fixture row", "fixture_id", item.ID, "error", err)
			continue
		}
		fixtureRows = append(fixtureRows, row)
	}
	if err := s.fixtureRepo.Upsert(ctx, fixtureRows); err != nil {
		return fmt.Errorf("upsert fixtures: %w", err)
	}

	return nil
}

// SyncPlayerStats upserts one gameweek's player stat lines. Rows without a
// fixture reference are auto-linked to the unique fixture in that gameweek
// involving the player's team; ambiguous or missing candidates leave the
// link unset.
func (s *IngestionService) SyncPlayerStats(ctx context.Context, gameweekID int, stats []ExternalPlayerGameweekStat, playerTeams map[int]int, fixtures []ExternalFixture) error {
	ctx, span := startUsecaseSpan(ctx, "IngestionService.SyncPlayerStats")
	defer span.End()

	if gameweekID <= 0 {
		return fmt.Errorf("%w: gameweek id must be greater than zero", ErrInvalidInput)
	}

	fixturesByTeam := make(map[int][]int)
	for _, fx := range fixtures {
		if fx.GameweekID == nil || *fx.GameweekID != gameweekID {
			continue
		}
		fixturesByTeam[fx.HomeTeamID] = append(fixturesByTeam[fx.HomeTeamID], fx.ID)
		fixturesByTeam[fx.AwayTeamID] = append(fixturesByTeam[fx.AwayTeamID], fx.ID)
	}

	now := s.now().UTC()
	rows := make([]playerstats.GameweekStat, 0, len(stats))
	for _, item := range stats {
		row := playerstats.GameweekStat{
			PlayerID:        item.PlayerID,
			GameweekID:      gameweekID,
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
			UpdatedAt:       now,
		}
		switch {
		case item.FixtureID > 0:
			fixtureID := item.FixtureID
			row.FixtureID = &fixtureID
		default:
			if candidates := fixturesByTeam[playerTeams[item.PlayerID]]; len(candidates) == 1 {
				fixtureID := candidates[0]
				row.FixtureID = &fixtureID
			}
		}
		if err := row.Validate(); err != nil {
			s.logger.WarnContext(ctx, "skip invalid player stat row", "player_id", item.PlayerID, "gameweek_id", gameweekID, "error", err)
			continue
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].PlayerID < rows[j].PlayerID })

	if err := s.playerStatsRepo.Upsert(ctx, rows); err != nil {
		return fmt.Errorf("upsert player stats gameweek_id=%d: %w", gameweekID, err)
	}
	return nil
}
