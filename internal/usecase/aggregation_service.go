package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/riskibarqy/fpl-sync/internal/domain/fixture"
	"github.com/riskibarqy/fpl-sync/internal/domain/player"
	"github.com/riskibarqy/fpl-sync/internal/domain/playerstats"
	"github.com/riskibarqy/fpl-sync/internal/domain/teamstats"
	"github.com/riskibarqy/fpl-sync/internal/platform/logging"
)

const (
	formShortWindow = 3
	formLongWindow  = 6
)

// AggregationService derives team_gameweek_stats rows from player stat
// lines and fixture results. It is the exclusive owner of that table:
// recomputation replaces whole gameweek scopes, nothing updates in place.
type AggregationService struct {
	playerRepo      player.Repository
	playerStatsRepo playerstats.Repository
	fixtureRepo     fixture.Repository
	teamStatsRepo   teamstats.Repository
	logger          *logging.Logger
}

func NewAggregationService(
	playerRepo player.Repository,
	playerStatsRepo playerstats.Repository,
	fixtureRepo fixture.Repository,
	teamStatsRepo teamstats.Repository,
	logger *logging.Logger,
) *AggregationService {
	if logger == nil {
		logger = logging.Default()
	}
	return &AggregationService{
		playerRepo:      playerRepo,
		playerStatsRepo: playerStatsRepo,
		fixtureRepo:     fixtureRepo,
		teamStatsRepo:   teamStatsRepo,
		logger:          logger,
	}
}

// Recompute rebuilds team aggregates for the given gameweeks; an empty
// scope means every gameweek that has player stats. Gameweeks are processed
// in ascending order so trailing form windows inside the scope see the
// freshly recomputed earlier rows.
func (s *AggregationService) Recompute(ctx context.Context, gameweekIDs []int) error {
	ctx, span := startUsecaseSpan(ctx, "AggregationService.Recompute")
	defer span.End()

	if len(gameweekIDs) == 0 {
		all, err := s.playerStatsRepo.ListGameweekIDs(ctx)
		if err != nil {
			return fmt.Errorf("list stat gameweeks: %w", err)
		}
		gameweekIDs = all
	}
	if len(gameweekIDs) == 0 {
		return nil
	}

	scope := append([]int(nil), gameweekIDs...)
	sort.Ints(scope)

	players, err := s.playerRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("list players: %w", err)
	}
	playerTeams := make(map[int]int, len(players))
	for _, p := range players {
		playerTeams[p.ID] = p.TeamID
	}

	stats, err := s.playerStatsRepo.ListByGameweeks(ctx, scope)
	if err != nil {
		return fmt.Errorf("list player stats: %w", err)
	}
	statsByGameweek := make(map[int][]playerstats.GameweekStat, len(scope))
	for _, row := range stats {
		statsByGameweek[row.GameweekID] = append(statsByGameweek[row.GameweekID], row)
	}

	historyByTeam := make(map[int][]teamstats.GameweekStat)

	for _, gameweekID := range scope {
		if err := ctx.Err(); err != nil {
			return err
		}

		// ReplaceByGameweek drops every stored row for this gameweek, so
		// cached histories must forget it too; teams aggregated below get
		// their fresh row merged back, skipped teams stay absent from
		// later form windows.
		for teamID, history := range historyByTeam {
			historyByTeam[teamID] = withoutGameweek(history, gameweekID)
		}

		rows, err := s.recomputeGameweek(ctx, gameweekID, statsByGameweek[gameweekID], playerTeams, historyByTeam)
		if err != nil {
			return err
		}
		if err := s.teamStatsRepo.ReplaceByGameweek(ctx, gameweekID, rows); err != nil {
			return fmt.Errorf("replace team stats gameweek_id=%d: %w", gameweekID, err)
		}
	}

	return nil
}

func (s *AggregationService) recomputeGameweek(
	ctx context.Context,
	gameweekID int,
	stats []playerstats.GameweekStat,
	playerTeams map[int]int,
	historyByTeam map[int][]teamstats.GameweekStat,
) ([]teamstats.GameweekStat, error) {
	fixtures, err := s.fixtureRepo.ListByGameweek(ctx, gameweekID)
	if err != nil {
		return nil, fmt.Errorf("list fixtures gameweek_id=%d: %w", gameweekID, err)
	}
	fixturesByTeam := make(map[int][]fixture.Fixture)
	for _, fx := range fixtures {
		fixturesByTeam[fx.HomeTeamID] = append(fixturesByTeam[fx.HomeTeamID], fx)
		fixturesByTeam[fx.AwayTeamID] = append(fixturesByTeam[fx.AwayTeamID], fx)
	}

	groups := make(map[int][]playerstats.GameweekStat)
	for _, row := range stats {
		teamID, ok := playerTeams[row.PlayerID]
		if !ok {
			s.logger.WarnContext(ctx, "player stat without known team, skipping row", "player_id", row.PlayerID, "gameweek_id", gameweekID)
			continue
		}
		groups[teamID] = append(groups[teamID], row)
	}

	teamIDs := make([]int, 0, len(groups))
	for teamID := range groups {
		teamIDs = append(teamIDs, teamID)
	}
	sort.Ints(teamIDs)

	out := make([]teamstats.GameweekStat, 0, len(teamIDs))
	for _, teamID := range teamIDs {
		group := groups[teamID]

		fx, ok := resolveTeamFixture(fixturesByTeam[teamID], group)
		if !ok || !fx.HasScore() {
			// Outcome fields come from the fixture score only, so a group
			// without a scored fixture cannot be aggregated yet.
			s.logger.WarnContext(ctx, "aggregation input missing, skipping team group",
				"team_id", teamID, "gameweek_id", gameweekID, "error", ErrAggregationInputMissing)
			continue
		}

		row := buildTeamGameweekStat(teamID, gameweekID, fx, group)

		history, err := s.teamHistory(ctx, teamID, historyByTeam)
		if err != nil {
			return nil, err
		}
		merged := mergeHistory(history, row)
		row.Form3GW = formMean(merged, gameweekID, formShortWindow)
		row.Form6GW = formMean(merged, gameweekID, formLongWindow)
		historyByTeam[teamID] = merged

		out = append(out, row)
	}

	return out, nil
}

// resolveTeamFixture picks the team's fixture for the gameweek. Double
// gameweeks are disambiguated through the stat rows' fixture links; if the
// rows do not agree on a single fixture the group is unresolvable.
func resolveTeamFixture(candidates []fixture.Fixture, group []playerstats.GameweekStat) (fixture.Fixture, bool) {
	switch len(candidates) {
	case 0:
		return fixture.Fixture{}, false
	case 1:
		return candidates[0], true
	}

	linked := make(map[int]bool)
	for _, row := range group {
		if row.FixtureID != nil {
			linked[*row.FixtureID] = true
		}
	}
	if len(linked) != 1 {
		return fixture.Fixture{}, false
	}
	for _, fx := range candidates {
		if linked[fx.ID] {
			return fx, true
		}
	}
	return fixture.Fixture{}, false
}

func buildTeamGameweekStat(teamID, gameweekID int, fx fixture.Fixture, group []playerstats.GameweekStat) teamstats.GameweekStat {
	row := teamstats.GameweekStat{
		TeamID:     teamID,
		GameweekID: gameweekID,
		FixtureID:  fx.ID,
		IsHome:     fx.HomeTeamID == teamID,
	}

	goalsFor, goalsAgainst := *fx.AwayScore, *fx.HomeScore
	if row.IsHome {
		goalsFor, goalsAgainst = *fx.HomeScore, *fx.AwayScore
		row.OpponentTeamID = fx.AwayTeamID
		row.Difficulty = fx.DifficultyHome
	} else {
		row.OpponentTeamID = fx.HomeTeamID
		row.Difficulty = fx.DifficultyAway
	}
	row.GoalsFor = goalsFor
	row.GoalsAgainst = goalsAgainst
	row.CleanSheet = goalsAgainst == 0
	switch {
	case goalsFor > goalsAgainst:
		row.Result = teamstats.ResultWin
	case goalsFor < goalsAgainst:
		row.Result = teamstats.ResultLoss
	default:
		row.Result = teamstats.ResultDraw
	}

	var influence, creativity, threat, ict float64
	for _, item := range group {
		if item.Minutes <= 0 {
			continue
		}
		row.PlayersUsed++
		row.Goals += item.GoalsScored
		row.Assists += item.Assists
		row.YellowCards += item.YellowCards
		row.RedCards += item.RedCards
		row.Saves += item.Saves
		row.Bonus += item.Bonus
		row.GoalsConceded += item.GoalsConceded
		row.OwnGoals += item.OwnGoals
		row.PenaltiesSaved += item.PenaltiesSaved
		row.PenaltiesMissed += item.PenaltiesMissed
		row.ExpectedGoals += item.ExpectedGoals
		row.ExpectedAssists += item.ExpectedAssists
		row.TotalFantasyPoints += item.TotalPoints
		influence += item.Influence
		creativity += item.Creativity
		threat += item.Threat
		ict += item.ICTIndex
	}

	if row.PlayersUsed > 0 {
		used := float64(row.PlayersUsed)
		row.InfluenceAvg = round2(influence / used)
		row.CreativityAvg = round2(creativity / used)
		row.ThreatAvg = round2(threat / used)
		row.ICTIndexAvg = round2(ict / used)
		row.AvgFantasyPoints = round2(float64(row.TotalFantasyPoints) / used)
	}
	row.ICTIndexSum = round2(ict)
	row.ExpectedGoals = round2(row.ExpectedGoals)
	row.ExpectedAssists = round2(row.ExpectedAssists)

	return row
}

func (s *AggregationService) teamHistory(ctx context.Context, teamID int, cache map[int][]teamstats.GameweekStat) ([]teamstats.GameweekStat, error) {
	if history, ok := cache[teamID]; ok {
		return history, nil
	}
	history, err := s.teamStatsRepo.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("list team stats team_id=%d: %w", teamID, err)
	}
	cache[teamID] = history
	return history, nil
}

func withoutGameweek(history []teamstats.GameweekStat, gameweekID int) []teamstats.GameweekStat {
	out := make([]teamstats.GameweekStat, 0, len(history))
	for _, item := range history {
		if item.GameweekID == gameweekID {
			continue
		}
		out = append(out, item)
	}
	return out
}

// mergeHistory overlays the freshly computed row onto the stored history,
// keeping ascending gameweek order.
func mergeHistory(history []teamstats.GameweekStat, row teamstats.GameweekStat) []teamstats.GameweekStat {
	out := make([]teamstats.GameweekStat, 0, len(history)+1)
	replaced := false
	for _, item := range history {
		if item.GameweekID == row.GameweekID {
			out = append(out, row)
			replaced = true
			continue
		}
		out = append(out, item)
	}
	if !replaced {
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].GameweekID < out[j].GameweekID })
	return out
}

// formMean averages total fantasy points over the trailing window ending at
// the target gameweek, counting only gameweeks the team actually has rows
// for. Absent gameweeks shrink the window instead of counting as zero.
func formMean(history []teamstats.GameweekStat, gameweekID, window int) float64 {
	totals := make([]int, 0, window)
	for _, item := range history {
		if item.GameweekID <= gameweekID {
			totals = append(totals, item.TotalFantasyPoints)
		}
	}
	if len(totals) == 0 {
		return 0
	}
	if len(totals) > window {
		totals = totals[len(totals)-window:]
	}

	sum := 0
	for _, v := range totals {
		sum += v
	}
	return round2(float64(sum) / float64(len(totals)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
