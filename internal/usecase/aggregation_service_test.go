package usecase

import (
	"context"
	"reflect"
	"testing"

	"github.com/riskibarqy/fpl-sync/internal/domain/fixture"
	"github.com/riskibarqy/fpl-sync/internal/domain/player"
	"github.com/riskibarqy/fpl-sync/internal/domain/playerstats"
	"github.com/riskibarqy/fpl-sync/internal/domain/teamstats"
	"github.com/riskibarqy/fpl-sync/internal/platform/logging"
)

type aggregationFixture struct {
	svc       *AggregationService
	players   *memPlayerRepo
	stats     *memPlayerStatsRepo
	fixtures  *memFixtureRepo
	teamStats *memTeamStatsRepo
}

func newAggregationFixture() *aggregationFixture {
	f := &aggregationFixture{
		players:   newMemPlayerRepo(),
		stats:     newMemPlayerStatsRepo(),
		fixtures:  newMemFixtureRepo(),
		teamStats: newMemTeamStatsRepo(),
	}
	f.svc = NewAggregationService(f.players, f.stats, f.fixtures, f.teamStats, logging.NewNop())
	return f
}

func (f *aggregationFixture) addPlayer(id, teamID int) {
	_ = f.players.Upsert(context.Background(), []player.Player{{ID: id, TeamID: teamID, WebName: "P", Position: player.PositionMidfielder, Status: player.StatusAvailable}})
}

func (f *aggregationFixture) addFixture(id, gameweekID, home, away int, homeScore, awayScore *int) {
	_ = f.fixtures.Upsert(context.Background(), []fixture.Fixture{{
		ID: id, GameweekID: gameweekID, HomeTeamID: home, AwayTeamID: away,
		HomeScore: homeScore, AwayScore: awayScore, Finished: homeScore != nil,
		DifficultyHome: 2, DifficultyAway: 4,
	}})
}

func (f *aggregationFixture) addStat(row playerstats.GameweekStat) {
	_ = f.stats.Upsert(context.Background(), []playerstats.GameweekStat{row})
}

func TestRecompute_OutcomeFromFixtureScore(t *testing.T) {
	t.Parallel()

	f := newAggregationFixture()
	f.addPlayer(100, 1)
	f.addPlayer(101, 1)
	f.addPlayer(200, 2)
	f.addFixture(10, 1, 1, 2, intPtr(2), intPtr(0))

	f.addStat(playerstats.GameweekStat{PlayerID: 100, GameweekID: 1, Minutes: 90, GoalsScored: 2, TotalPoints: 13, Influence: 60, Creativity: 30, Threat: 80, ICTIndex: 17})
	f.addStat(playerstats.GameweekStat{PlayerID: 101, GameweekID: 1, Minutes: 90, CleanSheets: 1, TotalPoints: 6, Influence: 20, Creativity: 10, Threat: 4, ICTIndex: 3.4})
	f.addStat(playerstats.GameweekStat{PlayerID: 200, GameweekID: 1, Minutes: 90, GoalsConceded: 2, TotalPoints: 1})

	if err := f.svc.Recompute(context.Background(), []int{1}); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	home, ok := f.teamStats.get(1, 1)
	if !ok {
		t.Fatal("missing home team row")
	}
	if home.Result != "W" || !home.CleanSheet || home.GoalsFor != 2 || home.GoalsAgainst != 0 {
		t.Fatalf("home outcome = %+v", home)
	}
	if !home.IsHome || home.OpponentTeamID != 2 || home.Difficulty != 2 || home.FixtureID != 10 {
		t.Fatalf("home fixture context = %+v", home)
	}
	if home.PlayersUsed != 2 || home.Goals != 2 || home.TotalFantasyPoints != 19 {
		t.Fatalf("home sums = %+v", home)
	}
	if home.ICTIndexAvg != 10.2 || home.AvgFantasyPoints != 9.5 {
		t.Fatalf("home averages = ict %v fantasy %v", home.ICTIndexAvg, home.AvgFantasyPoints)
	}

	away, ok := f.teamStats.get(2, 1)
	if !ok {
		t.Fatal("missing away team row")
	}
	if away.Result != "L" || away.CleanSheet || away.GoalsFor != 0 || away.GoalsAgainst != 2 {
		t.Fatalf("away outcome = %+v", away)
	}
	if away.IsHome || away.Difficulty != 4 {
		t.Fatalf("away fixture context = %+v", away)
	}
}

func TestRecompute_MinutesZeroRowsExcluded(t *testing.T) {
	t.Parallel()

	f := newAggregationFixture()
	f.addPlayer(100, 1)
	f.addPlayer(101, 1)
	f.addPlayer(200, 2)
	f.addFixture(10, 1, 1, 2, intPtr(1), intPtr(1))

	f.addStat(playerstats.GameweekStat{PlayerID: 100, GameweekID: 1, Minutes: 90, TotalPoints: 5})
	f.addStat(playerstats.GameweekStat{PlayerID: 101, GameweekID: 1, Minutes: 0, TotalPoints: 0, Bonus: 3})
	f.addStat(playerstats.GameweekStat{PlayerID: 200, GameweekID: 1, Minutes: 90, TotalPoints: 4})

	if err := f.svc.Recompute(context.Background(), []int{1}); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	row, ok := f.teamStats.get(1, 1)
	if !ok {
		t.Fatal("missing team row")
	}
	if row.PlayersUsed != 1 || row.Bonus != 0 || row.TotalFantasyPoints != 5 {
		t.Fatalf("benched player leaked into sums: %+v", row)
	}
	if row.Result != "D" || row.CleanSheet {
		t.Fatalf("draw outcome wrong: %+v", row)
	}
}

func TestRecompute_SkipsTeamWithoutScoredFixture(t *testing.T) {
	t.Parallel()

	f := newAggregationFixture()
	f.addPlayer(100, 1)
	f.addPlayer(200, 2)
	f.addPlayer(300, 3)
	f.addPlayer(400, 4)
	f.addFixture(10, 1, 1, 2, intPtr(3), intPtr(1))
	f.addFixture(11, 1, 3, 4, nil, nil) // postponed, no score yet

	f.addStat(playerstats.GameweekStat{PlayerID: 100, GameweekID: 1, Minutes: 90, TotalPoints: 9})
	f.addStat(playerstats.GameweekStat{PlayerID: 200, GameweekID: 1, Minutes: 90, TotalPoints: 2})
	f.addStat(playerstats.GameweekStat{PlayerID: 300, GameweekID: 1, Minutes: 90, TotalPoints: 6})

	if err := f.svc.Recompute(context.Background(), []int{1}); err != nil {
		t.Fatalf("recompute must isolate the unscored group: %v", err)
	}

	if _, ok := f.teamStats.get(1, 1); !ok {
		t.Fatal("team 1 should be aggregated")
	}
	if _, ok := f.teamStats.get(2, 1); !ok {
		t.Fatal("team 2 should be aggregated")
	}
	if _, ok := f.teamStats.get(3, 1); ok {
		t.Fatal("team 3 has no scored fixture and must be skipped")
	}
}

func TestRecompute_DoubleGameweekResolvedByStatLinks(t *testing.T) {
	t.Parallel()

	f := newAggregationFixture()
	f.addPlayer(100, 1)
	f.addPlayer(101, 1)
	f.addPlayer(200, 2)
	f.addFixture(50, 5, 1, 2, intPtr(2), intPtr(2))
	f.addFixture(51, 5, 3, 1, intPtr(0), intPtr(1))

	link := 51
	f.addStat(playerstats.GameweekStat{PlayerID: 100, GameweekID: 5, Minutes: 90, TotalPoints: 7, FixtureID: &link})
	f.addStat(playerstats.GameweekStat{PlayerID: 101, GameweekID: 5, Minutes: 90, TotalPoints: 3, FixtureID: &link})

	if err := f.svc.Recompute(context.Background(), []int{5}); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	row, ok := f.teamStats.get(1, 5)
	if !ok {
		t.Fatal("missing team 1 row")
	}
	if row.FixtureID != 51 || row.IsHome || row.Result != "W" || !row.CleanSheet {
		t.Fatalf("double gameweek resolved wrong fixture: %+v", row)
	}
}

func TestRecompute_DoubleGameweekConflictingLinksSkipped(t *testing.T) {
	t.Parallel()

	f := newAggregationFixture()
	f.addPlayer(100, 1)
	f.addPlayer(101, 1)
	f.addFixture(50, 5, 1, 2, intPtr(2), intPtr(2))
	f.addFixture(51, 5, 3, 1, intPtr(0), intPtr(1))

	linkA, linkB := 50, 51
	f.addStat(playerstats.GameweekStat{PlayerID: 100, GameweekID: 5, Minutes: 90, FixtureID: &linkA})
	f.addStat(playerstats.GameweekStat{PlayerID: 101, GameweekID: 5, Minutes: 90, FixtureID: &linkB})

	if err := f.svc.Recompute(context.Background(), []int{5}); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if _, ok := f.teamStats.get(1, 5); ok {
		t.Fatal("conflicting fixture links must leave the group unaggregated")
	}
}

func TestRecompute_FormWindows(t *testing.T) {
	t.Parallel()

	f := newAggregationFixture()
	f.addPlayer(100, 1)
	f.addPlayer(200, 2)
	for gw := 1; gw <= 10; gw++ {
		f.addFixture(100+gw, gw, 1, 2, intPtr(1), intPtr(0))
		f.addStat(playerstats.GameweekStat{PlayerID: 100, GameweekID: gw, Minutes: 90, TotalPoints: gw * 2})
		f.addStat(playerstats.GameweekStat{PlayerID: 200, GameweekID: gw, Minutes: 90, TotalPoints: 1})
	}

	if err := f.svc.Recompute(context.Background(), nil); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	at10, ok := f.teamStats.get(1, 10)
	if !ok {
		t.Fatal("missing gameweek 10 row")
	}
	// Totals for gameweeks 5-10 are 10,12,14,16,18,20.
	if at10.Form6GW != 15 {
		t.Fatalf("form_6gw at gameweek 10 = %v, want 15", at10.Form6GW)
	}
	if at10.Form3GW != 18 {
		t.Fatalf("form_3gw at gameweek 10 = %v, want 18", at10.Form3GW)
	}

	at2, ok := f.teamStats.get(1, 2)
	if !ok {
		t.Fatal("missing gameweek 2 row")
	}
	// Only gameweeks 1-2 exist, so the window shrinks to their mean.
	if at2.Form6GW != 3 {
		t.Fatalf("form_6gw at gameweek 2 = %v, want 3", at2.Form6GW)
	}
}

func TestRecompute_AbsentGameweeksShrinkWindow(t *testing.T) {
	t.Parallel()

	f := newAggregationFixture()
	f.addPlayer(100, 1)
	f.addPlayer(200, 2)
	// Team 1 has rows only for gameweeks 1, 2 and 7: gameweek 7's short
	// window must average the three existing rows, not pad with zeros.
	for _, gw := range []int{1, 2, 7} {
		f.addFixture(100+gw, gw, 1, 2, intPtr(1), intPtr(0))
		f.addStat(playerstats.GameweekStat{PlayerID: 100, GameweekID: gw, Minutes: 90, TotalPoints: 6})
		f.addStat(playerstats.GameweekStat{PlayerID: 200, GameweekID: gw, Minutes: 90, TotalPoints: 1})
	}

	if err := f.svc.Recompute(context.Background(), nil); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	at7, ok := f.teamStats.get(1, 7)
	if !ok {
		t.Fatal("missing gameweek 7 row")
	}
	if at7.Form3GW != 6 {
		t.Fatalf("form_3gw = %v, want 6 over existing gameweeks only", at7.Form3GW)
	}
}

func TestRecompute_SkippedGameweekLeavesFormWindow(t *testing.T) {
	t.Parallel()

	f := newAggregationFixture()
	f.addPlayer(100, 1)
	f.addFixture(101, 1, 1, 2, intPtr(1), intPtr(0))
	f.addFixture(102, 2, 1, 2, nil, nil) // postponed mid-scope
	f.addFixture(103, 3, 1, 2, intPtr(1), intPtr(0))
	for _, gw := range []int{1, 2, 3} {
		f.addStat(playerstats.GameweekStat{PlayerID: 100, GameweekID: gw, Minutes: 90, TotalPoints: 6})
	}

	// Stale row from an earlier run; the postponed fixture means gameweek 2
	// can no longer be aggregated, so the replace deletes it.
	_ = f.teamStats.ReplaceByGameweek(context.Background(), 2, []teamstats.GameweekStat{
		{TeamID: 1, GameweekID: 2, TotalFantasyPoints: 100},
	})

	if err := f.svc.Recompute(context.Background(), []int{1, 2, 3}); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	if _, ok := f.teamStats.get(1, 2); ok {
		t.Fatal("gameweek without a scored fixture must lose its row")
	}
	at3, ok := f.teamStats.get(1, 3)
	if !ok {
		t.Fatal("missing gameweek 3 row")
	}
	if at3.Form3GW != 6 {
		t.Fatalf("form_3gw = %v, want 6 with the deleted gameweek absent from the window", at3.Form3GW)
	}
}

func TestRecompute_RepeatedRunsProduceIdenticalRows(t *testing.T) {
	t.Parallel()

	f := newAggregationFixture()
	f.addPlayer(100, 1)
	f.addPlayer(200, 2)
	f.addFixture(10, 1, 1, 2, intPtr(2), intPtr(1))
	f.addStat(playerstats.GameweekStat{PlayerID: 100, GameweekID: 1, Minutes: 90, TotalPoints: 8, ICTIndex: 12.3, ExpectedGoals: 0.45})
	f.addStat(playerstats.GameweekStat{PlayerID: 200, GameweekID: 1, Minutes: 70, TotalPoints: 2, ICTIndex: 4.1, ExpectedGoals: 0.1})

	if err := f.svc.Recompute(context.Background(), []int{1}); err != nil {
		t.Fatalf("first recompute: %v", err)
	}
	first, _ := f.teamStats.get(1, 1)
	firstAway, _ := f.teamStats.get(2, 1)

	if err := f.svc.Recompute(context.Background(), []int{1}); err != nil {
		t.Fatalf("second recompute: %v", err)
	}
	second, _ := f.teamStats.get(1, 1)
	secondAway, _ := f.teamStats.get(2, 1)

	if !reflect.DeepEqual(first, second) || !reflect.DeepEqual(firstAway, secondAway) {
		t.Fatalf("recomputation not pure:\nfirst  %+v\nsecond %+v", first, second)
	}
}
