package fplapi

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/fpl-sync/internal/usecase"
)

// apiFloat decodes the upstream convention of shipping decimal stats as
// JSON strings ("5.5"), while tolerating plain numbers and nulls.
type apiFloat float64

func (f *apiFloat) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" || raw == `""` {
		*f = 0
		return nil
	}
	raw = strings.Trim(raw, `"`)

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("parse decimal %q: %w", raw, err)
	}
	*f = apiFloat(value)
	return nil
}

type bootstrapResponse struct {
	Teams    []teamItem     `json:"teams" validate:"min=1"`
	Elements []elementItem  `json:"elements" validate:"min=1"`
	Events   []gameweekItem `json:"events" validate:"min=1"`
}

type teamItem struct {
	ID                  int    `json:"id"`
	Name                string `json:"name"`
	ShortName           string `json:"short_name"`
	Code                int    `json:"code"`
	Strength            int    `json:"strength"`
	StrengthOverallHome int    `json:"strength_overall_home"`
	StrengthOverallAway int    `json:"strength_overall_away"`
	StrengthAttackHome  int    `json:"strength_attack_home"`
	StrengthAttackAway  int    `json:"strength_attack_away"`
	StrengthDefenceHome int    `json:"strength_defence_home"`
	StrengthDefenceAway int    `json:"strength_defence_away"`
}

type elementItem struct {
	ID                       int      `json:"id"`
	Team                     int      `json:"team"`
	FirstName                string   `json:"first_name"`
	SecondName               string   `json:"second_name"`
	WebName                  string   `json:"web_name"`
	ElementType              int      `json:"element_type"`
	NowCost                  int      `json:"now_cost"`
	TotalPoints              int      `json:"total_points"`
	Form                     apiFloat `json:"form"`
	PointsPerGame            apiFloat `json:"points_per_game"`
	Status                   string   `json:"status"`
	News                     string   `json:"news"`
	ChanceOfPlayingNextRound *int     `json:"chance_of_playing_next_round"`
}

type gameweekItem struct {
	ID                int        `json:"id"`
	Name              string     `json:"name"`
	DeadlineTime      *time.Time `json:"deadline_time"`
	IsCurrent         bool       `json:"is_current"`
	IsNext            bool       `json:"is_next"`
	IsPrevious        bool       `json:"is_previous"`
	Finished          bool       `json:"finished"`
	DataChecked       bool       `json:"data_checked"`
	HighestScore      *int       `json:"highest_score"`
	AverageEntryScore *int       `json:"average_entry_score"`
}

type fixtureItem struct {
	ID                   int        `json:"id"`
	Event                *int       `json:"event"`
	TeamH                int        `json:"team_h"`
	TeamA                int        `json:"team_a"`
	KickoffTime          *time.Time `json:"kickoff_time"`
	Started              bool       `json:"started"`
	Finished             bool       `json:"finished"`
	FinishedProvisional  bool       `json:"finished_provisional"`
	TeamHScore           *int       `json:"team_h_score"`
	TeamAScore           *int       `json:"team_a_score"`
	TeamHDifficulty      int        `json:"team_h_difficulty"`
	TeamADifficulty      int        `json:"team_a_difficulty"`
	Minutes              int        `json:"minutes"`
	PulseID              int        `json:"pulse_id"`
	ProvisionalStartTime bool       `json:"provisional_start_time"`
}

type liveResponse struct {
	Elements []liveElementItem `json:"elements" validate:"min=1"`
}

type liveElementItem struct {
	ID      int             `json:"id"`
	Stats   liveStatsItem   `json:"stats"`
	Explain []liveExplained `json:"explain"`
}

type liveStatsItem struct {
	Minutes         int      `json:"minutes"`
	GoalsScored     int      `json:"goals_scored"`
	Assists         int      `json:"assists"`
	CleanSheets     int      `json:"clean_sheets"`
	GoalsConceded   int      `json:"goals_conceded"`
	OwnGoals        int      `json:"own_goals"`
	PenaltiesSaved  int      `json:"penalties_saved"`
	PenaltiesMissed int      `json:"penalties_missed"`
	YellowCards     int      `json:"yellow_cards"`
	RedCards        int      `json:"red_cards"`
	Saves           int      `json:"saves"`
	Bonus           int      `json:"bonus"`
	BPS             int      `json:"bps"`
	Influence       apiFloat `json:"influence"`
	Creativity      apiFloat `json:"creativity"`
	Threat          apiFloat `json:"threat"`
	ICTIndex        apiFloat `json:"ict_index"`
	ExpectedGoals   apiFloat `json:"expected_goals"`
	ExpectedAssists apiFloat `json:"expected_assists"`
	TotalPoints     int      `json:"total_points"`
}

type liveExplained struct {
	Fixture int `json:"fixture"`
}

type entryResponse struct {
	ID                  int64  `json:"id" validate:"gt=0"`
	Name                string `json:"name"`
	PlayerFirstName     string `json:"player_first_name"`
	PlayerLastName      string `json:"player_last_name"`
	SummaryOverallPoint int    `json:"summary_overall_points"`
	SummaryOverallRank  int    `json:"summary_overall_rank"`
}

type entryHistoryResponse struct {
	Current []entryHistoryItem `json:"current"`
	Chips   []entryChipItem    `json:"chips"`
}

type entryHistoryItem struct {
	Event          int `json:"event"`
	Points         int `json:"points"`
	TotalPoints    int `json:"total_points"`
	OverallRank    int `json:"overall_rank"`
	Rank           int `json:"rank"`
	EventTransfers int `json:"event_transfers"`
	TransfersCost  int `json:"event_transfers_cost"`
	Bank           int `json:"bank"`
	Value          int `json:"value"`
}

type entryChipItem struct {
	Name  string    `json:"name"`
	Event int       `json:"event"`
	Time  time.Time `json:"time"`
}

type entryTransferItem struct {
	Event       int       `json:"event"`
	ElementIn   int       `json:"element_in"`
	ElementInC  int       `json:"element_in_cost"`
	ElementOut  int       `json:"element_out"`
	ElementOutC int       `json:"element_out_cost"`
	Time        time.Time `json:"time"`
}

type entryPicksResponse struct {
	ActiveChip string           `json:"active_chip"`
	Picks      []entryPickItem  `json:"picks"`
	EntryState *entryPicksEntry `json:"entry_history"`
}

type entryPicksEntry struct {
	Event int `json:"event"`
}

type entryPickItem struct {
	Element       int  `json:"element"`
	Position      int  `json:"position"`
	Multiplier    int  `json:"multiplier"`
	IsCaptain     bool `json:"is_captain"`
	IsViceCaptain bool `json:"is_vice_captain"`
}

func mapBootstrap(resp bootstrapResponse) usecase.ExternalBootstrap {
	out := usecase.ExternalBootstrap{
		Teams:     make([]usecase.ExternalTeam, 0, len(resp.Teams)),
		Players:   make([]usecase.ExternalPlayer, 0, len(resp.Elements)),
		Gameweeks: make([]usecase.ExternalGameweek, 0, len(resp.Events)),
	}

	for _, item := range resp.Teams {
		out.Teams = append(out.Teams, usecase.ExternalTeam{
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
		})
	}

	for _, item := range resp.Elements {
		out.Players = append(out.Players, usecase.ExternalPlayer{
			ID:                       item.ID,
			TeamID:                   item.Team,
			FirstName:                item.FirstName,
			SecondName:               item.SecondName,
			WebName:                  item.WebName,
			ElementType:              item.ElementType,
			NowCost:                  item.NowCost,
			TotalPoints:              item.TotalPoints,
			Form:                     float64(item.Form),
			PointsPerGame:            float64(item.PointsPerGame),
			Status:                   item.Status,
			News:                     item.News,
			ChanceOfPlayingNextRound: cloneIntPtr(item.ChanceOfPlayingNextRound),
		})
	}

	for _, item := range resp.Events {
		gw := usecase.ExternalGameweek{
			ID:                item.ID,
			Name:              item.Name,
			IsCurrent:         item.IsCurrent,
			IsNext:            item.IsNext,
			IsPrevious:        item.IsPrevious,
			Finished:          item.Finished,
			DataChecked:       item.DataChecked,
			HighestScore:      cloneIntPtr(item.HighestScore),
			AverageEntryScore: cloneIntPtr(item.AverageEntryScore),
		}
		if item.DeadlineTime != nil {
			gw.DeadlineTime = item.DeadlineTime.UTC()
		}
		out.Gameweeks = append(out.Gameweeks, gw)
	}

	return out
}

func mapFixtures(items []fixtureItem) []usecase.ExternalFixture {
	out := make([]usecase.ExternalFixture, 0, len(items))
	for _, item := range items {
		fx := usecase.ExternalFixture{
			ID:                  item.ID,
			GameweekID:          cloneIntPtr(item.Event),
			HomeTeamID:          item.TeamH,
			AwayTeamID:          item.TeamA,
			Started:             item.Started,
			Finished:            item.Finished,
			FinishedProvisional: item.FinishedProvisional,
			HomeScore:           cloneIntPtr(item.TeamHScore),
			AwayScore:           cloneIntPtr(item.TeamAScore),
			DifficultyHome:      item.TeamHDifficulty,
			DifficultyAway:      item.TeamADifficulty,
			Minutes:             item.Minutes,
		}
		if item.KickoffTime != nil {
			utc := item.KickoffTime.UTC()
			fx.KickoffTime = &utc
		}
		out = append(out, fx)
	}
	return out
}

// mapLiveStats keeps only players who actually took the pitch. Zero-minute
// rows carry no signal and would bloat every downstream scope.
func mapLiveStats(gameweekID int, resp liveResponse) []usecase.ExternalPlayerGameweekStat {
	out := make([]usecase.ExternalPlayerGameweekStat, 0, len(resp.Elements))
	for _, item := range resp.Elements {
		if item.Stats.Minutes <= 0 {
			continue
		}

		stat := usecase.ExternalPlayerGameweekStat{
			PlayerID:        item.ID,
			GameweekID:      gameweekID,
			Minutes:         item.Stats.Minutes,
			GoalsScored:     item.Stats.GoalsScored,
			Assists:         item.Stats.Assists,
			CleanSheets:     item.Stats.CleanSheets,
			GoalsConceded:   item.Stats.GoalsConceded,
			OwnGoals:        item.Stats.OwnGoals,
			PenaltiesSaved:  item.Stats.PenaltiesSaved,
			PenaltiesMissed: item.Stats.PenaltiesMissed,
			YellowCards:     item.Stats.YellowCards,
			RedCards:        item.Stats.RedCards,
			Saves:           item.Stats.Saves,
			Bonus:           item.Stats.Bonus,
			BPS:             item.Stats.BPS,
			Influence:       float64(item.Stats.Influence),
			Creativity:      float64(item.Stats.Creativity),
			Threat:          float64(item.Stats.Threat),
			ICTIndex:        float64(item.Stats.ICTIndex),
			ExpectedGoals:   float64(item.Stats.ExpectedGoals),
			ExpectedAssists: float64(item.Stats.ExpectedAssists),
			TotalPoints:     item.Stats.TotalPoints,
		}
		if len(item.Explain) > 0 {
			stat.FixtureID = item.Explain[0].Fixture
		}
		out = append(out, stat)
	}
	return out
}

func mapEntry(resp entryResponse) usecase.ExternalEntry {
	playerName := strings.TrimSpace(resp.PlayerFirstName + " " + resp.PlayerLastName)
	return usecase.ExternalEntry{
		ID:            resp.ID,
		Name:          resp.Name,
		PlayerName:    playerName,
		OverallPoints: resp.SummaryOverallPoint,
		OverallRank:   resp.SummaryOverallRank,
	}
}

func mapEntryHistory(resp entryHistoryResponse) usecase.ExternalEntryHistory {
	out := usecase.ExternalEntryHistory{
		Current: make([]usecase.ExternalEntryGameweekHistory, 0, len(resp.Current)),
		Chips:   make([]usecase.ExternalEntryChip, 0, len(resp.Chips)),
	}
	for _, item := range resp.Current {
		out.Current = append(out.Current, usecase.ExternalEntryGameweekHistory{
			GameweekID:    item.Event,
			Points:        item.Points,
			TotalPoints:   item.TotalPoints,
			OverallRank:   item.OverallRank,
			GameweekRank:  item.Rank,
			TransfersMade: item.EventTransfers,
			TransfersCost: item.TransfersCost,
			Bank:          item.Bank,
			TeamValue:     item.Value,
		})
	}
	for _, item := range resp.Chips {
		out.Chips = append(out.Chips, usecase.ExternalEntryChip{
			Name:       item.Name,
			GameweekID: item.Event,
			PlayedAt:   item.Time.UTC(),
		})
	}
	return out
}

func mapEntryTransfers(items []entryTransferItem) []usecase.ExternalEntryTransfer {
	out := make([]usecase.ExternalEntryTransfer, 0, len(items))
	for _, item := range items {
		out = append(out, usecase.ExternalEntryTransfer{
			GameweekID:    item.Event,
			PlayerInID:    item.ElementIn,
			PlayerInCost:  item.ElementInC,
			PlayerOutID:   item.ElementOut,
			PlayerOutCost: item.ElementOutC,
			OccurredAt:    item.Time.UTC(),
		})
	}
	return out
}

func mapEntryPicks(gameweekID int, resp entryPicksResponse) usecase.ExternalEntryPicks {
	out := usecase.ExternalEntryPicks{
		GameweekID: gameweekID,
		ActiveChip: resp.ActiveChip,
		Picks:      make([]usecase.ExternalEntryPick, 0, len(resp.Picks)),
	}
	if resp.EntryState != nil && resp.EntryState.Event > 0 {
		out.GameweekID = resp.EntryState.Event
	}
	for _, item := range resp.Picks {
		out.Picks = append(out.Picks, usecase.ExternalEntryPick{
			PlayerID:      item.Element,
			Position:      item.Position,
			Multiplier:    item.Multiplier,
			IsCaptain:     item.IsCaptain,
			IsViceCaptain: item.IsViceCaptain,
		})
	}
	return out
}

func cloneIntPtr(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
