package teamstats

import "time"

// Result is the match outcome from the team's point of view.
type Result string

const (
	ResultWin  Result = "W"
	ResultDraw Result = "D"
	ResultLoss Result = "L"
)

// GameweekStat is the derived team performance line for one gameweek,
// keyed by (team, gameweek). Rows are owned entirely by the aggregation
// engine: recomputation replaces the full scope, nothing updates them in
// place. Outcome fields come from the fixture score, never from player
// rows, so a missing bonus point cannot flip a clean sheet.
type GameweekStat struct {
	TeamID             int
	GameweekID         int
	FixtureID          int
	OpponentTeamID     int
	IsHome             bool
	Difficulty         int
	Result             Result
	CleanSheet         bool
	GoalsFor           int
	GoalsAgainst       int
	PlayersUsed        int
	Goals              int
	Assists            int
	YellowCards        int
	RedCards           int
	Saves              int
	Bonus              int
	GoalsConceded      int
	OwnGoals           int
	PenaltiesSaved     int
	PenaltiesMissed    int
	ExpectedGoals      float64
	ExpectedAssists    float64
	InfluenceAvg       float64
	CreativityAvg      float64
	ThreatAvg          float64
	ICTIndexSum        float64
	ICTIndexAvg        float64
	TotalFantasyPoints int
	AvgFantasyPoints   float64
	Form3GW            float64
	Form6GW            float64
	ComputedAt         time.Time
}
