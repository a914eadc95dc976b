package playerstats

import (
	"fmt"
	"time"
)

// GameweekStat is one player's performance line for one gameweek, keyed by
// (player, gameweek). FixtureID is nil when no unique fixture could be
// resolved for the player's team in that gameweek.
type GameweekStat struct {
	PlayerID        int
	GameweekID      int
	FixtureID       *int
	Minutes         int
	GoalsScored     int
	Assists         int
	CleanSheets     int
	GoalsConceded   int
	OwnGoals        int
	PenaltiesSaved  int
	PenaltiesMissed int
	YellowCards     int
	RedCards        int
	Saves           int
	Bonus           int
	BPS             int
	Influence       float64
	Creativity      float64
	Threat          float64
	ICTIndex        float64
	ExpectedGoals   float64
	ExpectedAssists float64
	TotalPoints     int
	UpdatedAt       time.Time
}

func (s GameweekStat) Validate() error {
	if s.PlayerID <= 0 {
		return fmt.Errorf("player id must be greater than zero")
	}
	if s.GameweekID <= 0 {
		return fmt.Errorf("gameweek id must be greater than zero")
	}
	if s.Minutes < 0 {
		return fmt.Errorf("minutes cannot be negative")
	}
	return nil
}
