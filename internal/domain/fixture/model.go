package fixture

import (
	"fmt"
	"time"
)

// Fixture is a single scheduled match between two teams within a gameweek.
// Scores stay nil until the match has been played.
type Fixture struct {
	ID             int
	GameweekID     int
	HomeTeamID     int
	AwayTeamID     int
	HomeScore      *int
	AwayScore      *int
	Finished       bool
	KickoffTime    *time.Time
	DifficultyHome int
	DifficultyAway int
	UpdatedAt      time.Time
}

func (f Fixture) Validate() error {
	if f.ID <= 0 {
		return fmt.Errorf("fixture id must be greater than zero")
	}
	if f.HomeTeamID <= 0 || f.AwayTeamID <= 0 {
		return fmt.Errorf("fixture team ids must be greater than zero")
	}
	return nil
}

// HasScore reports whether both sides have a recorded score.
func (f Fixture) HasScore() bool {
	return f.HomeScore != nil && f.AwayScore != nil
}

// ResultChecksum is a compact per-fixture summary used by change detection
// to spot score changes without comparing full rows.
func (f Fixture) ResultChecksum() string {
	home := "-"
	away := "-"
	if f.HomeScore != nil {
		home = fmt.Sprintf("%d", *f.HomeScore)
	}
	if f.AwayScore != nil {
		away = fmt.Sprintf("%d", *f.AwayScore)
	}
	finished := "0"
	if f.Finished {
		finished = "1"
	}
	return home + ":" + away + ":" + finished
}
