package team

import (
	"fmt"
	"time"
)

// Team is a Premier League club as exposed by the upstream bootstrap payload.
// Rows are keyed by the upstream numeric id and change rarely within a season.
type Team struct {
	ID                  int
	Name                string
	ShortName           string
	Code                int
	Strength            int
	StrengthOverallHome int
	StrengthOverallAway int
	StrengthAttackHome  int
	StrengthAttackAway  int
	StrengthDefenceHome int
	StrengthDefenceAway int
	UpdatedAt           time.Time
}

func (t Team) Validate() error {
	if t.ID <= 0 {
		return fmt.Errorf("team id must be greater than zero")
	}
	if t.Name == "" {
		return fmt.Errorf("team name is required")
	}
	return nil
}
