package gameweek

import (
	"fmt"
	"time"
)

// Gameweek is one scheduling round of the season. At most one row is
// current and at most one is next at any time; Finished is monotonic and
// never reverts to false once set, which change detection relies on.
type Gameweek struct {
	ID                int
	Name              string
	DeadlineTime      time.Time
	IsCurrent         bool
	IsNext            bool
	IsPrevious        bool
	Finished          bool
	DataChecked       bool
	HighestScore      *int
	AverageEntryScore *int
	UpdatedAt         time.Time
}

func (g Gameweek) Validate() error {
	if g.ID <= 0 {
		return fmt.Errorf("gameweek id must be greater than zero")
	}
	return nil
}

// FinishedIDs returns the ids of finished gameweeks in ascending order.
func FinishedIDs(items []Gameweek) []int {
	out := make([]int, 0, len(items))
	for _, item := range items {
		if item.Finished {
			out = append(out, item.ID)
		}
	}
	return out
}
