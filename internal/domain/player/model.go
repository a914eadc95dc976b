package player

import (
	"fmt"
	"time"
)

// Position represents the four FPL player roles.
type Position string

const (
	PositionGoalkeeper Position = "GK"
	PositionDefender   Position = "DEF"
	PositionMidfielder Position = "MID"
	PositionForward    Position = "FWD"
)

var AllPositions = map[Position]struct{}{
	PositionGoalkeeper: {},
	PositionDefender:   {},
	PositionMidfielder: {},
	PositionForward:    {},
}

// Status mirrors the upstream single-letter availability flag.
type Status string

const (
	StatusAvailable    Status = "a"
	StatusDoubtful     Status = "d"
	StatusInjured      Status = "i"
	StatusUnavailable  Status = "u"
	StatusSuspended    Status = "s"
	StatusNotAvailable Status = "n"
)

// PositionFromElementType maps the upstream element_type (1..4) to a Position.
func PositionFromElementType(elementType int) Position {
	switch elementType {
	case 1:
		return PositionGoalkeeper
	case 2:
		return PositionDefender
	case 3:
		return PositionMidfielder
	case 4:
		return PositionForward
	default:
		return ""
	}
}

// Player is a selectable athlete. NowCost is in tenths of a million,
// exactly as the upstream API reports it.
type Player struct {
	ID                       int
	TeamID                   int
	FirstName                string
	SecondName               string
	WebName                  string
	Position                 Position
	NowCost                  int
	TotalPoints              int
	Form                     float64
	PointsPerGame            float64
	Status                   Status
	News                     string
	ChanceOfPlayingNextRound *int
	UpdatedAt                time.Time
}

func (p Player) Validate() error {
	if p.ID <= 0 {
		return fmt.Errorf("player id must be greater than zero")
	}
	if p.TeamID <= 0 {
		return fmt.Errorf("player team id must be greater than zero")
	}
	if _, ok := AllPositions[p.Position]; !ok {
		return fmt.Errorf("invalid player position: %s", p.Position)
	}
	return nil
}
