package entry

import (
	"fmt"
	"time"
)

// Entry is a tracked FPL manager account.
//
// RankDelta is overall_rank - previous_overall_rank: a negative value means
// the rank number went down, i.e. the manager improved. The sign convention
// is part of the stored contract and must not be flipped.
type Entry struct {
	ID                  int64
	Name                string
	PlayerName          string
	OverallPoints       int
	OverallRank         int
	PreviousOverallRank *int
	RankDelta           int
	Squad               []int
	BestRank            *int
	BestRankGameweek    *int
	WorstRank           *int
	WorstRankGameweek   *int
	TotalTransfers      int
	TotalTransferCost   int
	ChipsUsed           []string
	UpdatedAt           time.Time
}

func (e Entry) Validate() error {
	if e.ID <= 0 {
		return fmt.Errorf("entry id must be greater than zero")
	}
	return nil
}

// GameweekHistory is one immutable-after-write record per (entry, gameweek).
type GameweekHistory struct {
	EntryID       int64
	GameweekID    int
	Points        int
	TotalPoints   int
	OverallRank   int
	GameweekRank  int
	TransfersMade int
	TransfersCost int
	Bank          int
	TeamValue     int
	Chip          string
	Squad         []int
	UpdatedAt     time.Time
}

// Transfer is a single squad change event, deduplicated on
// (entry, gameweek, player in, player out).
type Transfer struct {
	EntryID       int64
	GameweekID    int
	PlayerInID    int
	PlayerInCost  int
	PlayerOutID   int
	PlayerOutCost int
	OccurredAt    time.Time
}

// Summary is the rolled-up view recomputed from an entry's history rows.
type Summary struct {
	BestRank          *int
	BestRankGameweek  *int
	WorstRank         *int
	WorstRankGameweek *int
	TotalTransfers    int
	TotalTransferCost int
	ChipsUsed         []string
}
