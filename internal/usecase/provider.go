package usecase

import (
	"context"
	"time"
)

// SnapshotProvider fetches upstream snapshots. Implementations must be
// read-only against the remote API and safe for concurrent use.
type SnapshotProvider interface {
	FetchBootstrap(ctx context.Context) (ExternalBootstrap, error)
	FetchFixtures(ctx context.Context) ([]ExternalFixture, error)
	FetchLiveStats(ctx context.Context, gameweekID int) ([]ExternalPlayerGameweekStat, error)
	FetchEntry(ctx context.Context, entryID int64) (ExternalEntry, error)
	FetchEntryHistory(ctx context.Context, entryID int64) (ExternalEntryHistory, error)
	FetchEntryTransfers(ctx context.Context, entryID int64) ([]ExternalEntryTransfer, error)
	FetchEntryPicks(ctx context.Context, entryID int64, gameweekID int) (ExternalEntryPicks, error)
}

// ExternalBootstrap is the decoded bootstrap snapshot: the reference data
// every other scope depends on.
type ExternalBootstrap struct {
	Teams     []ExternalTeam
	Players   []ExternalPlayer
	Gameweeks []ExternalGameweek
}

type ExternalTeam struct {
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
}

type ExternalPlayer struct {
	ID                       int
	TeamID                   int
	FirstName                string
	SecondName               string
	WebName                  string
	ElementType              int
	NowCost                  int
	TotalPoints              int
	Form                     float64
	PointsPerGame            float64
	Status                   string
	News                     string
	ChanceOfPlayingNextRound *int
}

type ExternalGameweek struct {
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
}

type ExternalFixture struct {
	ID                  int
	GameweekID          *int
	HomeTeamID          int
	AwayTeamID          int
	KickoffTime         *time.Time
	Started             bool
	Finished            bool
	FinishedProvisional bool
	HomeScore           *int
	AwayScore           *int
	DifficultyHome      int
	DifficultyAway      int
	Minutes             int
}

type ExternalPlayerGameweekStat struct {
	PlayerID        int
	GameweekID      int
	FixtureID       int
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
}

type ExternalEntry struct {
	ID            int64
	Name          string
	PlayerName    string
	OverallPoints int
	OverallRank   int
}

type ExternalEntryHistory struct {
	Current []ExternalEntryGameweekHistory
	Chips   []ExternalEntryChip
}

type ExternalEntryGameweekHistory struct {
	GameweekID    int
	Points        int
	TotalPoints   int
	OverallRank   int
	GameweekRank  int
	TransfersMade int
	TransfersCost int
	Bank          int
	TeamValue     int
}

type ExternalEntryChip struct {
	Name       string
	GameweekID int
	PlayedAt   time.Time
}

type ExternalEntryTransfer struct {
	GameweekID    int
	PlayerInID    int
	PlayerInCost  int
	PlayerOutID   int
	PlayerOutCost int
	OccurredAt    time.Time
}

type ExternalEntryPicks struct {
	GameweekID int
	ActiveChip string
	Picks      []ExternalEntryPick
}

type ExternalEntryPick struct {
	PlayerID      int
	Position      int
	Multiplier    int
	IsCaptain     bool
	IsViceCaptain bool
}
