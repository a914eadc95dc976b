package teamstats

import "context"

type Repository interface {
	ListByTeam(ctx context.Context, teamID int) ([]GameweekStat, error)
	ListByGameweeks(ctx context.Context, gameweekIDs []int) ([]GameweekStat, error)
	// ReplaceByGameweek clears every row for the gameweek and bulk-inserts
	// the replacement set in one transaction.
	ReplaceByGameweek(ctx context.Context, gameweekID int, rows []GameweekStat) error
}
