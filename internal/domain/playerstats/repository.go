package playerstats

import "context"

type Repository interface {
	ListByGameweeks(ctx context.Context, gameweekIDs []int) ([]GameweekStat, error)
	ListGameweekIDs(ctx context.Context) ([]int, error)
	Upsert(ctx context.Context, items []GameweekStat) error
}
