package fixture

import "context"

type Repository interface {
	List(ctx context.Context) ([]Fixture, error)
	ListByGameweek(ctx context.Context, gameweekID int) ([]Fixture, error)
	Upsert(ctx context.Context, items []Fixture) error
}
