package gameweek

import "context"

type Repository interface {
	List(ctx context.Context) ([]Gameweek, error)
	Upsert(ctx context.Context, items []Gameweek) error
}
