package player

import "context"

type Repository interface {
	List(ctx context.Context) ([]Player, error)
	Upsert(ctx context.Context, items []Player) error
}
