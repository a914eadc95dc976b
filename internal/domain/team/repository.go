package team

import "context"

type Repository interface {
	List(ctx context.Context) ([]Team, error)
	Upsert(ctx context.Context, items []Team) error
}
