package entry

import "context"

type Repository interface {
	GetByID(ctx context.Context, entryID int64) (Entry, bool, error)
	Upsert(ctx context.Context, item Entry) error
	UpdateSummary(ctx context.Context, entryID int64, summary Summary) error

	ListHistory(ctx context.Context, entryID int64) ([]GameweekHistory, error)
	UpsertHistory(ctx context.Context, items []GameweekHistory) error

	UpsertTransfers(ctx context.Context, items []Transfer) error
}
