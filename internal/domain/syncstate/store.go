package syncstate

import "context"

// Store persists the fingerprint between process runs. Load on a missing
// or corrupt state must return an empty fingerprint rather than fail, so
// the first cycle after corruption performs a full refresh.
type Store interface {
	Load(ctx context.Context) (Fingerprint, error)
	Save(ctx context.Context, fp Fingerprint) error
}
