package usecase

import "errors"

var (
	ErrInvalidInput            = errors.New("invalid input")
	ErrNotFound                = errors.New("resource not found")
	ErrFetchFailed             = errors.New("snapshot fetch failed")
	ErrWriteConflict           = errors.New("write conflict")
	ErrStateCorrupt            = errors.New("sync state corrupt")
	ErrAggregationInputMissing = errors.New("aggregation input missing")
	ErrDependencyUnavailable   = errors.New("dependency unavailable")
)
