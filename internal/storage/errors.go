package storage

import "errors"

// Forecast runs and horizon points are append-only: a run_id is derived from
// its inputs, so re-inserting the same inputs reports ErrDuplicateKey.
var (
	// ErrNotFound is returned when a requested run or point does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a run_id (or a run/segment/horizon
	// point key) is already stored.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput is returned for nil records or records missing their key.
	ErrInvalidInput = errors.New("invalid input")
)
