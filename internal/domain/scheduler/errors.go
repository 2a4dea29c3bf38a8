package scheduler

import "errors"

// Sentinel kinds for scheduling errors.
var (
	ErrInsufficientItems = errors.New("insufficient items: at least 2 are required")
	ErrDuplicateItem     = errors.New("duplicate item id")
)
