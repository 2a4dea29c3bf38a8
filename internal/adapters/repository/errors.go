package repository

import "errors"

// Sentinel kinds for rating store errors.
var (
	ErrNotFound         = errors.New("item not found")
	ErrDuplicateID      = errors.New("duplicate item id")
	ErrDuplicateLocator = errors.New("duplicate item locator")
	ErrInvalidLimit     = errors.New("invalid standings limit")
)
