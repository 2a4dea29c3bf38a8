package source

import "errors"

// Sentinel kinds for source errors.
var (
	ErrInvalidSource = errors.New("invalid source directory")
)
