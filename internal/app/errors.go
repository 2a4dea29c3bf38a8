package service

import "errors"

// Sentinel kinds for session errors.
var (
	ErrNotStarted     = errors.New("session not started")
	ErrNoPair         = errors.New("no pair selected")
	ErrInvalidWinner  = errors.New("winner must be 0 or 1")
	ErrUnknownCommand = errors.New("unknown command kind")
	ErrStalePair      = errors.New("pair is no longer current")
	ErrPending        = errors.New("command still in flight")
	ErrClosed         = errors.New("session closed")
)
