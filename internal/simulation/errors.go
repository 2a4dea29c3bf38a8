package simulation

import "errors"

// Sentinel kinds for simulation errors.
var (
	ErrInvalidConfig = errors.New("invalid simulation config")
	ErrVoteRejected  = errors.New("vote rejected")
	ErrUnknownItem   = errors.New("item without hidden strength")
)
