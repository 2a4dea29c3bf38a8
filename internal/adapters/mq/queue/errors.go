package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrQueueClosed = errors.New("command queue closed")
	ErrQueueFull   = errors.New("command queue full")
)
