package terminal

import "errors"

// ErrNoInput is returned when the terminal has no input stream.
var ErrNoInput = errors.New("terminal input not configured")
