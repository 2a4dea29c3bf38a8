package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
	ErrUnavailable  = errors.New("ranking temporarily unavailable")
	ErrConflict     = errors.New("conflict")
)

// opError attaches the failing handler operation to an error.
type opError struct {
	op  string
	err error
}

func (e *opError) Error() string { return e.op + ": " + e.err.Error() }

func (e *opError) Unwrap() error { return e.err }

// NewKind returns an error of the given kind raised by op.
func NewKind(op string, kind error) error {
	return &opError{op: op, err: kind}
}

// WrapKind returns an error of the given kind raised by op, caused by err.
func WrapKind(op string, kind, err error) error {
	return &opError{op: op, err: fmt.Errorf("%w: %w", kind, err)}
}

// Wrap attaches op to an upstream error.
func Wrap(op string, err error) error {
	return &opError{op: op, err: err}
}
