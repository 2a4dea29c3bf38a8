package persistence

import (
	"errors"
	"fmt"
)

// Sentinel kinds for persistence errors.
var (
	ErrInvalidLocator        = errors.New("invalid locator")
	ErrMalformedLedgerRecord = errors.New("malformed ledger record")
	ErrMissingArtifact       = errors.New("missing artifact for ledger record")
	ErrDuplicateArtifact     = errors.New("more than one artifact for item")
	ErrPersistence           = errors.New("persistence failure")
)

// LedgerError reports the ledger line that failed to parse.
type LedgerError struct {
	Line int
	Text string
	Err  error
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("ledger line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *LedgerError) Unwrap() error { return e.Err }
