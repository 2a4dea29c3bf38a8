package persistence

import "github.com/okian/elorank/pkg/logger"

// Default working area configuration.
const (
	DefaultLedgerName    = "mappings.txt"
	DefaultRatingsDBName = "ratings.db"
)

// Option applies a configuration option to the WorkArea.
type Option func(*WorkArea)

// WithLedgerName sets the ledger file name inside the working area.
func WithLedgerName(name string) Option {
	return func(w *WorkArea) {
		if name != "" {
			w.ledgerName = name
		}
	}
}

// WithExactRatings enables the SQLite exact-rating record stored under dbName.
// An empty dbName uses DefaultRatingsDBName.
func WithExactRatings(enabled bool, dbName string) Option {
	return func(w *WorkArea) {
		w.exactEnabled = enabled
		if dbName != "" {
			w.ratingsDBName = dbName
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(w *WorkArea) {
		if l != nil {
			w.logger = l
		}
	}
}
