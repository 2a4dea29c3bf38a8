package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/elorank/internal/domain/model"
)

// ExactStore keeps untruncated ratings in a SQLite file inside the working area.
type ExactStore struct {
	db   *sql.DB
	path string
}

// OpenExactStore opens (or creates) the ratings database at path.
func OpenExactStore(ctx context.Context, path string) (*ExactStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ratings database: %w", err)
	}
	// one writer; sqlite serializes anyway
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to ratings database: %w", err)
	}

	s := &ExactStore{db: db, path: path}
	if err := s.initialize(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *ExactStore) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS ratings (
		id TEXT PRIMARY KEY,
		rating REAL NOT NULL,
		matchups INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// ExactRecord is the stored state of one item. Matchups ties the rating to
// the ledger write it was staged with.
type ExactRecord struct {
	Rating   float64
	Matchups int
}

// Records returns the stored exact record per id.
func (s *ExactStore) Records(ctx context.Context) (map[string]ExactRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, rating, matchups FROM ratings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ratings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]ExactRecord)
	for rows.Next() {
		var id string
		var rec ExactRecord
		if err := rows.Scan(&id, &rec.Rating, &rec.Matchups); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		out[id] = rec
	}
	return out, rows.Err()
}

// begin opens a transaction with the given items upserted. The caller commits
// or rolls back.
func (s *ExactStore) begin(ctx context.Context, items []model.Item) (*sql.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := `
	INSERT INTO ratings (id, rating, matchups, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		rating = excluded.rating,
		matchups = excluded.matchups,
		updated_at = excluded.updated_at
	`
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, it := range items {
		if _, err := tx.ExecContext(ctx, query, it.ID, it.Rating, it.Matchups, now); err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("failed to stage rating for %s: %w", it.ID, err)
		}
	}
	return tx, nil
}

// Path returns the database file path.
func (s *ExactStore) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *ExactStore) Close() error {
	return s.db.Close()
}
