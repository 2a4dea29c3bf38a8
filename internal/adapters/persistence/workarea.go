package persistence

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"path/filepath"
	"strings"

	"github.com/okian/elorank/internal/domain/model"
	"github.com/okian/elorank/pkg/logger"
)

const tempSuffix = ".tmp"

// Change is one item before and after a vote.
type Change struct {
	Before model.Item
	After  model.Item
}

// Delta is everything one mutation has to make durable: the changed items
// and the complete post-mutation item list in ledger order.
type Delta struct {
	Changes []Change
	Items   []model.Item
}

// WorkArea owns one working directory: an artifact per item, the ledger and,
// optionally, the exact-rating database.
type WorkArea struct {
	dir           string
	ledgerName    string
	ratingsDBName string
	exactEnabled  bool
	exact         *ExactStore
	fs            fileSystem
	logger        logger.Logger
}

// Open prepares the working area at dir, which must already exist.
func Open(ctx context.Context, dir string, opts ...Option) (*WorkArea, error) {
	w := &WorkArea{
		dir:           dir,
		ledgerName:    DefaultLedgerName,
		ratingsDBName: DefaultRatingsDBName,
		fs:            osFS{},
		logger:        logger.Get().Named("persistence"),
	}
	for _, opt := range opts {
		opt(w)
	}

	info, err := w.fs.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("working area %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("working area %s is not a directory", dir)
	}

	if w.exactEnabled {
		store, err := OpenExactStore(ctx, filepath.Join(dir, w.ratingsDBName))
		if err != nil {
			return nil, err
		}
		w.exact = store
	}
	return w, nil
}

// Dir returns the working directory.
func (w *WorkArea) Dir() string { return w.dir }

// Path returns the full path of an artifact.
func (w *WorkArea) Path(locator string) string { return filepath.Join(w.dir, locator) }

// LedgerPath returns the full path of the ledger file.
func (w *WorkArea) LedgerPath() string { return filepath.Join(w.dir, w.ledgerName) }

// HasLedger reports whether a ledger exists, i.e. whether this is a resume.
func (w *WorkArea) HasLedger() (bool, error) {
	_, err := w.fs.Stat(w.LedgerPath())
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Load rebuilds the items recorded in the ledger. Each record must have exactly
// one artifact; its locator supplies the rating. With exact ratings on, the
// stored value replaces the locator integer when the two agree.
func (w *WorkArea) Load(ctx context.Context) ([]model.Item, error) {
	data, err := w.fs.ReadFile(w.LedgerPath())
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	records, err := DecodeLedger(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	artifacts, err := w.scanArtifacts(ctx)
	if err != nil {
		return nil, err
	}

	var exact map[string]ExactRecord
	if w.exact != nil {
		if exact, err = w.exact.Records(ctx); err != nil {
			return nil, err
		}
	}

	items := make([]model.Item, 0, len(records))
	for _, rec := range records {
		art, ok := artifacts[rec.ID]
		if !ok {
			return nil, fmt.Errorf("%w: id %s (%s)", ErrMissingArtifact, rec.ID, rec.Reference)
		}
		rating := float64(art.rating)
		// A record from an earlier write can still truncate to the same
		// locator, so the matchup count must agree with the ledger too.
		if x, ok := exact[rec.ID]; ok {
			if int64(math.Trunc(x.Rating)) == art.rating && x.Matchups == rec.Matchups {
				rating = x.Rating
			} else {
				w.logger.Warn(ctx, "exact rating disagrees with working area, using artifact",
					logger.String("id", rec.ID),
					logger.Float64("exact", x.Rating),
					logger.Int("exactMatchups", x.Matchups),
					logger.Int("artifact", int(art.rating)),
					logger.Int("matchups", rec.Matchups))
			}
		}
		items = append(items, model.Item{
			ID:        rec.ID,
			Reference: rec.Reference,
			Rating:    rating,
			Matchups:  rec.Matchups,
			Locator:   art.locator,
		})
	}

	w.logger.Info(ctx, "working area loaded",
		logger.String("dir", w.dir),
		logger.Int("items", len(items)),
		logger.Bool("exact", w.exact != nil))
	return items, nil
}

type artifact struct {
	locator string
	rating  int64
}

func (w *WorkArea) scanArtifacts(ctx context.Context) (map[string]artifact, error) {
	entries, err := w.fs.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("list working area: %w", err)
	}

	out := make(map[string]artifact, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || w.reserved(name) {
			continue
		}
		rating, id, err := DecodeLocator(name)
		if err != nil {
			w.logger.Debug(ctx, "ignoring file in working area", logger.String("file", name))
			continue
		}
		if prev, dup := out[id]; dup {
			return nil, fmt.Errorf("%w: %s and %s", ErrDuplicateArtifact, prev.locator, name)
		}
		out[id] = artifact{locator: name, rating: rating}
	}
	return out, nil
}

// reserved reports whether name belongs to the working area's own files.
func (w *WorkArea) reserved(name string) bool {
	if name == w.ledgerName || name == w.ledgerName+tempSuffix {
		return true
	}
	return name == w.ratingsDBName || strings.HasPrefix(name, w.ratingsDBName+"-")
}

// Initialize records a freshly bootstrapped item set whose artifacts are
// already in place.
func (w *WorkArea) Initialize(ctx context.Context, items []model.Item) error {
	changes := make([]Change, len(items))
	for i, it := range items {
		changes[i] = Change{Before: it, After: it}
	}
	return w.Apply(ctx, Delta{Changes: changes, Items: items})
}

// Apply makes a delta durable: it stages the exact ratings, renames changed
// artifacts, rewrites the ledger and commits. On any failure every completed
// step is undone and the returned error wraps ErrPersistence.
func (w *WorkArea) Apply(ctx context.Context, d Delta) (err error) {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	records := make([]Record, len(d.Items))
	for i, it := range d.Items {
		records[i] = Record{Reference: it.Reference, ID: it.ID, Matchups: it.Matchups}
	}
	ledger, err := EncodeLedger(records)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	prevLedger, hadLedger, err := w.readLedger()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	var tx *sql.Tx
	if w.exact != nil {
		after := make([]model.Item, len(d.Changes))
		for i, c := range d.Changes {
			after[i] = c.After
		}
		if tx, err = w.exact.begin(ctx, after); err != nil {
			return fmt.Errorf("%w: %w", ErrPersistence, err)
		}
	}

	var renamed []Change
	ledgerWritten := false
	defer func() {
		if err == nil {
			return
		}
		if ledgerWritten {
			if rerr := w.restoreLedger(prevLedger, hadLedger); rerr != nil {
				w.logger.Error(ctx, "failed to restore ledger", logger.Error(rerr))
			}
		}
		for i := len(renamed) - 1; i >= 0; i-- {
			c := renamed[i]
			if rerr := w.fs.Rename(w.Path(c.After.Locator), w.Path(c.Before.Locator)); rerr != nil {
				w.logger.Error(ctx, "failed to undo rename",
					logger.String("from", c.After.Locator),
					logger.String("to", c.Before.Locator),
					logger.Error(rerr))
			}
		}
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	for _, c := range d.Changes {
		if c.Before.Locator == c.After.Locator {
			continue
		}
		if err = w.rename(c.Before.Locator, c.After.Locator); err != nil {
			return fmt.Errorf("%w: rename %s -> %s: %w", ErrPersistence, c.Before.Locator, c.After.Locator, err)
		}
		renamed = append(renamed, c)
	}

	if err = w.writeLedger(ledger); err != nil {
		return fmt.Errorf("%w: write ledger: %w", ErrPersistence, err)
	}
	ledgerWritten = true

	if tx != nil {
		if err = tx.Commit(); err != nil {
			return fmt.Errorf("%w: commit exact ratings: %w", ErrPersistence, err)
		}
	}

	w.logger.Debug(ctx, "delta applied",
		logger.Int("changes", len(d.Changes)),
		logger.Int("renames", len(renamed)))
	return nil
}

// rename moves an artifact, refusing to overwrite an existing file so that
// every id keeps exactly one live locator.
func (w *WorkArea) rename(from, to string) error {
	if _, err := w.fs.Stat(w.Path(to)); err == nil {
		return fmt.Errorf("target %s already exists", to)
	}
	return w.fs.Rename(w.Path(from), w.Path(to))
}

func (w *WorkArea) readLedger() ([]byte, bool, error) {
	data, err := w.fs.ReadFile(w.LedgerPath())
	if err == nil {
		return data, true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	return nil, false, fmt.Errorf("read ledger: %w", err)
}

// writeLedger replaces the ledger through a temp file and rename.
func (w *WorkArea) writeLedger(data []byte) error {
	tmp := w.LedgerPath() + tempSuffix
	if err := w.fs.WriteFile(tmp, data, 0o644); err != nil { //nolint:gosec // ledger is not secret
		return err
	}
	if err := w.fs.Rename(tmp, w.LedgerPath()); err != nil {
		_ = w.fs.Remove(tmp)
		return err
	}
	return nil
}

func (w *WorkArea) restoreLedger(prev []byte, existed bool) error {
	if existed {
		return w.writeLedger(prev)
	}
	if err := w.fs.Remove(w.LedgerPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Discard removes the artifacts of items that never made it into a ledger.
// Missing artifacts are skipped.
func (w *WorkArea) Discard(ctx context.Context, items []model.Item) error {
	var errs []error
	for _, it := range items {
		if err := w.fs.Remove(w.Path(it.Locator)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: discard artifacts: %w", ErrPersistence, errors.Join(errs...))
	}
	w.logger.Debug(ctx, "artifacts discarded", logger.Int("count", len(items)))
	return nil
}

// Close releases the exact-rating database.
func (w *WorkArea) Close() error {
	if w.exact != nil {
		return w.exact.Close()
	}
	return nil
}
