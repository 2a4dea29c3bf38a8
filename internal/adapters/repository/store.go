// Package repository holds the authoritative in-memory rating state.
package repository

import (
	"context"

	"github.com/okian/elorank/internal/domain/model"
	"github.com/okian/elorank/internal/domain/types"
)

// Store provides read/write access to the rating state.
type Store interface {
	// Insert adds a new item. Returns ErrDuplicateID or ErrDuplicateLocator on conflict.
	Insert(ctx context.Context, item model.Item) error

	// Get returns the item with the given id or ErrNotFound.
	Get(ctx context.Context, id string) (model.Item, error)

	// ByLocator returns the item whose current artifact name is locator.
	ByLocator(ctx context.Context, locator string) (model.Item, error)

	// Commit replaces existing items as one step. Either every item is
	// replaced or, when any id is unknown, none is.
	Commit(ctx context.Context, items ...model.Item) error

	// Items returns every item in insertion order.
	Items(ctx context.Context) []model.Item

	// TopN returns the top-N entries ordered by rating desc.
	TopN(ctx context.Context, n int) ([]types.Entry, error)

	// Rank returns the standings entry for one item.
	Rank(ctx context.Context, id string) (types.Entry, error)

	// Count returns the number of items.
	Count(ctx context.Context) int
}
