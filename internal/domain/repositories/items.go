package repositories

import (
	"context"

	"promptvault/internal/domain/models/tree"
)

// Draft holds the caller-supplied fields for creating an item. The id,
// placement and lastModified timestamp are assigned by the store.
type Draft struct {
	Name     string
	Kind     tree.ItemKind
	Content  string
	Metadata map[string]any
}

// Patch is a partial update. Nil pointer fields are left untouched.
// Metadata, when non-nil, is shallow-merged key-by-key into the stored
// map rather than replacing it; the store forces lastModified to "now"
// regardless of any caller-supplied value.
type Patch struct {
	Name     *string
	Content  *string
	Versions *[]tree.Version
	Metadata map[string]any
}

// ItemStore is the storage backend contract: the full operation set of
// the prompt forest, independent of persistence medium. Implementations
// must be safe for concurrent use; every operation is a discrete unit of
// work over the whole forest and never observes another operation's
// partial mutation. Read results are deep copies, so mutating them does not
// affect the store.
type ItemStore interface {
	// ListItems returns a deep copy of the full forest. Always succeeds,
	// possibly empty.
	ListItems(ctx context.Context) ([]*tree.Item, error)

	// GetItem returns a deep copy of the item, or (nil, nil) when the id
	// does not resolve. Absence is a valid empty result, not a failure.
	GetItem(ctx context.Context, id string) (*tree.Item, error)

	// AddItem creates an item under parentID (nil = root) and returns the
	// fully materialized item. Fails with domain.ErrParentNotFound or
	// domain.ErrNotAFolder.
	AddItem(ctx context.Context, parentID *string, draft Draft) (*tree.Item, error)

	// UpdateItem applies a partial update and returns the updated item.
	// Fails with domain.ErrItemNotFound.
	UpdateItem(ctx context.Context, id string, patch Patch) (*tree.Item, error)

	// DeleteItem removes the item and its entire subtree. Unknown ids are
	// a no-op, never an error.
	DeleteItem(ctx context.Context, id string) error

	// MoveItem re-parents an item (nil = append at root) and returns it.
	// Fails with domain.ErrItemNotFound, domain.ErrTargetNotFolder or
	// domain.ErrCyclicMove; a failed move leaves the forest unchanged.
	MoveItem(ctx context.Context, itemID string, newParentID *string) (*tree.Item, error)

	// SearchItems runs a recursive filtered full-text search. A trimmed-
	// empty query yields an empty list without traversal. Never fails on
	// unresolvable structure.
	SearchItems(ctx context.Context, query string, filters *tree.SearchFilters) ([]tree.SearchResult, error)

	// Close releases backend resources.
	Close() error
}
