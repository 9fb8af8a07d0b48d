// Package memory implements the volatile in-memory storage backend. It is
// the reference implementation of the item lifecycle semantics: the other
// backends either wrap it (file) or reproduce the same contract against
// their medium (postgres, remote).
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"promptvault/internal/domain"
	"promptvault/internal/domain/models/tree"
	"promptvault/internal/domain/repositories"
	"promptvault/internal/forest"
)

// Store owns the canonical forest. Mutations are fully serialized behind
// the write lock; reads run concurrently with each other but never
// interleave with a mutation mid-traversal. All returned items are deep
// copies.
type Store struct {
	mu     sync.RWMutex
	roots  []*tree.Item
	logger *slog.Logger

	// overridable in tests
	now   func() time.Time
	newID func() string
}

// New creates an empty store.
func New(logger *slog.Logger) *Store {
	return NewFromForest(nil, logger)
}

// NewFromForest creates a store seeded with an existing forest. The
// forest is normalized (children/parentId conventions) and owned by the
// store from then on; callers must not retain references into it.
func NewFromForest(roots []*tree.Item, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if roots == nil {
		roots = []*tree.Item{}
	}
	tree.Normalize(roots)
	return &Store{
		roots:  roots,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// ListItems returns a deep copy of the full forest.
func (s *Store) ListItems(ctx context.Context) ([]*tree.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := tree.CloneForest(s.roots)
	if out == nil {
		out = []*tree.Item{}
	}
	return out, nil
}

// GetItem returns a deep copy of the item, or (nil, nil) when absent.
func (s *Store) GetItem(ctx context.Context, id string) (*tree.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return forest.FindNode(s.roots, id).Clone(), nil
}

// AddItem materializes a draft: backend-generated id, lastModified set to
// now, folders initialized with empty children, leaf content defaulting
// to the empty string. parentID nil inserts at root; otherwise the parent
// must be an existing folder.
func (s *Store) AddItem(ctx context.Context, parentID *string, draft repositories.Draft) (*tree.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := &tree.Item{
		ID:       s.newID(),
		Name:     draft.Name,
		Kind:     draft.Kind,
		Content:  draft.Content,
		Metadata: tree.Touch(tree.CloneMetadata(draft.Metadata), s.now().UnixMilli()),
	}
	if draft.Kind == tree.KindFolder {
		item.Children = []*tree.Item{}
		item.Content = ""
	}

	roots, err := forest.Insert(s.roots, parentID, item)
	if err != nil {
		return nil, err
	}
	s.roots = roots

	s.logger.Info("item added",
		"id", item.ID,
		"name", item.Name,
		"kind", item.Kind,
		"parent_id", strOrRoot(parentID),
	)
	return item.Clone(), nil
}

// UpdateItem applies a field-level merge: pointer fields present in the
// patch overwrite the stored fields, metadata is merged key-by-key, and
// lastModified is forced to now regardless of any caller-supplied value.
func (s *Store) UpdateItem(ctx context.Context, id string, patch repositories.Patch) (*tree.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	node := forest.FindNode(s.roots, id)
	if node == nil {
		return nil, domain.ErrItemNotFound
	}

	if patch.Name != nil {
		node.Name = *patch.Name
	}
	if patch.Content != nil && node.Kind == tree.KindLeaf {
		node.Content = *patch.Content
	}
	if patch.Versions != nil {
		versions := make([]tree.Version, len(*patch.Versions))
		copy(versions, *patch.Versions)
		node.Versions = versions
	}
	node.Metadata = tree.MergeMetadata(node.Metadata, patch.Metadata)
	node.Metadata = tree.Touch(node.Metadata, s.now().UnixMilli())

	s.logger.Info("item updated", "id", node.ID, "name", node.Name)
	return node.Clone(), nil
}

// DeleteItem removes the item and its subtree. Unknown ids are a no-op.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := forest.Count(s.roots)
	s.roots = forest.RemoveSubtree(s.roots, id)
	if forest.Count(s.roots) != before {
		s.logger.Info("item deleted", "id", id)
	}
	return nil
}

// MoveItem re-parents an item via extract-then-insert. All failure
// conditions are checked before the forest is touched, so a rejected move
// leaves it unchanged; should the insert half still fail, the extracted
// node is reattached to its original parent.
func (s *Store) MoveItem(ctx context.Context, itemID string, newParentID *string) (*tree.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	node := forest.FindNode(s.roots, itemID)
	if node == nil {
		return nil, domain.ErrItemNotFound
	}
	if newParentID != nil {
		if forest.Contains(node, *newParentID) {
			return nil, domain.ErrCyclicMove
		}
		target := forest.FindNode(s.roots, *newParentID)
		if target == nil || target.Kind != tree.KindFolder {
			return nil, domain.ErrTargetNotFolder
		}
	}

	origParent := node.ParentID
	origIndex := forest.IndexUnder(s.roots, origParent, itemID)
	roots, extracted := forest.Extract(s.roots, itemID)
	roots, err := forest.Insert(roots, newParentID, extracted)
	if err != nil {
		s.roots = forest.InsertAt(roots, origParent, origIndex, extracted)
		return nil, err
	}
	s.roots = roots

	extracted.Metadata = tree.Touch(extracted.Metadata, s.now().UnixMilli())

	s.logger.Info("item moved",
		"id", itemID,
		"new_parent_id", strOrRoot(newParentID),
	)
	return extracted.Clone(), nil
}

// SearchItems runs the shared search engine over the live forest under
// the read lock.
func (s *Store) SearchItems(ctx context.Context, query string, filters *tree.SearchFilters) ([]tree.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return forest.Search(s.roots, query, filters, s.now()), nil
}

// Close is a no-op for the volatile backend.
func (s *Store) Close() error { return nil }

// Forest returns a deep copy of the current forest. Used by the file
// backend to persist after mutations.
func (s *Store) Forest() []*tree.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := tree.CloneForest(s.roots)
	if out == nil {
		out = []*tree.Item{}
	}
	return out
}

// SetClock overrides the store's time source. Test hook.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// SetIDGenerator overrides the store's id source. Test hook.
func (s *Store) SetIDGenerator(newID func() string) { s.newID = newID }

func strOrRoot(id *string) string {
	if id == nil {
		return "root"
	}
	return *id
}

var _ repositories.ItemStore = (*Store)(nil)
