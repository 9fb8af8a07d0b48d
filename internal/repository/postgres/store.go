// Package postgres implements the durable storage backend over a
// PostgreSQL items table. Items persist as flat rows with a parent_id
// back-reference and a per-sibling position; the nested forest is
// assembled in memory with the same ordering the other backends keep
// natively, and search reuses the shared engine over that snapshot.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"promptvault/internal/domain"
	"promptvault/internal/domain/models/tree"
	"promptvault/internal/domain/repositories"
	"promptvault/internal/forest"
)

// Store implements repositories.ItemStore against PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewStore creates a postgres-backed item store.
func NewStore(cfg *StoreConfig) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		pool:   cfg.Pool,
		tables: cfg.Tables,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// EnsureSchema creates the items table when it does not exist. The
// self-referencing foreign key with ON DELETE CASCADE gives recursive
// subtree deletion at the database level.
func (s *Store) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			parent_id UUID REFERENCES %s(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			metadata JSONB NOT NULL DEFAULT '{}',
			versions JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_%s_parent ON %s(parent_id);
	`, s.tables.Items, s.tables.Items, s.tables.Items, s.tables.Items)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// itemRow is the flat persisted shape of one item.
type itemRow struct {
	ID       string
	ParentID *string
	Position int
	Kind     string
	Name     string
	Content  string
	Metadata []byte
	Versions []byte
}

// loadForest reads every row in position order and assembles the nested
// forest: one pass to materialize nodes, one to connect children to
// parents. Global position ordering keeps each parent's children in
// sibling order.
func (s *Store) loadForest(ctx context.Context, q queryer) ([]*tree.Item, error) {
	query := fmt.Sprintf(`
		SELECT id, parent_id, position, kind, name, content, metadata, versions
		FROM %s
		ORDER BY position, created_at
	`, s.tables.Items)

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load forest: %w", err)
	}
	defer rows.Close()

	var flat []itemRow
	for rows.Next() {
		var r itemRow
		if err := rows.Scan(&r.ID, &r.ParentID, &r.Position, &r.Kind, &r.Name, &r.Content, &r.Metadata, &r.Versions); err != nil {
			return nil, fmt.Errorf("scan item row: %w", err)
		}
		flat = append(flat, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load forest: %w", err)
	}

	nodes := make(map[string]*tree.Item, len(flat))
	for _, r := range flat {
		item, err := rowToItem(r)
		if err != nil {
			return nil, err
		}
		nodes[r.ID] = item
	}

	roots := []*tree.Item{}
	for _, r := range flat {
		node := nodes[r.ID]
		if r.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		if parent, ok := nodes[*r.ParentID]; ok {
			parent.Children = append(parent.Children, node)
		}
	}
	tree.Normalize(roots)
	return roots, nil
}

func rowToItem(r itemRow) (*tree.Item, error) {
	item := &tree.Item{
		ID:      r.ID,
		Name:    r.Name,
		Kind:    tree.ItemKind(r.Kind),
		Content: r.Content,
	}
	if len(r.Metadata) > 0 {
		if err := json.Unmarshal(r.Metadata, &item.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for %s: %w", r.ID, err)
		}
	}
	if len(r.Versions) > 0 {
		if err := json.Unmarshal(r.Versions, &item.Versions); err != nil {
			return nil, fmt.Errorf("decode versions for %s: %w", r.ID, err)
		}
	}
	if item.Kind == tree.KindFolder {
		item.Children = []*tree.Item{}
	}
	return item, nil
}

// ListItems assembles and returns the full forest.
func (s *Store) ListItems(ctx context.Context) ([]*tree.Item, error) {
	return s.loadForest(ctx, s.pool)
}

// GetItem returns the item with its subtree, or (nil, nil) when absent.
func (s *Store) GetItem(ctx context.Context, id string) (*tree.Item, error) {
	roots, err := s.loadForest(ctx, s.pool)
	if err != nil {
		return nil, err
	}
	return forest.FindNode(roots, id), nil
}

// AddItem inserts a row under parentID after validating the parent is an
// existing folder. Sibling order is append-order: the next free position
// under that parent.
func (s *Store) AddItem(ctx context.Context, parentID *string, draft repositories.Draft) (*tree.Item, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if parentID != nil {
		kind, err := s.fetchKind(ctx, tx, *parentID)
		if err != nil {
			return nil, err
		}
		if kind != tree.KindFolder {
			return nil, domain.ErrNotAFolder
		}
	}

	content := draft.Content
	if draft.Kind == tree.KindFolder {
		content = ""
	}
	metadata := tree.Touch(tree.CloneMetadata(draft.Metadata), s.now().UnixMilli())
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	item := &tree.Item{
		ID:       s.newID(),
		Name:     draft.Name,
		Kind:     draft.Kind,
		ParentID: parentID,
		Content:  content,
		Metadata: metadata,
	}
	if draft.Kind == tree.KindFolder {
		item.Children = []*tree.Item{}
	}

	insert := fmt.Sprintf(`
		INSERT INTO %s (id, parent_id, position, kind, name, content, metadata, versions, created_at, updated_at)
		VALUES ($1, $2,
			(SELECT COALESCE(MAX(position) + 1, 0) FROM %s WHERE parent_id IS NOT DISTINCT FROM $2),
			$3, $4, $5, $6, '[]', now(), now())
	`, s.tables.Items, s.tables.Items)

	if _, err := tx.Exec(ctx, insert, item.ID, parentID, string(item.Kind), item.Name, content, metadataJSON); err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("item added", "id", item.ID, "name", item.Name, "kind", item.Kind)
	return item, nil
}

// fetchKind returns the kind of the row with the given id, or
// domain.ErrParentNotFound when it does not exist.
func (s *Store) fetchKind(ctx context.Context, q queryer, id string) (tree.ItemKind, error) {
	query := fmt.Sprintf(`SELECT kind FROM %s WHERE id = $1`, s.tables.Items)
	var kind string
	err := q.QueryRow(ctx, query, id).Scan(&kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrParentNotFound
	}
	if err != nil {
		return "", fmt.Errorf("fetch parent: %w", err)
	}
	return tree.ItemKind(kind), nil
}

// UpdateItem merges the patch into the stored row inside one transaction
// and returns the updated item with its subtree.
func (s *Store) UpdateItem(ctx context.Context, id string, patch repositories.Patch) (*tree.Item, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`
		SELECT id, parent_id, position, kind, name, content, metadata, versions
		FROM %s WHERE id = $1 FOR UPDATE
	`, s.tables.Items)

	var r itemRow
	err = tx.QueryRow(ctx, query, id).Scan(&r.ID, &r.ParentID, &r.Position, &r.Kind, &r.Name, &r.Content, &r.Metadata, &r.Versions)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch item: %w", err)
	}

	item, err := rowToItem(r)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		item.Name = *patch.Name
	}
	if patch.Content != nil && item.Kind == tree.KindLeaf {
		item.Content = *patch.Content
	}
	if patch.Versions != nil {
		item.Versions = *patch.Versions
	}
	item.Metadata = tree.MergeMetadata(item.Metadata, patch.Metadata)
	item.Metadata = tree.Touch(item.Metadata, s.now().UnixMilli())

	metadataJSON, err := json.Marshal(item.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	versionsJSON, err := json.Marshal(versionsOrEmpty(item.Versions))
	if err != nil {
		return nil, fmt.Errorf("encode versions: %w", err)
	}

	update := fmt.Sprintf(`
		UPDATE %s SET name = $2, content = $3, metadata = $4, versions = $5, updated_at = now()
		WHERE id = $1
	`, s.tables.Items)
	if _, err := tx.Exec(ctx, update, id, item.Name, item.Content, metadataJSON, versionsJSON); err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}

	roots, err := s.loadForest(ctx, tx)
	if err != nil {
		return nil, err
	}
	updated := forest.FindNode(roots, id)

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("item updated", "id", id, "name", item.Name)
	return updated, nil
}

// DeleteItem removes the row; the cascading foreign key removes the
// subtree. Unknown ids delete zero rows and succeed.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.tables.Items)
	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if tag.RowsAffected() > 0 {
		s.logger.Info("item deleted", "id", id)
	}
	return nil
}

// MoveItem re-parents a row after rejecting cyclic targets. The cycle
// check walks the target's ancestor chain before any write, so a failed
// move never touches the table.
func (s *Store) MoveItem(ctx context.Context, itemID string, newParentID *string) (*tree.Item, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	existsQuery := fmt.Sprintf(`SELECT 1 FROM %s WHERE id = $1 FOR UPDATE`, s.tables.Items)
	var one int
	err = tx.QueryRow(ctx, existsQuery, itemID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch item: %w", err)
	}

	if newParentID != nil {
		if *newParentID == itemID {
			return nil, domain.ErrCyclicMove
		}
		kind, err := s.fetchKind(ctx, tx, *newParentID)
		if errors.Is(err, domain.ErrParentNotFound) {
			return nil, domain.ErrTargetNotFolder
		}
		if err != nil {
			return nil, err
		}
		if kind != tree.KindFolder {
			return nil, domain.ErrTargetNotFolder
		}
		if err := s.checkNoCycle(ctx, tx, itemID, *newParentID); err != nil {
			return nil, err
		}
	}

	update := fmt.Sprintf(`
		UPDATE %s SET
			parent_id = $2,
			position = (SELECT COALESCE(MAX(position) + 1, 0) FROM %s WHERE parent_id IS NOT DISTINCT FROM $2),
			metadata = jsonb_set(metadata, '{lastModified}', to_jsonb($3::bigint)),
			updated_at = now()
		WHERE id = $1
	`, s.tables.Items, s.tables.Items)
	if _, err := tx.Exec(ctx, update, itemID, newParentID, s.now().UnixMilli()); err != nil {
		return nil, fmt.Errorf("move item: %w", err)
	}

	roots, err := s.loadForest(ctx, tx)
	if err != nil {
		return nil, err
	}
	moved := forest.FindNode(roots, itemID)

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("item moved", "id", itemID)
	return moved, nil
}

// checkNoCycle walks up the target's ancestor chain; hitting itemID
// means the target sits inside the moved item's subtree.
func (s *Store) checkNoCycle(ctx context.Context, q queryer, itemID, targetID string) error {
	query := fmt.Sprintf(`SELECT parent_id FROM %s WHERE id = $1`, s.tables.Items)
	current := targetID
	for {
		var parent *string
		if err := q.QueryRow(ctx, query, current).Scan(&parent); err != nil {
			return fmt.Errorf("walk ancestors: %w", err)
		}
		if parent == nil {
			return nil
		}
		if *parent == itemID {
			return domain.ErrCyclicMove
		}
		current = *parent
	}
}

// SearchItems runs the shared engine over an assembled snapshot, so
// ordering and match semantics are identical to the in-memory backend.
func (s *Store) SearchItems(ctx context.Context, query string, filters *tree.SearchFilters) ([]tree.SearchResult, error) {
	roots, err := s.loadForest(ctx, s.pool)
	if err != nil {
		return nil, err
	}
	return forest.Search(roots, query, filters, s.now()), nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func versionsOrEmpty(v []tree.Version) []tree.Version {
	if v == nil {
		return []tree.Version{}
	}
	return v
}

var _ repositories.ItemStore = (*Store)(nil)
