// Package file implements the JSON-file-persisted storage backend. The
// forest serializes as nested records mirroring the item shape and must
// round-trip losslessly; lifecycle semantics are delegated to the
// in-memory core so they exist in exactly one place.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"promptvault/internal/domain/models/tree"
	"promptvault/internal/domain/repositories"
	"promptvault/internal/repository/memory"
)

// Store wraps the in-memory core with load-at-open and save-after-every-
// successful-mutation persistence.
type Store struct {
	mem    *memory.Store
	path   string
	logger *slog.Logger

	saveMu sync.Mutex
}

// Open loads the forest from path (an absent file starts empty) and
// returns a ready store. The parent directory is created if needed.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	var roots []*tree.Item
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		roots = []*tree.Item{}
	case err != nil:
		return nil, fmt.Errorf("read store file: %w", err)
	default:
		if err := json.Unmarshal(data, &roots); err != nil {
			return nil, fmt.Errorf("parse store file %s: %w", path, err)
		}
	}

	s := &Store{
		mem:    memory.NewFromForest(roots, logger),
		path:   path,
		logger: logger,
	}
	logger.Info("file store opened", "path", path, "items", len(roots))
	return s, nil
}

// save writes the current forest to disk. Called after every successful
// mutation, mirroring the persisted-store behavior of the original app:
// the file always reflects the last completed operation.
func (s *Store) save() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	data, err := json.MarshalIndent(s.mem.Forest(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write store file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}

func (s *Store) ListItems(ctx context.Context) ([]*tree.Item, error) {
	return s.mem.ListItems(ctx)
}

func (s *Store) GetItem(ctx context.Context, id string) (*tree.Item, error) {
	return s.mem.GetItem(ctx, id)
}

func (s *Store) AddItem(ctx context.Context, parentID *string, draft repositories.Draft) (*tree.Item, error) {
	item, err := s.mem.AddItem(ctx, parentID, draft)
	if err != nil {
		return nil, err
	}
	if err := s.save(); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Store) UpdateItem(ctx context.Context, id string, patch repositories.Patch) (*tree.Item, error) {
	item, err := s.mem.UpdateItem(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if err := s.save(); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Store) DeleteItem(ctx context.Context, id string) error {
	if err := s.mem.DeleteItem(ctx, id); err != nil {
		return err
	}
	return s.save()
}

func (s *Store) MoveItem(ctx context.Context, itemID string, newParentID *string) (*tree.Item, error) {
	item, err := s.mem.MoveItem(ctx, itemID, newParentID)
	if err != nil {
		return nil, err
	}
	if err := s.save(); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Store) SearchItems(ctx context.Context, query string, filters *tree.SearchFilters) ([]tree.SearchResult, error) {
	return s.mem.SearchItems(ctx, query, filters)
}

// Close flushes the forest one final time.
func (s *Store) Close() error {
	return s.save()
}

var _ repositories.ItemStore = (*Store)(nil)
