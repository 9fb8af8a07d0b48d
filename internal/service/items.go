// Package service implements the business layer between the HTTP
// handlers and the storage backend: request validation, version
// snapshots, and structured operation logging. Tree semantics themselves
// live in the backend.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"promptvault/internal/domain"
	"promptvault/internal/domain/models/tree"
	"promptvault/internal/domain/repositories"
	"promptvault/internal/httputil"
)

// MaxNameLength caps item and version-label names.
const MaxNameLength = 255

// ItemService exposes the validated operation set over any ItemStore.
type ItemService struct {
	store  repositories.ItemStore
	logger *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewItemService creates the service over the given backend.
func NewItemService(store repositories.ItemStore, logger *slog.Logger) *ItemService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ItemService{
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// CreateItemRequest carries the caller-supplied fields for a new item.
type CreateItemRequest struct {
	ParentID *string        `json:"parentId,omitempty"`
	Name     string         `json:"name"`
	Kind     tree.ItemKind  `json:"kind"`
	Content  string         `json:"content,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Validate checks the creation request.
func (r *CreateItemRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, MaxNameLength)),
		validation.Field(&r.Kind, validation.Required, validation.In(tree.KindFolder, tree.KindLeaf)),
	)
}

// UpdateItemRequest is a partial update. Content is tri-state: absent
// leaves the text alone, null clears it to the empty string.
type UpdateItemRequest struct {
	Name     *string                 `json:"name,omitempty"`
	Content  httputil.OptionalString `json:"content,omitzero"`
	Versions *[]tree.Version         `json:"versions,omitempty"`
	Metadata map[string]any          `json:"metadata,omitempty"`
}

// Validate checks the update request. At least one field must be
// provided.
func (r *UpdateItemRequest) Validate() error {
	if r.Name == nil && !r.Content.Present && r.Versions == nil && r.Metadata == nil {
		return fmt.Errorf("at least one field must be provided")
	}
	if r.Name != nil {
		return validation.ValidateStruct(r,
			validation.Field(&r.Name, validation.Required, validation.Length(1, MaxNameLength)),
		)
	}
	return nil
}

// MoveItemRequest re-parents an item. A null or absent parentId moves it
// to root level.
type MoveItemRequest struct {
	ParentID *string `json:"parentId"`
}

// SnapshotRequest creates an explicit version snapshot.
type SnapshotRequest struct {
	Label string `json:"label,omitempty"`
}

// Validate checks the snapshot request.
func (r *SnapshotRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Label, validation.Length(0, MaxNameLength)),
	)
}

// ListItems returns the full forest.
func (s *ItemService) ListItems(ctx context.Context) ([]*tree.Item, error) {
	return s.store.ListItems(ctx)
}

// GetItem returns an item or (nil, nil) when the id does not resolve.
func (s *ItemService) GetItem(ctx context.Context, id string) (*tree.Item, error) {
	return s.store.GetItem(ctx, id)
}

// CreateItem validates and creates an item.
func (s *ItemService) CreateItem(ctx context.Context, req *CreateItemRequest) (*tree.Item, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	parentID := req.ParentID
	if parentID != nil && *parentID == "" {
		parentID = nil
	}
	return s.store.AddItem(ctx, parentID, repositories.Draft{
		Name:     req.Name,
		Kind:     req.Kind,
		Content:  req.Content,
		Metadata: req.Metadata,
	})
}

// UpdateItem validates and applies a partial update.
func (s *ItemService) UpdateItem(ctx context.Context, id string, req *UpdateItemRequest) (*tree.Item, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	patch := repositories.Patch{
		Name:     req.Name,
		Versions: req.Versions,
		Metadata: req.Metadata,
	}
	if req.Content.Present {
		content := ""
		if req.Content.Value != nil {
			content = *req.Content.Value
		}
		patch.Content = &content
	}
	return s.store.UpdateItem(ctx, id, patch)
}

// DeleteItem removes an item and its subtree; unknown ids are a no-op.
func (s *ItemService) DeleteItem(ctx context.Context, id string) error {
	return s.store.DeleteItem(ctx, id)
}

// MoveItem re-parents an item.
func (s *ItemService) MoveItem(ctx context.Context, id string, req *MoveItemRequest) (*tree.Item, error) {
	parentID := req.ParentID
	if parentID != nil && *parentID == "" {
		parentID = nil
	}
	return s.store.MoveItem(ctx, id, parentID)
}

// SearchItems validates the filters and runs the search.
func (s *ItemService) SearchItems(ctx context.Context, query string, filters *tree.SearchFilters) ([]tree.SearchResult, error) {
	if err := filters.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return s.store.SearchItems(ctx, query, filters)
}

// SnapshotItem creates an explicit version snapshot of a leaf's current
// content, appended most-recent-last. Versions are never created
// implicitly on edit, and existing snapshots are never mutated.
//
// The read and the write are two store operations. A concurrent update
// landing between them would be clobbered by the stale versions slice;
// callers are single-writer per item, so the window is accepted rather
// than pushing a version-append operation into every backend.
func (s *ItemService) SnapshotItem(ctx context.Context, id string, req *SnapshotRequest) (*tree.Item, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrItemNotFound
	}
	if item.Kind != tree.KindLeaf {
		return nil, &domain.ValidationError{Message: "version snapshots apply to leaf items only"}
	}

	versions := append(item.Versions, tree.Version{
		ID:        s.newID(),
		Timestamp: s.now().UnixMilli(),
		Content:   item.Content,
		Label:     req.Label,
	})

	updated, err := s.store.UpdateItem(ctx, id, repositories.Patch{Versions: &versions})
	if err != nil {
		return nil, err
	}

	s.logger.Info("snapshot created",
		"id", id,
		"version_count", len(versions),
		"label", req.Label,
	)
	return updated, nil
}

// ListVersions returns an item's snapshots in creation order
// (most-recent-last).
func (s *ItemService) ListVersions(ctx context.Context, id string) ([]tree.Version, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrItemNotFound
	}
	if item.Versions == nil {
		return []tree.Version{}, nil
	}
	return item.Versions, nil
}
