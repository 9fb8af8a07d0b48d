// Package handler exposes the item tree over HTTP. Handlers only talk
// to the service layer, never to a repository directly.
package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"promptvault/internal/domain"
	"promptvault/internal/domain/models/tree"
	"promptvault/internal/httputil"
	"promptvault/internal/service"
)

// ItemHandler handles item HTTP requests
type ItemHandler struct {
	items  *service.ItemService
	logger *slog.Logger
}

// NewItemHandler creates a new item handler
func NewItemHandler(items *service.ItemService, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{items: items, logger: logger}
}

// HealthCheck reports service liveness
// GET /health
func (h *ItemHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListItems returns the full item forest
// GET /api/items
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.items.ListItems(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, items)
}

// GetItem retrieves a single item subtree by ID
// GET /api/items/{id}
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Item ID")
	if !ok {
		return
	}

	item, err := h.items.GetItem(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	if item == nil {
		handleError(w, domain.ErrItemNotFound)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, item)
}

// CreateItem creates a new folder or leaf
// POST /api/items
func (h *ItemHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req service.CreateItemRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body", domain.Code(domain.ErrValidation))
		return
	}

	item, err := h.items.CreateItem(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, item)
}

// UpdateItem applies a partial update
// PATCH /api/items/{id}
func (h *ItemHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Item ID")
	if !ok {
		return
	}

	var req service.UpdateItemRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body", domain.Code(domain.ErrValidation))
		return
	}

	item, err := h.items.UpdateItem(r.Context(), id, &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, item)
}

// DeleteItem removes an item and its entire subtree
// DELETE /api/items/{id}
func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Item ID")
	if !ok {
		return
	}

	if err := h.items.DeleteItem(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveItem re-parents an item
// POST /api/items/{id}/move
func (h *ItemHandler) MoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Item ID")
	if !ok {
		return
	}

	var req service.MoveItemRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body", domain.Code(domain.ErrValidation))
		return
	}

	item, err := h.items.MoveItem(r.Context(), id, &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, item)
}

// SearchItems searches names and leaf content
// GET /api/items/search?q=...&kind=leaf,folder&date=week
func (h *ItemHandler) SearchItems(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	filters := &tree.SearchFilters{Date: tree.DateAny}
	if kinds := r.URL.Query().Get("kind"); kinds != "" {
		for _, k := range strings.Split(kinds, ",") {
			filters.Kinds = append(filters.Kinds, tree.ItemKind(strings.TrimSpace(k)))
		}
	}
	if date := r.URL.Query().Get("date"); date != "" {
		filters.Date = tree.DateFilter(date)
	}

	results, err := h.items.SearchItems(r.Context(), query, filters)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, results)
}

// ListVersions returns an item's version snapshots, most recent last
// GET /api/items/{id}/versions
func (h *ItemHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Item ID")
	if !ok {
		return
	}

	versions, err := h.items.ListVersions(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, versions)
}

// SnapshotItem captures the current content of a leaf as a new version
// POST /api/items/{id}/versions
func (h *ItemHandler) SnapshotItem(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Item ID")
	if !ok {
		return
	}

	req := service.SnapshotRequest{}
	if r.ContentLength != 0 {
		if err := httputil.ParseJSON(w, r, &req); err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "Invalid request body", domain.Code(domain.ErrValidation))
			return
		}
	}

	item, err := h.items.SnapshotItem(r.Context(), id, &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, item)
}
