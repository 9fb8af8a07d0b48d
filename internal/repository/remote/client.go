// Package remote implements ItemStore against a running promptvault
// server, so the same API a browser talks to can back another process.
// Domain errors are reconstructed from the problem+json "code" field,
// which keeps errors.Is working across the wire.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"promptvault/internal/domain"
	"promptvault/internal/domain/models/tree"
	"promptvault/internal/domain/repositories"
	"promptvault/internal/httputil"
)

const defaultTimeout = 15 * time.Second

// Store is an HTTP client fulfilling the ItemStore contract.
type Store struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger

	attempts uint
	delay    time.Duration
}

// Config configures a remote store.
type Config struct {
	// BaseURL is the server root, e.g. http://localhost:8080.
	BaseURL string
	// Token, when set, is sent as a bearer token on every request.
	Token  string
	Client *http.Client
	Logger *slog.Logger
}

// New creates a remote store. The underlying HTTP client defaults to a
// 15-second timeout.
func New(cfg Config) (*Store, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("remote: base URL is required")
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		token:    cfg.Token,
		client:   client,
		logger:   logger,
		attempts: 3,
		delay:    200 * time.Millisecond,
	}, nil
}

var _ repositories.ItemStore = (*Store)(nil)

// ListItems fetches the full forest.
func (s *Store) ListItems(ctx context.Context) ([]*tree.Item, error) {
	var items []*tree.Item
	if err := s.doRetry(ctx, http.MethodGet, "/api/items", nil, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []*tree.Item{}
	}
	tree.Normalize(items)
	return items, nil
}

// GetItem fetches a single item; a 404 maps to (nil, nil), matching the
// in-process backends.
func (s *Store) GetItem(ctx context.Context, id string) (*tree.Item, error) {
	var item tree.Item
	err := s.doRetry(ctx, http.MethodGet, "/api/items/"+url.PathEscape(id), nil, &item)
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return repairItem(&item), nil
}

// AddItem creates an item under the given parent.
func (s *Store) AddItem(ctx context.Context, parentID *string, draft repositories.Draft) (*tree.Item, error) {
	body := map[string]any{
		"parentId": parentID,
		"name":     draft.Name,
		"kind":     draft.Kind,
	}
	if draft.Content != "" {
		body["content"] = draft.Content
	}
	if draft.Metadata != nil {
		body["metadata"] = draft.Metadata
	}
	var item tree.Item
	if err := s.do(ctx, http.MethodPost, "/api/items", body, &item); err != nil {
		return nil, err
	}
	return repairItem(&item), nil
}

// UpdateItem applies a partial update.
func (s *Store) UpdateItem(ctx context.Context, id string, patch repositories.Patch) (*tree.Item, error) {
	body := map[string]any{}
	if patch.Name != nil {
		body["name"] = *patch.Name
	}
	if patch.Content != nil {
		body["content"] = *patch.Content
	}
	if patch.Versions != nil {
		body["versions"] = *patch.Versions
	}
	if patch.Metadata != nil {
		body["metadata"] = patch.Metadata
	}
	var item tree.Item
	if err := s.do(ctx, http.MethodPatch, "/api/items/"+url.PathEscape(id), body, &item); err != nil {
		return nil, err
	}
	return repairItem(&item), nil
}

// DeleteItem removes an item and its subtree; unknown ids succeed.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	return s.doRetry(ctx, http.MethodDelete, "/api/items/"+url.PathEscape(id), nil, nil)
}

// MoveItem re-parents an item.
func (s *Store) MoveItem(ctx context.Context, id string, newParentID *string) (*tree.Item, error) {
	body := map[string]any{"parentId": newParentID}
	var item tree.Item
	if err := s.do(ctx, http.MethodPost, "/api/items/"+url.PathEscape(id)+"/move", body, &item); err != nil {
		return nil, err
	}
	return repairItem(&item), nil
}

// SearchItems runs a search on the server.
func (s *Store) SearchItems(ctx context.Context, query string, filters *tree.SearchFilters) ([]tree.SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	if filters != nil {
		if len(filters.Kinds) > 0 {
			kinds := make([]string, len(filters.Kinds))
			for i, k := range filters.Kinds {
				kinds[i] = string(k)
			}
			params.Set("kind", strings.Join(kinds, ","))
		}
		if filters.Date != "" && filters.Date != tree.DateAny {
			params.Set("date", string(filters.Date))
		}
	}
	var results []tree.SearchResult
	if err := s.doRetry(ctx, http.MethodGet, "/api/items/search?"+params.Encode(), nil, &results); err != nil {
		return nil, err
	}
	if results == nil {
		results = []tree.SearchResult{}
	}
	return results, nil
}

// Close is a no-op; the underlying http.Client needs no teardown.
func (s *Store) Close() error { return nil }

// repairItem re-applies the structural conventions to a decoded item so
// a server that omits an empty children array still yields the same
// shape as the in-process backends: folders non-nil, leaves nil. The
// item's own parentId is the server's answer, so it is preserved across
// normalization.
func repairItem(item *tree.Item) *tree.Item {
	if item == nil {
		return nil
	}
	parentID := item.ParentID
	tree.Normalize([]*tree.Item{item})
	item.ParentID = parentID
	return item
}

// doRetry wraps do with retries for idempotent requests.
func (s *Store) doRetry(ctx context.Context, method, path string, body, out any) error {
	return retry.Do(
		func() error { return s.do(ctx, method, path, body, out) },
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.Delay(s.delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			// Domain errors came from a live server; retrying will not
			// change the answer.
			return domain.FromCode(domain.Code(err)) == nil
		}),
	)
}

func (s *Store) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("remote: encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("remote: building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("remote: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return s.decodeError(resp, method, path)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("remote: decoding %s %s response: %w", method, path, err)
	}
	return nil
}

func (s *Store) decodeError(resp *http.Response, method, path string) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var problem httputil.ProblemDetail
	if err := json.Unmarshal(raw, &problem); err == nil && problem.Code != "" {
		if sentinel := domain.FromCode(problem.Code); sentinel != nil {
			if problem.Detail != "" && problem.Detail != sentinel.Error() {
				return fmt.Errorf("%w: %s", sentinel, problem.Detail)
			}
			return sentinel
		}
	}

	s.logger.Warn("unexpected remote error",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
	)
	return fmt.Errorf("remote: %s %s: unexpected status %d", method, path, resp.StatusCode)
}
