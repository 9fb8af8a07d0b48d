package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptvault/internal/domain/models/tree"
	"promptvault/internal/repository/memory"
	"promptvault/internal/service"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.New(nil)
	n := 0
	store.SetIDGenerator(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	})
	svc := service.NewItemService(store, nil)
	srv := httptest.NewServer(Routes(NewItemHandler(svc, nil)))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func createItem(t *testing.T, srv *httptest.Server, body map[string]any) *tree.Item {
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/items", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	item := decode[*tree.Item](t, resp)
	return item
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateAndGetItem(t *testing.T) {
	srv := newTestServer(t)

	folder := createItem(t, srv, map[string]any{"name": "Prompts", "kind": "folder"})
	leaf := createItem(t, srv, map[string]any{
		"name": "Draft", "kind": "leaf", "parentId": folder.ID, "content": "hello",
	})

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/items/"+folder.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[*tree.Item](t, resp)
	require.Len(t, got.Children, 1)
	assert.Equal(t, leaf.ID, got.Children[0].ID)

	t.Run("missing item is 404", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, srv.URL+"/api/items/missing", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestCreateItemErrors(t *testing.T) {
	srv := newTestServer(t)
	leaf := createItem(t, srv, map[string]any{"name": "L", "kind": "leaf"})

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"missing name", map[string]any{"kind": "leaf"}, http.StatusBadRequest},
		{"bad kind", map[string]any{"name": "x", "kind": "dir"}, http.StatusBadRequest},
		{"unknown parent", map[string]any{"name": "x", "kind": "leaf", "parentId": "ghost"}, http.StatusNotFound},
		{"leaf parent", map[string]any{"name": "x", "kind": "leaf", "parentId": leaf.ID}, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, srv.URL+"/api/items", tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestUpdateItem(t *testing.T) {
	srv := newTestServer(t)
	leaf := createItem(t, srv, map[string]any{"name": "L", "kind": "leaf", "content": "v1"})

	resp := doJSON(t, http.MethodPatch, srv.URL+"/api/items/"+leaf.ID, map[string]any{
		"name":     "Renamed",
		"metadata": map[string]any{"color": "blue"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[*tree.Item](t, resp)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, "v1", got.Content)
	assert.Equal(t, "blue", got.Metadata["color"])

	t.Run("null content clears", func(t *testing.T) {
		resp := doJSON(t, http.MethodPatch, srv.URL+"/api/items/"+leaf.ID, map[string]any{
			"content": nil,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		got := decode[*tree.Item](t, resp)
		assert.Empty(t, got.Content)
	})

	t.Run("unknown id", func(t *testing.T) {
		resp := doJSON(t, http.MethodPatch, srv.URL+"/api/items/ghost", map[string]any{"name": "x"})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestDeleteItem(t *testing.T) {
	srv := newTestServer(t)
	leaf := createItem(t, srv, map[string]any{"name": "L", "kind": "leaf"})

	resp := doJSON(t, http.MethodDelete, srv.URL+"/api/items/"+leaf.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Idempotent: deleting again still succeeds.
	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/items/"+leaf.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestMoveItem(t *testing.T) {
	srv := newTestServer(t)
	a := createItem(t, srv, map[string]any{"name": "a", "kind": "folder"})
	b := createItem(t, srv, map[string]any{"name": "b", "kind": "folder", "parentId": a.ID})

	t.Run("cyclic move is 409", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/items/"+a.ID+"/move", map[string]any{
			"parentId": b.ID,
		})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("move to root", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/items/"+b.ID+"/move", map[string]any{
			"parentId": nil,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		got := decode[*tree.Item](t, resp)
		assert.Nil(t, got.ParentID)
	})

	t.Run("unknown item is 404", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/items/ghost/move", map[string]any{})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestSearchItems(t *testing.T) {
	srv := newTestServer(t)
	createItem(t, srv, map[string]any{"name": "Recipes", "kind": "folder"})
	createItem(t, srv, map[string]any{"name": "soup", "kind": "leaf", "content": "tomato\ntomato"})

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/items/search?q=tomato", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	results := decode[[]tree.SearchResult](t, resp)
	require.Len(t, results, 1)
	assert.Len(t, results[0].Matches, 2)

	t.Run("kind filter", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, srv.URL+"/api/items/search?q=recipes&kind=leaf", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, decode[[]tree.SearchResult](t, resp))
	})

	t.Run("empty query returns empty list", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, srv.URL+"/api/items/search?q=", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		results := decode[[]tree.SearchResult](t, resp)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	})

	t.Run("bad date filter is 400", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, srv.URL+"/api/items/search?q=x&date=century", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestVersionEndpoints(t *testing.T) {
	srv := newTestServer(t)
	leaf := createItem(t, srv, map[string]any{"name": "L", "kind": "leaf", "content": "v1"})

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/items/"+leaf.ID+"/versions", map[string]any{
		"label": "first",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	item := decode[*tree.Item](t, resp)
	require.Len(t, item.Versions, 1)
	assert.Equal(t, "first", item.Versions[0].Label)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/items/"+leaf.ID+"/versions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	versions := decode[[]tree.Version](t, resp)
	require.Len(t, versions, 1)
	assert.Equal(t, "v1", versions[0].Content)

	t.Run("snapshot of folder is 400", func(t *testing.T) {
		folder := createItem(t, srv, map[string]any{"name": "F", "kind": "folder"})
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/items/"+folder.ID+"/versions", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestErrorResponsesAreProblemJSON(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/items/ghost", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/problem+json")

	body := decode[map[string]any](t, resp)
	assert.Equal(t, "item_not_found", body["code"])
	assert.EqualValues(t, http.StatusNotFound, body["status"])
}
