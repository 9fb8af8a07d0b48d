package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptvault/internal/domain"
	"promptvault/internal/domain/models/tree"
	"promptvault/internal/httputil"
	"promptvault/internal/repository/memory"
)

func newTestService(t *testing.T) (*ItemService, *memory.Store) {
	t.Helper()
	store := memory.New(nil)
	n := 0
	store.SetIDGenerator(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	})
	svc := NewItemService(store, nil)
	v := 0
	svc.newID = func() string {
		v++
		return fmt.Sprintf("ver-%d", v)
	}
	return svc, store
}

func present(s string) httputil.OptionalString {
	return httputil.OptionalString{Present: true, Value: &s}
}

func TestCreateItemValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateItemRequest
	}{
		{"missing name", CreateItemRequest{Kind: tree.KindLeaf}},
		{"missing kind", CreateItemRequest{Name: "x"}},
		{"bad kind", CreateItemRequest{Name: "x", Kind: "directory"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateItem(ctx, &tt.req)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	item, err := svc.CreateItem(ctx, &CreateItemRequest{Name: "ok", Kind: tree.KindFolder})
	require.NoError(t, err)
	assert.Equal(t, tree.KindFolder, item.Kind)
}

func TestCreateItemEmptyParentMeansRoot(t *testing.T) {
	svc, _ := newTestService(t)
	empty := ""
	item, err := svc.CreateItem(context.Background(), &CreateItemRequest{
		Name: "rooted", Kind: tree.KindLeaf, ParentID: &empty,
	})
	require.NoError(t, err)
	assert.Nil(t, item.ParentID)
}

func TestUpdateItemTriStateContent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, &CreateItemRequest{Name: "n", Kind: tree.KindLeaf, Content: "original"})
	require.NoError(t, err)

	t.Run("absent content is untouched", func(t *testing.T) {
		name := "renamed"
		got, err := svc.UpdateItem(ctx, item.ID, &UpdateItemRequest{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "original", got.Content)
	})

	t.Run("present content replaces", func(t *testing.T) {
		got, err := svc.UpdateItem(ctx, item.ID, &UpdateItemRequest{Content: present("new text")})
		require.NoError(t, err)
		assert.Equal(t, "new text", got.Content)
	})

	t.Run("null content clears", func(t *testing.T) {
		got, err := svc.UpdateItem(ctx, item.ID, &UpdateItemRequest{
			Content: httputil.OptionalString{Present: true, Value: nil},
		})
		require.NoError(t, err)
		assert.Empty(t, got.Content)
	})

	t.Run("empty patch is rejected", func(t *testing.T) {
		_, err := svc.UpdateItem(ctx, item.ID, &UpdateItemRequest{})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestSnapshotItem(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	now := time.UnixMilli(1_700_000_000_000)
	svc.now = func() time.Time { return now }
	store.SetClock(func() time.Time { return now })

	leaf, err := svc.CreateItem(ctx, &CreateItemRequest{Name: "prompt", Kind: tree.KindLeaf, Content: "v1"})
	require.NoError(t, err)

	got, err := svc.SnapshotItem(ctx, leaf.ID, &SnapshotRequest{Label: "first"})
	require.NoError(t, err)
	require.Len(t, got.Versions, 1)
	assert.Equal(t, "v1", got.Versions[0].Content)
	assert.Equal(t, "first", got.Versions[0].Label)
	assert.Equal(t, now.UnixMilli(), got.Versions[0].Timestamp)

	// Edit then snapshot again: versions append most-recent-last and the
	// earlier snapshot is untouched by the edit.
	_, err = svc.UpdateItem(ctx, leaf.ID, &UpdateItemRequest{Content: present("v2")})
	require.NoError(t, err)

	got, err = svc.SnapshotItem(ctx, leaf.ID, &SnapshotRequest{})
	require.NoError(t, err)
	require.Len(t, got.Versions, 2)
	assert.Equal(t, "v1", got.Versions[0].Content)
	assert.Equal(t, "v2", got.Versions[1].Content)

	t.Run("unknown item", func(t *testing.T) {
		_, err := svc.SnapshotItem(ctx, "missing", &SnapshotRequest{})
		assert.ErrorIs(t, err, domain.ErrItemNotFound)
	})

	t.Run("folders have no versions", func(t *testing.T) {
		folder, err := svc.CreateItem(ctx, &CreateItemRequest{Name: "f", Kind: tree.KindFolder})
		require.NoError(t, err)
		_, err = svc.SnapshotItem(ctx, folder.ID, &SnapshotRequest{})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestListVersions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	leaf, err := svc.CreateItem(ctx, &CreateItemRequest{Name: "p", Kind: tree.KindLeaf, Content: "x"})
	require.NoError(t, err)

	versions, err := svc.ListVersions(ctx, leaf.ID)
	require.NoError(t, err)
	assert.NotNil(t, versions)
	assert.Empty(t, versions)

	_, err = svc.ListVersions(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestSearchItemsValidatesFilters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SearchItems(ctx, "q", &tree.SearchFilters{Date: "fortnight"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.SearchItems(ctx, "q", &tree.SearchFilters{Kinds: []tree.ItemKind{"link"}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	results, err := svc.SearchItems(ctx, "q", &tree.SearchFilters{Date: tree.DateWeek})
	require.NoError(t, err)
	assert.NotNil(t, results)
}
