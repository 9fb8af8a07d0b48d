package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptvault/internal/domain"
	"promptvault/internal/domain/models/tree"
	"promptvault/internal/domain/repositories"
)

// Integration tests run only against a throwaway database:
//
//	TEST_DATABASE_URL=postgres://localhost:5432/promptvault_test go test ./internal/repository/postgres/
func newTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping postgres integration tests")
	}

	ctx := context.Background()
	pool, err := CreateConnectionPool(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := NewStore(&StoreConfig{
		Pool:   pool,
		Tables: NewTableNames("inttest_"),
	})
	require.NoError(t, s.EnsureSchema(ctx))

	_, err = pool.Exec(ctx, "DELETE FROM "+s.tables.Items)
	require.NoError(t, err)
	return s
}

func ptr(s string) *string { return &s }

func TestPostgresLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	folder, err := s.AddItem(ctx, nil, repositories.Draft{Name: "Prompts", Kind: tree.KindFolder})
	require.NoError(t, err)
	require.NotEmpty(t, folder.ID)
	assert.NotNil(t, folder.Children)

	leaf, err := s.AddItem(ctx, &folder.ID, repositories.Draft{
		Name:     "Draft",
		Kind:     tree.KindLeaf,
		Content:  "hello",
		Metadata: map[string]any{"tags": []any{"a"}},
	})
	require.NoError(t, err)

	t.Run("assembled tree", func(t *testing.T) {
		got, err := s.GetItem(ctx, folder.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Len(t, got.Children, 1)
		assert.Equal(t, leaf.ID, got.Children[0].ID)
		require.NotNil(t, got.Children[0].ParentID)
		assert.Equal(t, folder.ID, *got.Children[0].ParentID)
	})

	t.Run("sibling order is append order", func(t *testing.T) {
		for _, name := range []string{"one", "two", "three"} {
			_, err := s.AddItem(ctx, &folder.ID, repositories.Draft{Name: name, Kind: tree.KindLeaf})
			require.NoError(t, err)
		}
		got, err := s.GetItem(ctx, folder.ID)
		require.NoError(t, err)
		names := make([]string, len(got.Children))
		for i, c := range got.Children {
			names[i] = c.Name
		}
		assert.Equal(t, []string{"Draft", "one", "two", "three"}, names)
	})

	t.Run("update merges metadata", func(t *testing.T) {
		got, err := s.UpdateItem(ctx, leaf.ID, repositories.Patch{
			Metadata: map[string]any{"color": "blue"},
		})
		require.NoError(t, err)
		assert.Equal(t, "blue", got.Metadata["color"])
		assert.NotNil(t, got.Metadata["tags"], "existing keys survive the merge")
	})

	t.Run("recursive delete", func(t *testing.T) {
		require.NoError(t, s.DeleteItem(ctx, folder.ID))
		got, err := s.GetItem(ctx, leaf.ID)
		require.NoError(t, err)
		assert.Nil(t, got, "cascade must remove descendants")
		assert.NoError(t, s.DeleteItem(ctx, folder.ID), "idempotent")
	})
}

func TestPostgresAddErrors(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	leaf, err := s.AddItem(ctx, nil, repositories.Draft{Name: "L", Kind: tree.KindLeaf})
	require.NoError(t, err)

	_, err = s.AddItem(ctx, ptr("2bb189e6-75ab-4b6a-9d2c-07b34b0a9c3c"), repositories.Draft{Name: "x", Kind: tree.KindLeaf})
	assert.ErrorIs(t, err, domain.ErrParentNotFound)

	_, err = s.AddItem(ctx, &leaf.ID, repositories.Draft{Name: "x", Kind: tree.KindLeaf})
	assert.ErrorIs(t, err, domain.ErrNotAFolder)
}

func TestPostgresMove(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a, err := s.AddItem(ctx, nil, repositories.Draft{Name: "a", Kind: tree.KindFolder})
	require.NoError(t, err)
	b, err := s.AddItem(ctx, &a.ID, repositories.Draft{Name: "b", Kind: tree.KindFolder})
	require.NoError(t, err)
	c, err := s.AddItem(ctx, &b.ID, repositories.Draft{Name: "c", Kind: tree.KindLeaf})
	require.NoError(t, err)
	d, err := s.AddItem(ctx, nil, repositories.Draft{Name: "d", Kind: tree.KindFolder})
	require.NoError(t, err)

	t.Run("cyclic", func(t *testing.T) {
		_, err := s.MoveItem(ctx, a.ID, &a.ID)
		assert.ErrorIs(t, err, domain.ErrCyclicMove)
		_, err = s.MoveItem(ctx, a.ID, &b.ID)
		assert.ErrorIs(t, err, domain.ErrCyclicMove)
	})

	t.Run("bad targets", func(t *testing.T) {
		_, err := s.MoveItem(ctx, b.ID, &c.ID)
		assert.ErrorIs(t, err, domain.ErrCyclicMove)
		_, err = s.MoveItem(ctx, d.ID, &c.ID)
		assert.ErrorIs(t, err, domain.ErrTargetNotFolder)
		_, err = s.MoveItem(ctx, "4f2d7b9a-58c1-4f7e-90aa-52f1bb6a6f01", &a.ID)
		assert.ErrorIs(t, err, domain.ErrItemNotFound)
	})

	t.Run("subtree travels", func(t *testing.T) {
		moved, err := s.MoveItem(ctx, b.ID, &d.ID)
		require.NoError(t, err)
		require.NotNil(t, moved.ParentID)
		assert.Equal(t, d.ID, *moved.ParentID)

		got, err := s.GetItem(ctx, d.ID)
		require.NoError(t, err)
		require.Len(t, got.Children, 1)
		require.Len(t, got.Children[0].Children, 1)
		assert.Equal(t, c.ID, got.Children[0].Children[0].ID)
	})

	t.Run("refreshes lastModified", func(t *testing.T) {
		before := time.Now().UnixMilli()
		moved, err := s.MoveItem(ctx, c.ID, nil)
		require.NoError(t, err)
		ts, ok := tree.LastModified(moved.Metadata)
		require.True(t, ok)
		assert.GreaterOrEqual(t, ts, before)
	})
}

func TestPostgresSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.AddItem(ctx, nil, repositories.Draft{
		Name: "Recipes", Kind: tree.KindLeaf, Content: "tomato soup\nmore tomato",
	})
	require.NoError(t, err)

	results, err := s.SearchItems(ctx, "tomato", nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Len(t, results[0].Matches, 2)
	assert.Equal(t, 1, results[0].Matches[0].StartColumn)
}

func TestPostgresVersionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	leaf, err := s.AddItem(ctx, nil, repositories.Draft{Name: "L", Kind: tree.KindLeaf, Content: "v1"})
	require.NoError(t, err)

	versions := []tree.Version{
		{ID: "v1", Timestamp: 100, Content: "v1", Label: "first"},
		{ID: "v2", Timestamp: 200, Content: "v2"},
	}
	got, err := s.UpdateItem(ctx, leaf.ID, repositories.Patch{Versions: &versions})
	require.NoError(t, err)
	require.Len(t, got.Versions, 2)

	reloaded, err := s.GetItem(ctx, leaf.ID)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%v", versions), fmt.Sprintf("%v", reloaded.Versions))
}
