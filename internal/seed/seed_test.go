package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptvault/internal/domain/models/tree"
	"promptvault/internal/repository/memory"
)

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeSeed(t, `
items:
  - name: Writing
    kind: folder
    children:
      - name: Voice
        kind: leaf
        content: direct tone
        metadata:
          tags: [style]
  - name: Scratch
    kind: leaf
    content: notes
`)

	store := memory.New(nil)
	count, err := New(store, nil).LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	roots, err := store.ListItems(context.Background())
	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.Equal(t, "Writing", roots[0].Name)
	assert.Equal(t, tree.KindFolder, roots[0].Kind)
	require.Len(t, roots[0].Children, 1)

	leaf := roots[0].Children[0]
	assert.Equal(t, "direct tone", leaf.Content)
	_, ok := tree.LastModified(leaf.Metadata)
	assert.True(t, ok, "seeded items get timestamps like live writes")
}

func TestLoadFileInfersKind(t *testing.T) {
	path := writeSeed(t, `
items:
  - name: Implicit folder
    children:
      - name: Implicit leaf
`)

	store := memory.New(nil)
	count, err := New(store, nil).LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	roots, _ := store.ListItems(context.Background())
	assert.Equal(t, tree.KindFolder, roots[0].Kind)
	assert.Equal(t, tree.KindLeaf, roots[0].Children[0].Kind)
}

func TestLoadFileRejectsBadNodes(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"invalid kind", "items:\n  - name: x\n    kind: directory\n"},
		{"leaf with children", "items:\n  - name: x\n    kind: leaf\n    children:\n      - name: y\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSeed(t, tt.yaml)
			_, err := New(memory.New(nil), nil).LoadFile(context.Background(), path)
			assert.Error(t, err)
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := New(memory.New(nil), nil).LoadFile(context.Background(), "no/such/file.yaml")
	assert.Error(t, err)
}
