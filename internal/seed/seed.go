// Package seed loads a starter forest from a YAML file into any
// backend, for demos and local development.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"promptvault/internal/domain/models/tree"
	"promptvault/internal/domain/repositories"
)

// Node is one entry in a seed file. Children are only honored on
// folders.
type Node struct {
	Name     string         `yaml:"name"`
	Kind     string         `yaml:"kind"`
	Content  string         `yaml:"content"`
	Metadata map[string]any `yaml:"metadata"`
	Children []Node         `yaml:"children"`
}

// File is the top-level seed document.
type File struct {
	Items []Node `yaml:"items"`
}

// Seeder inserts seed forests through the normal store operations, so
// ids, timestamps, and sibling order come out exactly as live writes
// would produce them.
type Seeder struct {
	store  repositories.ItemStore
	logger *slog.Logger
}

// New creates a seeder over the given backend.
func New(store repositories.ItemStore, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{store: store, logger: logger}
}

// LoadFile parses a YAML seed file and inserts its forest at root level.
// Returns the number of items created.
func (s *Seeder) LoadFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}

	var doc File
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("parse seed file %s: %w", path, err)
	}

	count := 0
	for _, node := range doc.Items {
		n, err := s.insert(ctx, nil, node)
		if err != nil {
			return count, err
		}
		count += n
	}

	s.logger.Info("seed loaded", "path", path, "items", count)
	return count, nil
}

func (s *Seeder) insert(ctx context.Context, parentID *string, node Node) (int, error) {
	kind := tree.ItemKind(node.Kind)
	if node.Kind == "" {
		kind = tree.KindLeaf
		if len(node.Children) > 0 {
			kind = tree.KindFolder
		}
	}
	if !kind.Valid() {
		return 0, fmt.Errorf("seed node %q: invalid kind %q", node.Name, node.Kind)
	}
	if kind == tree.KindLeaf && len(node.Children) > 0 {
		return 0, fmt.Errorf("seed node %q: leaf items cannot have children", node.Name)
	}

	item, err := s.store.AddItem(ctx, parentID, repositories.Draft{
		Name:     node.Name,
		Kind:     kind,
		Content:  node.Content,
		Metadata: node.Metadata,
	})
	if err != nil {
		return 0, fmt.Errorf("seed node %q: %w", node.Name, err)
	}

	count := 1
	for _, child := range node.Children {
		n, err := s.insert(ctx, &item.ID, child)
		if err != nil {
			return count, err
		}
		count += n
	}
	return count, nil
}
