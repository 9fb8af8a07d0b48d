// Package forest implements the structural primitives of the item tree:
// deterministic depth-first lookup, insertion, extraction and subtree
// removal over an ordered sequence of root items. It owns no locking and
// no lifecycle semantics; backends layer those on top.
package forest

import (
	"promptvault/internal/domain"
	"promptvault/internal/domain/models/tree"
)

// FindNode returns the first item with the given id in deterministic
// depth-first order: roots in sequence order, each root's children
// recursively before the next root. Ids are unique, so first match is the
// only match. Returns nil when the id does not resolve; an empty forest
// is never an error.
func FindNode(roots []*tree.Item, id string) *tree.Item {
	for _, n := range roots {
		if n.ID == id {
			return n
		}
		if found := FindNode(n.Children, id); found != nil {
			return found
		}
	}
	return nil
}

// Contains reports whether id names the root of the given subtree or any
// of its descendants. Used to reject cyclic moves before mutation.
func Contains(root *tree.Item, id string) bool {
	if root == nil {
		return false
	}
	if root.ID == id {
		return true
	}
	return FindNode(root.Children, id) != nil
}

// Insert appends item at root level (parentID nil) or to the located
// parent's children, returning the updated root sequence. The target must
// resolve to an existing folder: domain.ErrParentNotFound when the id is
// unknown, domain.ErrNotAFolder when it names a leaf. The forest is
// unchanged on failure.
func Insert(roots []*tree.Item, parentID *string, item *tree.Item) ([]*tree.Item, error) {
	if parentID == nil {
		item.ParentID = nil
		return append(roots, item), nil
	}
	parent := FindNode(roots, *parentID)
	if parent == nil {
		return roots, domain.ErrParentNotFound
	}
	if parent.Kind != tree.KindFolder {
		return roots, domain.ErrNotAFolder
	}
	pid := parent.ID
	item.ParentID = &pid
	parent.Children = append(parent.Children, item)
	return roots, nil
}

// IndexUnder returns the position of id among its siblings under
// parentID (the root sequence when nil), or -1 when it is not there.
func IndexUnder(roots []*tree.Item, parentID *string, id string) int {
	siblings := roots
	if parentID != nil {
		parent := FindNode(roots, *parentID)
		if parent == nil {
			return -1
		}
		siblings = parent.Children
	}
	for i, n := range siblings {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// InsertAt places item at a specific sibling index under parentID,
// restoring an extracted node to its exact original location. An
// out-of-range index appends; an unresolvable parent falls back to root
// level so the item is never lost.
func InsertAt(roots []*tree.Item, parentID *string, index int, item *tree.Item) []*tree.Item {
	if parentID == nil {
		item.ParentID = nil
		return spliceAt(roots, index, item)
	}
	parent := FindNode(roots, *parentID)
	if parent == nil || parent.Kind != tree.KindFolder {
		item.ParentID = nil
		return append(roots, item)
	}
	pid := parent.ID
	item.ParentID = &pid
	parent.Children = spliceAt(parent.Children, index, item)
	return roots
}

func spliceAt(items []*tree.Item, index int, item *tree.Item) []*tree.Item {
	if index < 0 || index > len(items) {
		index = len(items)
	}
	items = append(items, nil)
	copy(items[index+1:], items[index:])
	items[index] = item
	return items
}

// Extract removes the item with the given id from wherever it resides and
// returns it detached with its subtree intact, along with the updated
// root sequence. The detached item keeps its ParentID; callers re-parent
// it explicitly. Returns (roots, nil) when the id does not resolve.
func Extract(roots []*tree.Item, id string) ([]*tree.Item, *tree.Item) {
	for i, n := range roots {
		if n.ID == id {
			out := make([]*tree.Item, 0, len(roots)-1)
			out = append(out, roots[:i]...)
			out = append(out, roots[i+1:]...)
			return out, n
		}
		if children, found := Extract(n.Children, id); found != nil {
			n.Children = children
			return roots, found
		}
	}
	return roots, nil
}

// RemoveSubtree returns a new forest with the item and its entire subtree
// excluded. The path from the root sequence down to the removed node is
// copied rather than mutated, so a previously returned forest slice is
// never changed underneath a concurrent reader. Unknown ids return the
// input unchanged.
func RemoveSubtree(roots []*tree.Item, id string) []*tree.Item {
	out, _ := removeSubtree(roots, id)
	return out
}

func removeSubtree(nodes []*tree.Item, id string) ([]*tree.Item, bool) {
	for i, n := range nodes {
		if n.ID == id {
			out := make([]*tree.Item, 0, len(nodes)-1)
			out = append(out, nodes[:i]...)
			out = append(out, nodes[i+1:]...)
			return out, true
		}
	}
	for i, n := range nodes {
		if children, ok := removeSubtree(n.Children, id); ok {
			repl := *n
			repl.Children = children
			out := make([]*tree.Item, len(nodes))
			copy(out, nodes)
			out[i] = &repl
			return out, true
		}
	}
	return nodes, false
}

// Walk visits every item in deterministic depth-first order, calling fn
// for each. Traversal continues while fn returns true.
func Walk(roots []*tree.Item, fn func(*tree.Item) bool) bool {
	for _, n := range roots {
		if !fn(n) {
			return false
		}
		if !Walk(n.Children, fn) {
			return false
		}
	}
	return true
}

// Count returns the total number of items in the forest.
func Count(roots []*tree.Item) int {
	total := 0
	Walk(roots, func(*tree.Item) bool {
		total++
		return true
	})
	return total
}
