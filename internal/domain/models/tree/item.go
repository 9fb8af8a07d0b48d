package tree

// ItemKind categorizes the two kinds of items in the forest.
type ItemKind string

const (
	KindFolder ItemKind = "folder"
	KindLeaf   ItemKind = "leaf"
)

// Valid reports whether k is a known item kind.
func (k ItemKind) Valid() bool {
	return k == KindFolder || k == KindLeaf
}

// Version is an immutable snapshot of a leaf item's content.
// Snapshots are created only by explicit caller action, never implicitly
// on edit, and are appended most-recent-last.
type Version struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"` // epoch millis
	Content   string `json:"content"`
	Label     string `json:"label,omitempty"`
}

// Item is a single node in the forest. Folders carry an ordered Children
// slice (non-nil, possibly empty); leaves carry Content and leave Children
// nil. ParentID is a relational lookup key only; placement is owned by the
// store, not the item.
//
// Children uses omitzero rather than omitempty: a folder's empty slice
// must serialize as "children": [] while a leaf's nil slice stays absent,
// so the wire shape round-trips the folder/leaf distinction.
type Item struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Kind     ItemKind       `json:"kind"`
	ParentID *string        `json:"parentId,omitempty"`
	Children []*Item        `json:"children,omitzero"`
	Content  string         `json:"content,omitempty"`
	Versions []Version      `json:"versions,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Clone returns a deep copy of the item and its entire subtree. Returned
// values at the store boundary are always clones so callers cannot mutate
// the store through them.
func (it *Item) Clone() *Item {
	if it == nil {
		return nil
	}
	out := &Item{
		ID:      it.ID,
		Name:    it.Name,
		Kind:    it.Kind,
		Content: it.Content,
	}
	if it.ParentID != nil {
		pid := *it.ParentID
		out.ParentID = &pid
	}
	if it.Children != nil {
		out.Children = CloneForest(it.Children)
	}
	if it.Versions != nil {
		out.Versions = make([]Version, len(it.Versions))
		copy(out.Versions, it.Versions)
	}
	out.Metadata = CloneMetadata(it.Metadata)
	return out
}

// CloneForest deep-copies an ordered sequence of items.
func CloneForest(items []*Item) []*Item {
	if items == nil {
		return nil
	}
	out := make([]*Item, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

// Normalize repairs structural conventions after deserialization: folders
// get a non-nil Children slice, leaves drop any stray one, and ParentID is
// recomputed from actual placement.
func Normalize(items []*Item) {
	normalize(items, nil)
}

func normalize(items []*Item, parentID *string) {
	for _, it := range items {
		it.ParentID = parentID
		if it.Kind == KindFolder {
			if it.Children == nil {
				it.Children = []*Item{}
			}
			id := it.ID
			normalize(it.Children, &id)
		} else {
			it.Children = nil
		}
	}
}
