package tree

import (
	"fmt"
	"time"
)

// DateFilter restricts search results to items mutated within a window
// ending now.
type DateFilter string

const (
	DateAny   DateFilter = "any"
	DateToday DateFilter = "today" // within 1 day
	DateWeek  DateFilter = "week"  // within 7 days
	DateMonth DateFilter = "month" // within 30 days
)

// Valid reports whether d is a known date filter. The empty string is
// valid and means "any".
func (d DateFilter) Valid() bool {
	switch d {
	case "", DateAny, DateToday, DateWeek, DateMonth:
		return true
	}
	return false
}

// Window returns the filter's duration. ok is false for "any" (no
// restriction).
func (d DateFilter) Window() (time.Duration, bool) {
	switch d {
	case DateToday:
		return 24 * time.Hour, true
	case DateWeek:
		return 7 * 24 * time.Hour, true
	case DateMonth:
		return 30 * 24 * time.Hour, true
	}
	return 0, false
}

// SearchFilters narrows which items are eligible to produce results.
// Filtering never stops descent: an excluded folder is still traversed so
// matching descendants are found.
type SearchFilters struct {
	// Kinds restricts results to the listed kinds when non-empty.
	Kinds []ItemKind `json:"kinds,omitempty"`
	// Date restricts results by metadata.lastModified. Items without a
	// timestamp are treated as epoch 0, outside every window but "any".
	Date DateFilter `json:"date,omitempty"`
}

// Validate checks filter values. Nil filters are always valid.
func (f *SearchFilters) Validate() error {
	if f == nil {
		return nil
	}
	for _, k := range f.Kinds {
		if !k.Valid() {
			return fmt.Errorf("unknown item kind %q", k)
		}
	}
	if !f.Date.Valid() {
		return fmt.Errorf("unknown date filter %q", f.Date)
	}
	return nil
}

// SearchMatch is a single substring occurrence in a leaf's content,
// reported with a 1-indexed line number, 1-indexed inclusive start column
// and exclusive end column.
type SearchMatch struct {
	LineContent string `json:"lineContent"`
	LineNumber  int    `json:"lineNumber"`
	StartColumn int    `json:"startColumn"`
	EndColumn   int    `json:"endColumn"`
}

// SearchResult reports one matching item in traversal order. Matches is
// empty when only the name matched.
type SearchResult struct {
	ItemID       string        `json:"itemId"`
	ItemName     string        `json:"itemName"`
	ItemKind     ItemKind      `json:"itemKind"`
	Matches      []SearchMatch `json:"matches"`
	LastModified *int64        `json:"lastModified,omitempty"`
}
