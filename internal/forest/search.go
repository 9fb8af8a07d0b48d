package forest

import (
	"strings"
	"time"

	"promptvault/internal/domain/models/tree"
)

// Search performs the recursive, case-insensitive full-text search over
// the forest. Results follow the same deterministic depth-first order as
// FindNode: traversal order, not relevance. A trimmed-empty query
// returns an empty list without traversing. Filters restrict which items
// may produce results but never stop descent into a folder's children, so
// deeply nested matches are found even under excluded ancestors. now
// anchors the date-filter windows.
func Search(roots []*tree.Item, query string, filters *tree.SearchFilters, now time.Time) []tree.SearchResult {
	results := []tree.SearchResult{}
	if strings.TrimSpace(query) == "" {
		return results
	}
	lowered := strings.ToLower(query)
	searchRecursive(roots, lowered, filters, now, &results)
	return results
}

func searchRecursive(nodes []*tree.Item, query string, filters *tree.SearchFilters, now time.Time, results *[]tree.SearchResult) {
	for _, n := range nodes {
		if eligible(n, filters, now) {
			matches := []tree.SearchMatch{}
			isMatch := strings.Contains(strings.ToLower(n.Name), query)

			if n.Kind == tree.KindLeaf && n.Content != "" {
				matches = MatchContent(n.Content, query)
				if len(matches) > 0 {
					isMatch = true
				}
			}

			if isMatch {
				result := tree.SearchResult{
					ItemID:   n.ID,
					ItemName: n.Name,
					ItemKind: n.Kind,
					Matches:  matches,
				}
				if ts, ok := tree.LastModified(n.Metadata); ok {
					result.LastModified = &ts
				}
				*results = append(*results, result)
			}
		}

		searchRecursive(n.Children, query, filters, now, results)
	}
}

// eligible applies the kind and date filters. An item with no
// lastModified is treated as timestamp 0, outside every window narrower
// than "any".
func eligible(n *tree.Item, filters *tree.SearchFilters, now time.Time) bool {
	if filters == nil {
		return true
	}
	if len(filters.Kinds) > 0 {
		found := false
		for _, k := range filters.Kinds {
			if n.Kind == k {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if window, ok := filters.Date.Window(); ok {
		ts, _ := tree.LastModified(n.Metadata)
		modified := time.UnixMilli(ts)
		if now.Sub(modified) > window {
			return false
		}
	}
	return true
}

// MatchContent scans content line by line for every occurrence of the
// already-lowercased query, reporting 1-indexed line numbers, 1-indexed
// inclusive start columns and exclusive end columns. After each hit the
// scan advances by exactly one character, so occurrences of a repeating
// pattern that overlap are all reported rather than skipped; this
// duplicate-permitting behavior is part of the contract.
func MatchContent(content, query string) []tree.SearchMatch {
	matches := []tree.SearchMatch{}
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lowered := strings.ToLower(line)
		start := 0
		for {
			idx := strings.Index(lowered[start:], query)
			if idx < 0 {
				break
			}
			abs := start + idx
			matches = append(matches, tree.SearchMatch{
				LineContent: line,
				LineNumber:  i + 1,
				StartColumn: abs + 1,
				EndColumn:   abs + 1 + len(query),
			})
			start = abs + 1
		}
	}
	return matches
}
