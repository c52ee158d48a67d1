package store

import (
	"sort"
	"strings"

	"github.com/rcliao/msg-memory/internal/model"
)

// newestFirst returns the indexes of items ordered by CreatedAt descending.
// Items with equal timestamps are ordered by append position, later first.
func newestFirst(items []model.MemoryItem) []int {
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ta, tb := items[idx[a]].CreatedAt, items[idx[b]].CreatedAt
		if !ta.Equal(tb) {
			return ta.After(tb)
		}
		return idx[a] > idx[b]
	})
	return idx
}

// sortedNewestFirst returns a copy of items, newest first.
func sortedNewestFirst(items []model.MemoryItem) []model.MemoryItem {
	out := make([]model.MemoryItem, 0, len(items))
	for _, i := range newestFirst(items) {
		out = append(out, items[i])
	}
	return out
}

// evictOldest keeps the limit newest items and preserves the append order
// of the survivors. Both Append and TrimToLimit use it, so there is a single
// eviction policy.
func evictOldest(items []model.MemoryItem, limit int) []model.MemoryItem {
	if limit < 0 {
		limit = 0
	}
	if len(items) <= limit {
		return items
	}
	keep := make([]bool, len(items))
	for _, i := range newestFirst(items)[:limit] {
		keep[i] = true
	}
	out := make([]model.MemoryItem, 0, limit)
	for i, it := range items {
		if keep[i] {
			out = append(out, it)
		}
	}
	return out
}

// selectRelevant applies a relevance query to an in-memory collection.
func selectRelevant(items []model.MemoryItem, p RelevantParams) []model.MemoryItem {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultRelevantLimit
	}
	query := strings.ToLower(strings.TrimSpace(p.Query))

	out := []model.MemoryItem{}
	for _, it := range sortedNewestFirst(items) {
		if p.ExcludeConversationID != "" && it.ConversationID == p.ExcludeConversationID {
			continue
		}
		if query != "" && !matchesQuery(it, query) {
			continue
		}
		out = append(out, it)
		if len(out) == limit {
			break
		}
	}
	return out
}

func matchesQuery(it model.MemoryItem, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(it.ExtractedText), lowerQuery) ||
		strings.Contains(strings.ToLower(it.OriginalMessageText), lowerQuery) ||
		strings.Contains(strings.ToLower(it.Category), lowerQuery)
}
