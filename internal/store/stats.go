package store

import (
	"context"
	"math"
	"os"
	"sort"
	"time"
)

// Stats summarizes the memory collection.
type Stats struct {
	Backend       string              `json:"backend"`
	Path          string              `json:"path"`
	SizeBytes     int64               `json:"size_bytes"`
	TotalItems    int                 `json:"total_items"`
	LastUpdatedAt *time.Time          `json:"last_updated_at,omitempty"`
	Categories    []CategoryStats     `json:"categories"`
	Conversations []ConversationStats `json:"conversations"`
}

// CategoryStats holds per-category counts.
type CategoryStats struct {
	Category      string  `json:"category"`
	Count         int     `json:"count"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// ConversationStats holds per-conversation counts.
type ConversationStats struct {
	ConversationID string `json:"conversation_id"`
	Title          string `json:"title,omitempty"`
	Count          int    `json:"count"`
}

// ComputeStats builds Stats for any MemoryStore. path is reported and sized
// when it points at a file.
func ComputeStats(ctx context.Context, s MemoryStore, backend, path string) (*Stats, error) {
	doc, err := s.Document(ctx)
	if err != nil {
		return nil, err
	}

	st := &Stats{
		Backend:       backend,
		Path:          path,
		TotalItems:    len(doc.Items),
		Categories:    []CategoryStats{},
		Conversations: []ConversationStats{},
	}
	if info, err := os.Stat(path); err == nil {
		st.SizeBytes = info.Size()
	}
	if !doc.LastUpdatedAt.IsZero() {
		t := doc.LastUpdatedAt
		st.LastUpdatedAt = &t
	}

	cats := map[string]*CategoryStats{}
	convs := map[string]*ConversationStats{}
	for _, it := range doc.Items {
		c, ok := cats[it.Category]
		if !ok {
			c = &CategoryStats{Category: it.Category}
			cats[it.Category] = c
		}
		c.Count++
		c.AvgConfidence += it.Confidence

		cv, ok := convs[it.ConversationID]
		if !ok {
			cv = &ConversationStats{ConversationID: it.ConversationID}
			convs[it.ConversationID] = cv
		}
		cv.Count++
		if it.ConversationTitle != "" {
			cv.Title = it.ConversationTitle
		}
	}

	for _, c := range cats {
		c.AvgConfidence = math.Round(c.AvgConfidence/float64(c.Count)*100) / 100
		st.Categories = append(st.Categories, *c)
	}
	for _, cv := range convs {
		st.Conversations = append(st.Conversations, *cv)
	}
	sort.Slice(st.Categories, func(i, j int) bool {
		if st.Categories[i].Count != st.Categories[j].Count {
			return st.Categories[i].Count > st.Categories[j].Count
		}
		return st.Categories[i].Category < st.Categories[j].Category
	})
	sort.Slice(st.Conversations, func(i, j int) bool {
		if st.Conversations[i].Count != st.Conversations[j].Count {
			return st.Conversations[i].Count > st.Conversations[j].Count
		}
		return st.Conversations[i].ConversationID < st.Conversations[j].ConversationID
	})
	return st, nil
}
