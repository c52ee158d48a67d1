package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/rcliao/msg-memory/internal/model"
)

// backends opens a fresh store of each kind per rapid iteration.
func backends(t *testing.T) map[string]func(rt *rapid.T) MemoryStore {
	dir := t.TempDir()
	var n atomic.Int64
	return map[string]func(rt *rapid.T) MemoryStore{
		"json": func(rt *rapid.T) MemoryStore {
			s, err := NewJSONStore(filepath.Join(dir, fmt.Sprintf("m%d.json", n.Add(1))), nil)
			if err != nil {
				rt.Fatalf("json store: %v", err)
			}
			return s
		},
		"sqlite": func(rt *rapid.T) MemoryStore {
			s, err := NewSQLiteStore(filepath.Join(dir, fmt.Sprintf("m%d.db", n.Add(1))))
			if err != nil {
				rt.Fatalf("sqlite store: %v", err)
			}
			return s
		},
	}
}

func itemGen(offsetMillis *rapid.Generator[int64]) *rapid.Generator[model.MemoryItem] {
	return rapid.Custom(func(rt *rapid.T) model.MemoryItem {
		conv := rapid.SampledFrom([]string{"A", "B", "C"}).Draw(rt, "conv")
		created := baseTime.Add(time.Duration(offsetMillis.Draw(rt, "offset")) * time.Millisecond)
		return model.MemoryItem{
			ID:                  model.NewItemID(conv, created),
			ConversationID:      conv,
			ExtractedText:       rapid.SampledFrom([]string{"code 1234", "lunch Friday", "likes tea"}).Draw(rt, "text"),
			OriginalMessageText: "msg",
			CreatedAt:           created,
			Category:            model.CategoryGeneral,
			Confidence:          1,
		}
	})
}

func TestPropertyCapacityNeverExceeded(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			rapid.Check(t, func(rt *rapid.T) {
				ctx := context.Background()
				s := open(rt)
				defer s.Close()

				limit := rapid.IntRange(0, 8).Draw(rt, "limit")
				items := rapid.SliceOfN(itemGen(rapid.Int64Range(0, 100000)), 0, 20).Draw(rt, "items")
				for _, it := range items {
					if err := s.Append(ctx, it, limit); err != nil {
						rt.Fatalf("append: %v", err)
					}
					all, _ := s.ListAll(ctx)
					if len(all) > limit {
						rt.Fatalf("len %d exceeds limit %d", len(all), limit)
					}
				}
			})
		})
	}
}

func TestPropertyAppendedItemIsMostRecent(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			rapid.Check(t, func(rt *rapid.T) {
				ctx := context.Background()
				s := open(rt)
				defer s.Close()

				limit := rapid.IntRange(1, 8).Draw(rt, "limit")
				steps := rapid.SliceOfN(rapid.Int64Range(0, 5), 1, 15).Draw(rt, "steps")
				var offset int64
				for i, step := range steps {
					offset += step
					it := testItem("A", fmt.Sprintf("item %d", i), time.Duration(offset)*time.Millisecond)
					if err := s.Append(ctx, it, limit); err != nil {
						rt.Fatalf("append: %v", err)
					}
					all, _ := s.ListAll(ctx)
					if len(all) == 0 || all[0].ID != it.ID {
						rt.Fatalf("appended item %s is not most recent", it.ID)
					}
				}
			})
		})
	}
}

func TestPropertyTrimKeepsNewest(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			rapid.Check(t, func(rt *rapid.T) {
				ctx := context.Background()
				s := open(rt)
				defer s.Close()

				offsets := rapid.SliceOfNDistinct(rapid.Int64Range(0, 1000000), 1, 20,
					func(v int64) int64 { return v }).Draw(rt, "offsets")
				n := rapid.IntRange(0, len(offsets)).Draw(rt, "n")

				var items []model.MemoryItem
				for i, off := range offsets {
					it := testItem([]string{"A", "B"}[i%2], "x", time.Duration(off)*time.Millisecond)
					items = append(items, it)
					if err := s.Append(ctx, it, len(offsets)); err != nil {
						rt.Fatalf("append: %v", err)
					}
				}
				if err := s.TrimToLimit(ctx, n); err != nil {
					rt.Fatalf("trim: %v", err)
				}

				sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
				want := map[string]bool{}
				for _, it := range items[:n] {
					want[it.ID] = true
				}
				all, _ := s.ListAll(ctx)
				if len(all) != n {
					rt.Fatalf("expected %d items, got %d", n, len(all))
				}
				for _, it := range all {
					if !want[it.ID] {
						rt.Fatalf("kept %s which is not among the %d newest", it.ID, n)
					}
				}
			})
		})
	}
}

func TestPropertyRelevantExcludesConversation(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			rapid.Check(t, func(rt *rapid.T) {
				ctx := context.Background()
				s := open(rt)
				defer s.Close()

				items := rapid.SliceOfN(itemGen(rapid.Int64Range(0, 100000)), 0, 20).Draw(rt, "items")
				for _, it := range items {
					s.Append(ctx, it, 50)
				}
				exclude := rapid.SampledFrom([]string{"A", "B", "C"}).Draw(rt, "exclude")
				query := rapid.SampledFrom([]string{"", "code", "LUNCH", "general"}).Draw(rt, "query")

				got, err := s.QueryRelevant(ctx, RelevantParams{ExcludeConversationID: exclude, Query: query})
				if err != nil {
					rt.Fatalf("query: %v", err)
				}
				if len(got) > DefaultRelevantLimit {
					rt.Fatalf("returned %d items", len(got))
				}
				for i, it := range got {
					if it.ConversationID == exclude {
						rt.Fatalf("returned item from excluded conversation %s", exclude)
					}
					if i > 0 && it.CreatedAt.After(got[i-1].CreatedAt) {
						rt.Fatalf("results not sorted newest first")
					}
				}
			})
		})
	}
}

func TestPropertyClearAllEmpties(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			rapid.Check(t, func(rt *rapid.T) {
				ctx := context.Background()
				s := open(rt)
				defer s.Close()

				for _, it := range rapid.SliceOfN(itemGen(rapid.Int64Range(0, 1000)), 0, 10).Draw(rt, "items") {
					s.Append(ctx, it, 50)
				}
				if err := s.ClearAll(ctx); err != nil {
					rt.Fatalf("clear: %v", err)
				}
				all, _ := s.ListAll(ctx)
				doc, _ := s.Document(ctx)
				if len(all) != 0 || len(doc.Items) != 0 {
					rt.Fatalf("store not empty after clear")
				}
			})
		})
	}
}
