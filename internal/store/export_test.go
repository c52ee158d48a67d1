package store

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rcliao/msg-memory/internal/model"
)

func TestExportImportBetweenBackends(t *testing.T) {
	ctx := context.Background()
	src := newTestJSONStore(t)
	src.Append(ctx, testItem("A", "alpha", 0), 10)
	src.Append(ctx, testItem("B", "beta", time.Minute), 10)

	var buf bytes.Buffer
	if err := Export(ctx, src, &buf); err != nil {
		t.Fatalf("export: %v", err)
	}

	dst := newTestStore(t)
	dst.Append(ctx, testItem("C", "existing", 2*time.Minute), 10)

	res, err := Import(ctx, dst, bytes.NewReader(buf.Bytes()), ImportParams{Merge: true, Limit: 10})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Read != 2 || res.Added != 2 || res.Stored != 3 {
		t.Errorf("unexpected result: %+v", res)
	}

	// Re-importing the same document adds nothing.
	res, _ = Import(ctx, dst, bytes.NewReader(buf.Bytes()), ImportParams{Merge: true, Limit: 10})
	if res.Added != 0 || res.Stored != 3 {
		t.Errorf("expected idempotent merge, got %+v", res)
	}
}

func TestImportReplaceRespectsLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestJSONStore(t)
	s.Append(ctx, testItem("Z", "gone", 0), 10)

	doc := model.Document{}
	for i := range 5 {
		doc.Items = append(doc.Items, testItem("A", "i", time.Duration(i)*time.Second))
	}
	data, _ := EncodeDocument(doc)

	res, err := Import(ctx, s, strings.NewReader(string(data)), ImportParams{Limit: 2})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Stored != 2 {
		t.Errorf("expected 2 stored, got %d", res.Stored)
	}
	all, _ := s.ListAll(ctx)
	for _, it := range all {
		if it.ConversationID == "Z" {
			t.Error("replace import kept old item")
		}
	}
}

func TestComputeStats(t *testing.T) {
	ctx := context.Background()
	s := newTestJSONStore(t)
	a := testItem("A", "x", 0)
	a.Category = model.CategoryCode
	a.Confidence = 0.5
	s.Append(ctx, a, 10)
	s.Append(ctx, testItem("A", "y", time.Second), 10)
	s.Append(ctx, testItem("B", "z", 2*time.Second), 10)

	st, err := ComputeStats(ctx, s, "json", s.Path())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalItems != 3 || st.SizeBytes == 0 || st.LastUpdatedAt == nil {
		t.Errorf("unexpected totals: %+v", st)
	}
	if st.Categories[0].Category != model.CategoryFact || st.Categories[0].Count != 2 {
		t.Errorf("unexpected categories: %+v", st.Categories)
	}
	if st.Conversations[0].ConversationID != "A" || st.Conversations[0].Title != "Chat A" {
		t.Errorf("unexpected conversations: %+v", st.Conversations)
	}
}
