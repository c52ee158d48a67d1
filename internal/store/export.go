package store

import (
	"context"
	"fmt"
	"io"

	"github.com/rcliao/msg-memory/internal/model"
)

// Export writes the memory collection to w in the on-disk document format.
func Export(ctx context.Context, s MemoryStore, w io.Writer) error {
	doc, err := s.Document(ctx)
	if err != nil {
		return err
	}
	data, err := EncodeDocument(*doc)
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// ImportParams controls Import.
type ImportParams struct {
	// Merge keeps existing items and adds imported ones with unseen ids.
	// Otherwise the collection is replaced.
	Merge bool
	Limit int
}

// ImportResult reports what Import did.
type ImportResult struct {
	Read   int `json:"read"`
	Added  int `json:"added"`
	Stored int `json:"stored"`
}

// Import loads a document from r into s and enforces the capacity limit.
func Import(ctx context.Context, s MemoryStore, r io.Reader, p ImportParams) (*ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read import: %w", err)
	}
	incoming, err := DecodeDocument(data)
	if err != nil {
		return nil, err
	}
	res := &ImportResult{Read: len(incoming.Items)}

	doc := model.Document{Items: []model.MemoryItem{}}
	if p.Merge {
		cur, err := s.Document(ctx)
		if err != nil {
			return nil, err
		}
		doc.Items = append(doc.Items, cur.Items...)
	}
	seen := make(map[string]bool, len(doc.Items))
	for _, it := range doc.Items {
		seen[it.ID] = true
	}
	for _, it := range incoming.Items {
		if seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		doc.Items = append(doc.Items, it)
		res.Added++
	}

	doc.Items = evictOldest(doc.Items, p.Limit)
	res.Stored = len(doc.Items)
	if err := s.Replace(ctx, doc); err != nil {
		return nil, err
	}
	return res, nil
}
