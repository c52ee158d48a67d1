package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/msg-memory/internal/model"
)

// On-disk memory document. Timestamps are Unix milliseconds. Decoding also
// accepts the field names written by earlier releases (lastUpdated,
// conversationGuid, extractedInfo, originalMessage, timestamp).

type docItemOut struct {
	ID                  string  `json:"id"`
	ConversationID      string  `json:"conversationId"`
	ConversationTitle   *string `json:"conversationTitle"`
	ExtractedText       string  `json:"extractedText"`
	OriginalMessageText string  `json:"originalMessageText"`
	SenderName          *string `json:"senderName"`
	CreatedAt           int64   `json:"createdAt"`
	Category            string  `json:"category"`
	Confidence          float64 `json:"confidence"`
}

type docOut struct {
	LastUpdatedAt int64        `json:"lastUpdatedAt"`
	Items         []docItemOut `json:"items"`
}

type docItemIn struct {
	ID                  string   `json:"id"`
	ConversationID      string   `json:"conversationId"`
	ConversationGUID    string   `json:"conversationGuid"`
	ConversationTitle   *string  `json:"conversationTitle"`
	ExtractedText       string   `json:"extractedText"`
	ExtractedInfo       string   `json:"extractedInfo"`
	OriginalMessageText string   `json:"originalMessageText"`
	OriginalMessage     string   `json:"originalMessage"`
	SenderName          *string  `json:"senderName"`
	CreatedAt           *int64   `json:"createdAt"`
	Timestamp           *int64   `json:"timestamp"`
	Category            *string  `json:"category"`
	Confidence          *float64 `json:"confidence"`
}

type docIn struct {
	LastUpdatedAt *int64      `json:"lastUpdatedAt"`
	LastUpdated   *int64      `json:"lastUpdated"`
	Items         []docItemIn `json:"items"`
}

// EncodeDocument renders doc in the on-disk format.
func EncodeDocument(doc model.Document) ([]byte, error) {
	out := docOut{
		LastUpdatedAt: toMillis(doc.LastUpdatedAt),
		Items:         make([]docItemOut, len(doc.Items)),
	}
	for i, it := range doc.Items {
		out.Items[i] = docItemOut{
			ID:                  it.ID,
			ConversationID:      it.ConversationID,
			ConversationTitle:   optional(it.ConversationTitle),
			ExtractedText:       it.ExtractedText,
			OriginalMessageText: it.OriginalMessageText,
			SenderName:          optional(it.SenderName),
			CreatedAt:           toMillis(it.CreatedAt),
			Category:            it.Category,
			Confidence:          it.Confidence,
		}
	}
	return json.MarshalIndent(out, "", "  ")
}

// DecodeDocument parses the on-disk format. Missing fields take defaults:
// empty strings, category "general", confidence 1.0, createdAt from the
// document's lastUpdatedAt. Items with no extracted text are dropped.
func DecodeDocument(data []byte) (model.Document, error) {
	var in docIn
	if err := json.Unmarshal(data, &in); err != nil {
		return model.Document{}, fmt.Errorf("decode memory document: %w", err)
	}

	doc := model.Document{Items: make([]model.MemoryItem, 0, len(in.Items))}
	switch {
	case in.LastUpdatedAt != nil:
		doc.LastUpdatedAt = fromMillis(*in.LastUpdatedAt)
	case in.LastUpdated != nil:
		doc.LastUpdatedAt = fromMillis(*in.LastUpdated)
	}

	for _, it := range in.Items {
		item := model.MemoryItem{
			ID:                  it.ID,
			ConversationID:      firstNonEmpty(it.ConversationID, it.ConversationGUID),
			ExtractedText:       firstNonEmpty(it.ExtractedText, it.ExtractedInfo),
			OriginalMessageText: firstNonEmpty(it.OriginalMessageText, it.OriginalMessage),
			Category:            model.CategoryGeneral,
			Confidence:          1.0,
		}
		if strings.TrimSpace(item.ExtractedText) == "" {
			continue
		}
		if it.ConversationTitle != nil {
			item.ConversationTitle = *it.ConversationTitle
		}
		if it.SenderName != nil {
			item.SenderName = *it.SenderName
		}
		switch {
		case it.CreatedAt != nil:
			item.CreatedAt = fromMillis(*it.CreatedAt)
		case it.Timestamp != nil:
			item.CreatedAt = fromMillis(*it.Timestamp)
		default:
			item.CreatedAt = doc.LastUpdatedAt
		}
		if it.Category != nil && *it.Category != "" {
			item.Category = *it.Category
		}
		if it.Confidence != nil {
			item.Confidence = clampConfidence(*it.Confidence)
		}
		if item.ID == "" {
			item.ID = model.NewItemID(item.ConversationID, item.CreatedAt)
		}
		doc.Items = append(doc.Items, item)
	}
	return doc, nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}
