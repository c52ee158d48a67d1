package store

import (
	"strings"
	"testing"
	"time"
)

func TestDecodeDocumentDefaults(t *testing.T) {
	raw := `{
		"lastUpdatedAt": 1700000000000,
		"items": [
			{"id": "c1_1", "conversationId": "c1", "extractedText": "Gate code 4411", "createdAt": 1700000000000},
			{"conversationId": "c2", "extractedText": "   "},
			{"id": "c3_1", "extractedText": "Likes jazz", "category": "interest", "confidence": 7}
		]
	}`
	doc, err := DecodeDocument([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Items) != 2 {
		t.Fatalf("expected blank item dropped, got %d items", len(doc.Items))
	}
	first := doc.Items[0]
	if first.Category != "general" || first.Confidence != 1.0 || first.SenderName != "" {
		t.Errorf("defaults not applied: %+v", first)
	}
	if !first.CreatedAt.Equal(time.UnixMilli(1700000000000)) {
		t.Errorf("created_at: got %v", first.CreatedAt)
	}
	if doc.Items[1].Confidence != 1 {
		t.Errorf("expected confidence clamped to 1, got %v", doc.Items[1].Confidence)
	}
}

func TestDecodeDocumentLegacyFieldNames(t *testing.T) {
	raw := `{"lastUpdated": 1600000000000, "items": [
		{"id": "g_1", "conversationGuid": "g", "extractedInfo": "Meeting at 3pm",
		 "originalMessage": "see you at 3pm", "timestamp": 1600000000000, "category": "event", "confidence": 0.9}
	]}`
	doc, err := DecodeDocument([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(doc.Items))
	}
	it := doc.Items[0]
	if it.ConversationID != "g" || it.ExtractedText != "Meeting at 3pm" || it.OriginalMessageText != "see you at 3pm" {
		t.Errorf("legacy fields not mapped: %+v", it)
	}
	if doc.LastUpdatedAt.UnixMilli() != 1600000000000 {
		t.Errorf("lastUpdated not mapped: %v", doc.LastUpdatedAt)
	}
}

func TestDecodeDocumentGeneratesMissingID(t *testing.T) {
	doc, err := DecodeDocument([]byte(`{"items":[{"conversationId":"z","extractedText":"x"}]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(doc.Items[0].ID, "z_") {
		t.Errorf("expected generated id with conversation prefix, got %q", doc.Items[0].ID)
	}
	if !doc.Items[0].CreatedAt.IsZero() {
		t.Errorf("expected zero created_at without lastUpdatedAt, got %v", doc.Items[0].CreatedAt)
	}
}

func TestDecodeDocumentMissingTimestamps(t *testing.T) {
	doc, err := DecodeDocument([]byte(`{"lastUpdatedAt": 1700000000000, "items":[
		{"extractedText":"Meeting at 3pm"},
		{"conversationId":"a","extractedText":"Door code 4821"}
	]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(doc.Items))
	}
	for _, it := range doc.Items {
		if it.ID == "" {
			t.Errorf("expected generated id for %q", it.ExtractedText)
		}
		if !it.CreatedAt.Equal(time.UnixMilli(1700000000000)) {
			t.Errorf("expected created_at from lastUpdatedAt, got %v", it.CreatedAt)
		}
	}
	if doc.Items[0].ID == doc.Items[1].ID {
		t.Errorf("expected distinct ids, got %q twice", doc.Items[0].ID)
	}
}

func TestDecodeDocumentRejectsGarbage(t *testing.T) {
	if _, err := DecodeDocument([]byte("[1,2")); err == nil {
		t.Error("expected error")
	}
}
