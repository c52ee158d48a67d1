package model

import (
	"strings"
	"testing"
	"time"
)

func TestNewItemID(t *testing.T) {
	tests := []struct {
		name string
		conv string
		at   time.Time
		want string
	}{
		{"normal", "chat-1", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), "chat-1_"},
		{"zero time", "chat-1", time.Time{}, "chat-1_"},
		{"before epoch", "chat-1", time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC), "chat-1_"},
		{"empty conversation", "", time.Now(), "unknown_"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := NewItemID(tt.conv, tt.at)
			if !strings.HasPrefix(id, tt.want) {
				t.Errorf("got %q, want prefix %q", id, tt.want)
			}
			if len(id) != len(tt.want)+26 {
				t.Errorf("expected 26-char ulid suffix, got %q", id)
			}
		})
	}
}

func TestNewItemIDUnique(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	seen := map[string]bool{}
	for range 100 {
		id := NewItemID("c", at)
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
