// Package model defines the core memory data types.
package model

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Well-known categories. Providers return free-form values, so Category is
// not restricted to this set.
const (
	CategoryCode      = "code"
	CategoryEvent     = "event"
	CategoryLocation  = "location"
	CategoryTime      = "time"
	CategoryPerson    = "person"
	CategoryPlan      = "plan"
	CategoryFact      = "fact"
	CategoryInterest  = "interest"
	CategoryGeneral   = "general"
	CategoryExtracted = "extracted"
)

// DefaultMessageLimit is the memory capacity used when none is configured.
const DefaultMessageLimit = 50

// MemoryItem is a fact extracted from a single message.
type MemoryItem struct {
	ID                  string    `json:"id"`
	ConversationID      string    `json:"conversation_id"`
	ConversationTitle   string    `json:"conversation_title,omitempty"`
	ExtractedText       string    `json:"extracted_text"`
	OriginalMessageText string    `json:"original_message_text"`
	SenderName          string    `json:"sender_name,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	Category            string    `json:"category"`
	Confidence          float64   `json:"confidence"`
}

// Document is the full persisted memory collection. Items are kept in
// append order.
type Document struct {
	Items         []MemoryItem `json:"items"`
	LastUpdatedAt time.Time    `json:"last_updated_at"`
}

var (
	idMu      sync.Mutex
	idEntropy = ulid.Monotonic(rand.Reader, 0)
)

// NewItemID derives a memory id from the conversation id and creation time.
// Times outside the ulid range, including the zero time, use the current time.
// The ulid suffix keeps ids unique for items created in the same millisecond.
func NewItemID(conversationID string, t time.Time) string {
	if conversationID == "" {
		conversationID = "unknown"
	}
	idMu.Lock()
	defer idMu.Unlock()
	ms := ulid.Now()
	if t.After(time.UnixMilli(0)) && !t.After(ulid.Time(ulid.MaxTime())) {
		ms = ulid.Timestamp(t)
	}
	id, err := ulid.New(ms, idEntropy)
	if err != nil {
		id = ulid.Make()
	}
	return conversationID + "_" + id.String()
}
