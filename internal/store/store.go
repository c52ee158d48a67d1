// Package store persists memory items, 2FA codes and the conversation
// history the pipeline reads from.
package store

import (
	"context"

	"github.com/rcliao/msg-memory/internal/model"
)

// DefaultRelevantLimit is the number of items QueryRelevant returns when no
// limit is given.
const DefaultRelevantLimit = 10

// RelevantParams holds parameters for a relevance query.
type RelevantParams struct {
	// ExcludeConversationID drops items from this conversation.
	ExcludeConversationID string
	// Query, when set, keeps items whose extracted text, original text or
	// category contains it (case-insensitive).
	Query string
	Limit int
}

// MemoryStore is a capacity-bounded collection of memory items. Every
// mutating call leaves at most limit items behind.
type MemoryStore interface {
	// Append adds item and evicts the oldest items beyond limit.
	Append(ctx context.Context, item model.MemoryItem, limit int) error

	// QueryRelevant returns the newest items matching p.
	QueryRelevant(ctx context.Context, p RelevantParams) ([]model.MemoryItem, error)

	// ListAll returns every item, newest first.
	ListAll(ctx context.Context) ([]model.MemoryItem, error)

	// ClearAll removes every item.
	ClearAll(ctx context.Context) error

	// TrimToLimit keeps only the limit newest items.
	TrimToLimit(ctx context.Context, limit int) error

	// Document returns the full collection in append order.
	Document(ctx context.Context) (*model.Document, error)

	// Replace overwrites the collection with doc.
	Replace(ctx context.Context, doc model.Document) error

	Close() error
}

// MessageSource is the read side of the conversation history.
type MessageSource interface {
	Conversations(ctx context.Context) ([]model.Conversation, error)
	Messages(ctx context.Context, conversationGUID string) ([]model.Message, error)
	// RecentShortSenderMessages returns up to limit of the newest incoming
	// messages whose sender is at most maxSenderLen characters, newest first.
	RecentShortSenderMessages(ctx context.Context, maxSenderLen, limit int) ([]model.Message, error)
}

// CodeStore keeps detected 2FA codes.
type CodeStore interface {
	// SaveCode stores c and prunes everything but the keep newest codes.
	// It reports whether c was new.
	SaveCode(ctx context.Context, c model.TwoFACode, keep int) (bool, error)
	ListCodes(ctx context.Context) ([]model.TwoFACode, error)
	MarkUsed(ctx context.Context, id string) error
	ClearCodes(ctx context.Context) error
}
