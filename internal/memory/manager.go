package memory

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/rcliao/msg-memory/internal/logging"
	"github.com/rcliao/msg-memory/internal/model"
	"github.com/rcliao/msg-memory/internal/provider"
	"github.com/rcliao/msg-memory/internal/store"
)

// DefaultMinMessageLength is the shortest message text worth extracting from.
const DefaultMinMessageLength = 10

// Outcome is the fate of a single message sent through the pipeline.
type Outcome int

const (
	// Skipped means the message was ineligible or the reply held nothing.
	Skipped Outcome = iota
	// Stored means a memory item was appended.
	Stored
	// Failed means the provider call or the store write failed.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Stored:
		return "stored"
	case Failed:
		return "failed"
	default:
		return "skipped"
	}
}

// Options configures a Manager.
type Options struct {
	Limit            int
	MinMessageLength int
}

// Manager owns the memory pipeline for a store: extraction on the way in,
// relevance queries on the way out.
type Manager struct {
	extractor *Extractor
	store     store.MemoryStore
	limit     int
	minLen    int
	logger    *zap.Logger
}

// NewManager creates a Manager.
func NewManager(ext *Extractor, s store.MemoryStore, opts Options, logger *zap.Logger) *Manager {
	if opts.MinMessageLength <= 0 {
		opts.MinMessageLength = DefaultMinMessageLength
	}
	return &Manager{
		extractor: ext,
		store:     s,
		limit:     opts.Limit,
		minLen:    opts.MinMessageLength,
		logger:    logging.OrNop(logger),
	}
}

// Limit returns the capacity enforced on every append.
func (m *Manager) Limit() int { return m.limit }

// Eligible reports whether text is long enough to be worth extracting from.
func (m *Manager) Eligible(text string) bool {
	return strings.TrimSpace(text) != "" && utf8.RuneCountInString(text) >= m.minLen
}

// ProcessMessage extracts a fact from msg and appends it to the store.
// Provider and store failures come back as Failed with the error, so
// callers on the enrichment path can log and move on. Configuration errors
// are wrapped so callers can stop early.
func (m *Manager) ProcessMessage(ctx context.Context, msg model.Message, conv model.Conversation) (Outcome, *model.MemoryItem, error) {
	if !m.Eligible(msg.Text) {
		return Skipped, nil, nil
	}

	item, _, err := m.extractor.Extract(ctx, Source{Conversation: conv, Message: msg})
	if err != nil {
		if provider.IsConfigError(err) {
			return Failed, nil, fmt.Errorf("extract: %w", err)
		}
		return Failed, nil, fmt.Errorf("extract from message %d: %w", msg.ID, err)
	}
	if item == nil {
		return Skipped, nil, nil
	}

	if err := m.store.Append(ctx, *item, m.limit); err != nil {
		return Failed, item, fmt.Errorf("append memory: %w", err)
	}
	m.logger.Info("memory stored",
		zap.String("conversation", item.ConversationID),
		zap.String("category", item.Category),
		zap.String("text", logging.Truncate(item.ExtractedText, 80)),
	)
	return Stored, item, nil
}

// Relevant returns memories from conversations other than conv, optionally
// filtered by query, newest first.
func (m *Manager) Relevant(ctx context.Context, conv model.Conversation, query string, limit int) ([]model.MemoryItem, error) {
	exclude := ""
	if conv.GUID != "" || conv.LocalID != 0 {
		exclude = conv.Key()
	}
	return m.store.QueryRelevant(ctx, store.RelevantParams{
		ExcludeConversationID: exclude,
		Query:                 query,
		Limit:                 limit,
	})
}

// ListAll returns every memory, newest first.
func (m *Manager) ListAll(ctx context.Context) ([]model.MemoryItem, error) {
	return m.store.ListAll(ctx)
}

// ClearAll drops every memory.
func (m *Manager) ClearAll(ctx context.Context) error {
	return m.store.ClearAll(ctx)
}

// TrimToLimit applies the configured capacity, for use after it was lowered.
func (m *Manager) TrimToLimit(ctx context.Context) error {
	return m.store.TrimToLimit(ctx, m.limit)
}
