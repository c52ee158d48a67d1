// Package assistant implements the user-facing writing helpers: smart
// replies, message enhancement, grammar fixes, summaries, content analysis
// and action-item extraction.
package assistant

import (
	"context"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/rcliao/msg-memory/internal/logging"
	"github.com/rcliao/msg-memory/internal/model"
	"github.com/rcliao/msg-memory/internal/provider"
)

// MemorySource supplies memories gathered from other conversations.
type MemorySource interface {
	Relevant(ctx context.Context, conv model.Conversation, query string, limit int) ([]model.MemoryItem, error)
}

// Assistant runs writing-assistance requests against a provider.
type Assistant struct {
	provider provider.Provider
	memories MemorySource
	logger   *zap.Logger
}

// New creates an Assistant. memories may be nil, in which case prompts are
// built without cross-conversation context.
func New(p provider.Provider, memories MemorySource, logger *zap.Logger) *Assistant {
	return &Assistant{provider: p, memories: memories, logger: logging.OrNop(logger)}
}

// ready fails fast when the provider cannot serve a request: AI disabled,
// or a local Ollama server that does not answer its probe.
func (a *Assistant) ready(ctx context.Context) error {
	switch a.provider.Kind() {
	case provider.KindDisabled:
		return provider.ErrDisabled
	case provider.KindOllama:
		return provider.Probe(ctx, a.provider)
	}
	return nil
}

// creative returns sampling settings for open-ended generation. Temperature
// and seed vary per call so a retry gives different output.
func creative(promptText string) provider.Request {
	return provider.Request{
		Prompt:      promptText,
		Temperature: 0.7 + rand.Float64()*0.3,
		Seed:        int64(rand.IntN(99999) + 1),
		TopK:        40,
		TopP:        0.95,
		MaxTokens:   1024,
	}
}

func (a *Assistant) generate(ctx context.Context, promptText string) (string, error) {
	return a.provider.Generate(ctx, creative(promptText))
}

// relevant looks up memories for conv. Lookup failures only cost context,
// so they are logged and yield nothing.
func (a *Assistant) relevant(ctx context.Context, conv *model.Conversation, query string, limit int) []model.MemoryItem {
	if a.memories == nil || conv == nil {
		return nil
	}
	items, err := a.memories.Relevant(ctx, *conv, query, limit)
	if err != nil {
		a.logger.Warn("failed to retrieve contextual memories", zap.Error(err))
		return nil
	}
	a.logger.Debug("contextual memories", zap.Int("count", len(items)))
	return items
}
