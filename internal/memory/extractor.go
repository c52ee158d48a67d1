package memory

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/msg-memory/internal/logging"
	"github.com/rcliao/msg-memory/internal/model"
	"github.com/rcliao/msg-memory/internal/prompt"
	"github.com/rcliao/msg-memory/internal/provider"
)

// Sampling for extraction calls: near-deterministic, short output.
const (
	extractionTemperature = 0.1
	extractionMaxTokens   = 512
)

// Extractor asks a provider whether a message holds a fact worth keeping.
type Extractor struct {
	provider provider.Provider
	logger   *zap.Logger
	now      func() time.Time
}

// NewExtractor creates an Extractor.
func NewExtractor(p provider.Provider, logger *zap.Logger) *Extractor {
	return &Extractor{provider: p, logger: logging.OrNop(logger), now: time.Now}
}

// Extract returns the memory item for src, or nil when the reply carries no
// information. Provider failures are returned unchanged.
func (e *Extractor) Extract(ctx context.Context, src Source) (*model.MemoryItem, ParseOutcome, error) {
	raw, err := e.provider.Generate(ctx, provider.Request{
		Prompt:      prompt.Extraction(src.Message.Text),
		Temperature: extractionTemperature,
		MaxTokens:   extractionMaxTokens,
	})
	if err != nil {
		return nil, NoMatch, err
	}

	item, outcome := Parse(raw, src, e.now())
	if item == nil {
		e.logger.Debug("no memory extracted",
			zap.String("message", logging.Truncate(src.Message.Text, 50)),
			zap.String("response", logging.Truncate(raw, 100)),
		)
		return nil, outcome, nil
	}
	e.logger.Debug("memory extracted",
		zap.String("outcome", outcome.String()),
		zap.String("category", item.Category),
		zap.Float64("confidence", item.Confidence),
	)
	return item, outcome, nil
}
