package provider

import (
	"go.uber.org/zap"

	"github.com/rcliao/msg-memory/internal/config"
)

// New selects the backend once from configuration. AI switched off, or a
// provider id of "disabled", yields Disabled. Cloud backends get their own
// Limiter.
func New(cfg *config.Config, logger *zap.Logger) Provider {
	if !cfg.AI.Enabled {
		return Disabled{}
	}
	switch Kind(cfg.AI.Provider) {
	case KindOllama:
		return NewOllama(cfg.AI.Ollama, logger)
	case KindOllamaTurbo:
		return NewOllamaTurbo(cfg.AI.OllamaTurbo, NewLimiter(cfg.RateLimit), logger)
	case KindGemini:
		return NewGemini(cfg.AI.Gemini, NewLimiter(cfg.RateLimit), logger)
	default:
		return Disabled{}
	}
}
