package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/msg-memory/internal/config"
	"github.com/rcliao/msg-memory/internal/logging"
)

// Gemini calls the generateContent endpoint of the Gemini REST API.
type Gemini struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	limiter *Limiter
	logger  *zap.Logger
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK,omitempty"`
	TopP            float64 `json:"topP,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content *geminiContent `json:"content"`
	} `json:"candidates"`
}

// NewGemini creates a Gemini client whose calls are spaced by lim.
func NewGemini(cfg config.GeminiConfig, lim *Limiter, logger *zap.Logger) *Gemini {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Gemini{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
		limiter: lim,
		logger:  logging.OrNop(logger),
	}
}

func (g *Gemini) Kind() Kind { return KindGemini }

// Generate sends the prompt. A missing API key fails before any network
// activity and does not touch the limiter.
func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("%w: Gemini API key not configured", ErrNotConfigured)
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	text, err := g.generate(ctx, req)
	recordOutcome(g.limiter, err)
	if err != nil {
		g.logger.Debug("gemini call failed",
			zap.Int("consecutive_failures", g.limiter.Failures()),
			zap.Error(err),
		)
	}
	return text, err
}

func (g *Gemini) generate(ctx context.Context, req Request) (string, error) {
	body, _ := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: req.Prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     req.Temperature,
			TopK:            req.TopK,
			TopP:            req.TopP,
			MaxOutputTokens: req.MaxTokens,
		},
	})
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		g.baseURL, g.model, url.QueryEscape(g.apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := g.client.Do(httpReq)
	if err != nil {
		// The URL carries the key; drop it from the wrapped error.
		if ue, ok := err.(*url.Error); ok {
			err = ue.Err
		}
		return "", transportError("gemini", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", statusError("gemini", resp)
	}

	var result geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("gemini: %w: %v", ErrMalformedResponse, err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil ||
		len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: %w: no candidates", ErrMalformedResponse)
	}
	text := result.Candidates[0].Content.Parts[0].Text
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}

	g.logger.Debug("generate completed",
		zap.String("provider", "gemini"),
		zap.String("model", g.model),
		zap.Int("api_key_len", len(g.apiKey)),
		zap.Int("response_len", len(text)),
		zap.Duration("latency", time.Since(start)),
	)
	return text, nil
}

var _ Provider = (*Gemini)(nil)
