package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/msg-memory/internal/config"
	"github.com/rcliao/msg-memory/internal/logging"
)

// Ollama talks to the /api/generate endpoint of either a self-hosted server
// or the hosted, key-authenticated service.
type Ollama struct {
	kind    Kind
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	limiter *Limiter // nil for self-hosted servers
	logger  *zap.Logger
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	Seed        int64   `json:"seed,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
	TopK        int     `json:"top_k,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

// NewOllama creates a client for a self-hosted Ollama server.
func NewOllama(cfg config.OllamaConfig, logger *zap.Logger) *Ollama {
	model := cfg.Model
	if model == "" {
		model = "llama3.2"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Ollama{
		kind:    KindOllama,
		baseURL: cfg.BaseURL(),
		model:   model,
		client:  &http.Client{Timeout: timeout},
		logger:  logging.OrNop(logger),
	}
}

// NewOllamaTurbo creates a client for the hosted Ollama service. Calls are
// spaced by lim.
func NewOllamaTurbo(cfg config.OllamaTurboConfig, lim *Limiter, logger *zap.Logger) *Ollama {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://ollama.com"
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-oss:20b"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Ollama{
		kind:    KindOllamaTurbo,
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
		limiter: lim,
		logger:  logging.OrNop(logger),
	}
}

func (o *Ollama) Kind() Kind { return o.kind }

// BaseURL returns the server address requests are sent to.
func (o *Ollama) BaseURL() string { return o.baseURL }

func (o *Ollama) checkConfig() error {
	if o.kind == KindOllamaTurbo {
		if o.apiKey == "" {
			return fmt.Errorf("%w: Ollama Turbo API key not configured", ErrNotConfigured)
		}
		return nil
	}
	if o.baseURL == "" {
		return fmt.Errorf("%w: Ollama hostname not configured", ErrNotConfigured)
	}
	return nil
}

func (o *Ollama) Generate(ctx context.Context, req Request) (string, error) {
	if err := o.checkConfig(); err != nil {
		return "", err
	}
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	text, err := o.generate(ctx, req)
	if o.limiter != nil {
		recordOutcome(o.limiter, err)
	}
	return text, err
}

func (o *Ollama) generate(ctx context.Context, req Request) (string, error) {
	body, _ := json.Marshal(ollamaGenerateRequest{
		Model:  o.model,
		Prompt: req.Prompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: req.Temperature,
			Seed:        req.Seed,
			NumPredict:  req.MaxTokens,
			TopK:        req.TopK,
			TopP:        req.TopP,
		},
	})
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	start := time.Now()
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", transportError(string(o.kind), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", statusError(string(o.kind), resp)
	}

	var result ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%s: %w: %v", o.kind, ErrMalformedResponse, err)
	}
	if strings.TrimSpace(result.Response) == "" {
		return "", fmt.Errorf("%s: %w", o.kind, ErrEmptyResponse)
	}

	o.logger.Debug("generate completed",
		zap.String("provider", string(o.kind)),
		zap.String("model", o.model),
		zap.Int("prompt_len", len(req.Prompt)),
		zap.Int("response_len", len(result.Response)),
		zap.Duration("latency", time.Since(start)),
	)
	return result.Response, nil
}

// Probe checks that the server answers GET /api/tags.
func (o *Ollama) Probe(ctx context.Context) error {
	if err := o.checkConfig(); err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	if o.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	}
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: Ollama server not reachable at %s: %v", ErrUnavailable, o.baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: Ollama server at %s returned %d", ErrUnavailable, o.baseURL, resp.StatusCode)
	}
	return nil
}

var (
	_ Provider = (*Ollama)(nil)
	_ Prober   = (*Ollama)(nil)
)
