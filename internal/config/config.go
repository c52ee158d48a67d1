// Package config loads msg-memory settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Provider ids accepted in ai.provider.
const (
	ProviderDisabled    = "disabled"
	ProviderOllama      = "ollama"
	ProviderOllamaTurbo = "ollama_turbo"
	ProviderGemini      = "gemini"
)

// Config is the root configuration.
type Config struct {
	AI        AIConfig        `yaml:"ai"`
	Memory    MemoryConfig    `yaml:"memory"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Reprocess ReprocessConfig `yaml:"reprocess"`
	TwoFA     TwoFAConfig     `yaml:"twofa"`
	DB        string          `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
}

// AIConfig selects and configures the text-generation provider.
type AIConfig struct {
	Enabled     bool              `yaml:"enabled"`
	Provider    string            `yaml:"provider"`
	Ollama      OllamaConfig      `yaml:"ollama"`
	OllamaTurbo OllamaTurboConfig `yaml:"ollama_turbo"`
	Gemini      GeminiConfig      `yaml:"gemini"`
}

// OllamaConfig describes a self-hosted Ollama server.
type OllamaConfig struct {
	// URL is a full server address such as https://box:11434. When set it
	// takes precedence over Hostname and Port.
	URL      string        `yaml:"url"`
	Hostname string        `yaml:"hostname"`
	Port     int           `yaml:"port"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

// BaseURL returns URL when set, else http://host:port, or "" when neither
// is configured.
func (o OllamaConfig) BaseURL() string {
	if o.URL != "" {
		return strings.TrimRight(o.URL, "/")
	}
	if o.Hostname == "" {
		return ""
	}
	return "http://" + net.JoinHostPort(o.Hostname, strconv.Itoa(o.Port))
}

// setHost applies an OLLAMA_HOST style value: either a URL with a scheme
// or a bare host[:port].
func (o *OllamaConfig) setHost(v string) {
	if strings.Contains(v, "://") {
		if u, err := url.Parse(v); err == nil && u.Host != "" {
			o.URL = u.Scheme + "://" + u.Host
			o.Hostname = u.Hostname()
			if p, err := strconv.Atoi(u.Port()); err == nil {
				o.Port = p
			}
			return
		}
	}
	o.URL = ""
	host, port, err := net.SplitHostPort(v)
	if err != nil {
		o.Hostname = v
		return
	}
	o.Hostname = host
	if p, err := strconv.Atoi(port); err == nil {
		o.Port = p
	}
}

// OllamaTurboConfig describes the hosted, key-authenticated Ollama service.
type OllamaTurboConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// GeminiConfig describes the Gemini REST API.
type GeminiConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// MemoryConfig controls the conversation memory store.
type MemoryConfig struct {
	Enabled          bool   `yaml:"enabled"`
	MessageLimit     int    `yaml:"message_limit"`
	Backend          string `yaml:"backend"` // json | sqlite
	Path             string `yaml:"path"`
	MinMessageLength int    `yaml:"min_message_length"`
}

// RateLimitConfig sets the backoff applied before cloud provider calls.
type RateLimitConfig struct {
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	MaxExponent int           `yaml:"max_exponent"`
}

// ReprocessConfig tunes the bulk reprocessor.
type ReprocessConfig struct {
	ItemDelay              time.Duration `yaml:"item_delay"`
	BatchPause             time.Duration `yaml:"batch_pause"`
	MaxConsecutiveFailures int           `yaml:"max_consecutive_failures"`
}

// TwoFAConfig controls 2FA code detection.
type TwoFAConfig struct {
	Enabled bool `yaml:"enabled"`
	Keep    int  `yaml:"keep"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | console
}

// Default returns the built-in configuration.
func Default() Config {
	home, _ := os.UserHomeDir()
	dir := filepath.Join(home, ".msg-memory")
	return Config{
		AI: AIConfig{
			Enabled:  false,
			Provider: ProviderGemini,
			Ollama: OllamaConfig{
				Port:    11434,
				Model:   "llama3.2",
				Timeout: 15 * time.Second,
			},
			OllamaTurbo: OllamaTurboConfig{
				BaseURL: "https://ollama.com",
				Model:   "gpt-oss:20b",
				Timeout: 60 * time.Second,
			},
			Gemini: GeminiConfig{
				BaseURL: "https://generativelanguage.googleapis.com",
				Model:   "gemini-1.5-flash",
				Timeout: 60 * time.Second,
			},
		},
		Memory: MemoryConfig{
			Enabled:          true,
			MessageLimit:     50,
			Backend:          "json",
			Path:             filepath.Join(dir, "conversation_memory.json"),
			MinMessageLength: 10,
		},
		RateLimit: RateLimitConfig{
			BaseDelay:   3 * time.Second,
			MaxDelay:    60 * time.Second,
			MaxExponent: 4,
		},
		Reprocess: ReprocessConfig{
			ItemDelay:              500 * time.Millisecond,
			BatchPause:             5 * time.Second,
			MaxConsecutiveFailures: 8,
		},
		TwoFA: TwoFAConfig{Enabled: true, Keep: 3},
		DB:    filepath.Join(dir, "messages.db"),
		Log:   LogConfig{Level: "info", Format: "console"},
	}
}

// ApplyEnv overrides fields from well-known environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("MSG_MEMORY_DB"); v != "" {
		c.DB = v
	}
	if v := os.Getenv("MSG_MEMORY_FILE"); v != "" {
		c.Memory.Path = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		c.AI.Ollama.setHost(v)
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.AI.Gemini.APIKey = v
	}
	if v := os.Getenv("OLLAMA_API_KEY"); v != "" {
		c.AI.OllamaTurbo.APIKey = v
	}
}

// Validate reports structural problems. Missing credentials are not
// validation errors; they surface as provider configuration errors at call
// time.
func (c *Config) Validate() error {
	var errs []error
	switch c.AI.Provider {
	case ProviderDisabled, ProviderOllama, ProviderOllamaTurbo, ProviderGemini:
	default:
		errs = append(errs, fmt.Errorf("ai.provider: unknown provider %q", c.AI.Provider))
	}
	if c.AI.Ollama.Port <= 0 || c.AI.Ollama.Port > 65535 {
		errs = append(errs, fmt.Errorf("ai.ollama.port: %d out of range", c.AI.Ollama.Port))
	}
	if c.Memory.MessageLimit < 0 {
		errs = append(errs, fmt.Errorf("memory.message_limit: must be >= 0, got %d", c.Memory.MessageLimit))
	}
	switch c.Memory.Backend {
	case "json", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("memory.backend: unknown backend %q (valid: json, sqlite)", c.Memory.Backend))
	}
	if c.RateLimit.BaseDelay < 0 || c.RateLimit.MaxDelay < 0 {
		errs = append(errs, errors.New("rate_limit: delays must not be negative"))
	}
	if c.TwoFA.Keep < 0 {
		errs = append(errs, fmt.Errorf("twofa.keep: must be >= 0, got %d", c.TwoFA.Keep))
	}
	return errors.Join(errs...)
}
