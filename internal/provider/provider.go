// Package provider sends prompts to text-generation backends: a self-hosted
// Ollama server, the hosted Ollama service, or the Gemini REST API.
package provider

import "context"

// Kind identifies a configured backend. It is chosen once at startup.
type Kind string

const (
	KindDisabled    Kind = "disabled"
	KindOllama      Kind = "ollama"
	KindOllamaTurbo Kind = "ollama_turbo"
	KindGemini      Kind = "gemini"
)

// Request is a single text-generation call. Zero values for the optional
// sampling fields mean "backend default".
type Request struct {
	Prompt      string
	Temperature float64
	MaxTokens   int
	TopK        int
	TopP        float64
	Seed        int64
}

// Provider generates text for a prompt.
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
	Kind() Kind
}

// Prober is implemented by backends that expose a cheap availability check.
type Prober interface {
	Probe(ctx context.Context) error
}

// Probe checks p's availability when it supports probing. Providers without
// a probe are assumed available.
func Probe(ctx context.Context, p Provider) error {
	if pr, ok := p.(Prober); ok {
		return pr.Probe(ctx)
	}
	return nil
}
