package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/msg-memory/internal/config"
)

func newTestGemini(t *testing.T, handler http.HandlerFunc) (*Gemini, *fakeClock) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	clock := &fakeClock{t: time.Unix(1000, 0)}
	g := NewGemini(config.GeminiConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "gemini-1.5-flash"},
		newFakeLimiter(clock), nil)
	return g, clock
}

func TestGeminiGenerate(t *testing.T) {
	var got geminiRequest
	g, _ := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"generated"}]}}]}`))
	})

	text, err := g.Generate(context.Background(), Request{Prompt: "p", Temperature: 0.7, TopK: 40, TopP: 0.95, MaxTokens: 1024})
	require.NoError(t, err)
	assert.Equal(t, "generated", text)
	require.Len(t, got.Contents, 1)
	assert.Equal(t, "p", got.Contents[0].Parts[0].Text)
	assert.Equal(t, 40, got.GenerationConfig.TopK)
	assert.Equal(t, 1024, got.GenerationConfig.MaxOutputTokens)
	assert.Equal(t, KindGemini, g.Kind())
}

func TestGeminiMissingKeySkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	lim := newFakeLimiter(&fakeClock{})
	g := NewGemini(config.GeminiConfig{BaseURL: srv.URL}, lim, nil)
	_, err := g.Generate(context.Background(), Request{Prompt: "p"})
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Zero(t, calls.Load())
	assert.Zero(t, lim.Failures())
}

func TestGeminiFailureAccounting(t *testing.T) {
	status := http.StatusTooManyRequests
	g, _ := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		if status == http.StatusOK {
			w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
			return
		}
		http.Error(w, `{"error":{"message":"x"}}`, status)
	})
	ctx := context.Background()

	_, err := g.Generate(ctx, Request{Prompt: "p"})
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 1, g.limiter.Failures())

	status = http.StatusBadRequest
	_, err = g.Generate(ctx, Request{Prompt: "p"})
	assert.ErrorIs(t, err, ErrClientError)
	assert.Equal(t, 2, g.limiter.Failures())

	status = http.StatusServiceUnavailable
	_, err = g.Generate(ctx, Request{Prompt: "p"})
	assert.ErrorIs(t, err, ErrServerError)
	assert.Equal(t, 2, g.limiter.Failures())

	status = http.StatusOK
	_, err = g.Generate(ctx, Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, 0, g.limiter.Failures())
}

func TestGeminiBackoffBetweenCalls(t *testing.T) {
	g, clock := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})
	ctx := context.Background()

	g.Generate(ctx, Request{Prompt: "p"})
	g.Generate(ctx, Request{Prompt: "p"})
	g.Generate(ctx, Request{Prompt: "p"})

	// First call is free; the next two wait 3s<<1 and 3s<<2.
	assert.Equal(t, []time.Duration{6 * time.Second, 12 * time.Second}, clock.sleeps)
}

func TestGeminiMalformedBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"not json", `<html>`, ErrMalformedResponse},
		{"no candidates", `{"candidates":[]}`, ErrMalformedResponse},
		{"no parts", `{"candidates":[{"content":{"parts":[]}}]}`, ErrMalformedResponse},
		{"empty text", `{"candidates":[{"content":{"parts":[{"text":""}]}}]}`, ErrEmptyResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})
			_, err := g.Generate(context.Background(), Request{Prompt: "p"})
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 1, g.limiter.Failures())
		})
	}
}

func TestGeminiTransportErrorOmitsKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	g := NewGemini(config.GeminiConfig{APIKey: "super-secret", BaseURL: url}, newFakeLimiter(&fakeClock{}), nil)
	_, err := g.Generate(context.Background(), Request{Prompt: "p"})
	require.ErrorIs(t, err, ErrUnavailable)
	assert.NotContains(t, err.Error(), "super-secret")
}
