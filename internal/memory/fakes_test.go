package memory

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rcliao/msg-memory/internal/model"
	"github.com/rcliao/msg-memory/internal/provider"
	"github.com/rcliao/msg-memory/internal/store"
)

const factReply = `{"hasInfo": true, "info": "Dinner on Friday at 7pm", "category": "event", "confidence": 0.9}`

// fakeProvider answers every prompt through fn and records the requests.
type fakeProvider struct {
	mu       sync.Mutex
	fn       func(n int, req provider.Request) (string, error)
	requests []provider.Request
}

func replying(text string) *fakeProvider {
	return &fakeProvider{fn: func(int, provider.Request) (string, error) { return text, nil }}
}

func failing(err error) *fakeProvider {
	return &fakeProvider{fn: func(int, provider.Request) (string, error) { return "", err }}
}

func (f *fakeProvider) Generate(_ context.Context, req provider.Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	n := len(f.requests)
	f.mu.Unlock()
	return f.fn(n, req)
}

func (f *fakeProvider) Kind() provider.Kind { return provider.KindOllama }

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func newTestJSONStore(t *testing.T) *store.JSONStore {
	t.Helper()
	s, err := store.NewJSONStore(filepath.Join(t.TempDir(), "conversation_memory.json"), nil)
	require.NoError(t, err)
	return s
}

func newTestManager(t *testing.T, p provider.Provider, limit int) (*Manager, *store.JSONStore) {
	t.Helper()
	s := newTestJSONStore(t)
	return NewManager(NewExtractor(p, nil), s, Options{Limit: limit}, nil), s
}

// fakeSource is an in-memory MessageSource.
type fakeSource struct {
	convs    []model.Conversation
	messages map[string][]model.Message
}

func (f *fakeSource) Conversations(context.Context) ([]model.Conversation, error) {
	return f.convs, nil
}

func (f *fakeSource) Messages(_ context.Context, guid string) ([]model.Message, error) {
	return f.messages[guid], nil
}

func (f *fakeSource) RecentShortSenderMessages(context.Context, int, int) ([]model.Message, error) {
	return nil, nil
}
