package assistant

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/msg-memory/internal/model"
	"github.com/rcliao/msg-memory/internal/prompt"
	"github.com/rcliao/msg-memory/internal/provider"
)

type fakeProvider struct {
	kind     provider.Kind
	reply    string
	err      error
	probeErr error
	requests []provider.Request
	probes   int
}

func (f *fakeProvider) Generate(_ context.Context, req provider.Request) (string, error) {
	f.requests = append(f.requests, req)
	return f.reply, f.err
}

func (f *fakeProvider) Kind() provider.Kind {
	if f.kind == "" {
		return provider.KindGemini
	}
	return f.kind
}

func (f *fakeProvider) Probe(context.Context) error {
	f.probes++
	return f.probeErr
}

func (f *fakeProvider) lastPrompt() string {
	if len(f.requests) == 0 {
		return ""
	}
	return f.requests[len(f.requests)-1].Prompt
}

type fakeMemories struct {
	items   []model.MemoryItem
	err     error
	queries []string
}

func (f *fakeMemories) Relevant(_ context.Context, _ model.Conversation, query string, limit int) ([]model.MemoryItem, error) {
	f.queries = append(f.queries, query)
	if limit > 0 && len(f.items) > limit {
		return f.items[:limit], f.err
	}
	return f.items, f.err
}

var (
	chat    = model.Conversation{GUID: "chat-1", Title: "Weekend plans", IsGroup: true}
	history = []model.Message{
		{Sender: "Sam", Text: "Are we still on for Saturday?"},
		{Outgoing: true, Text: "Yes! Noon at the park"},
	}
)

func memoriesN(n int) *fakeMemories {
	f := &fakeMemories{}
	for i := 0; i < n; i++ {
		f.items = append(f.items, model.MemoryItem{
			ConversationID:    "other",
			ConversationTitle: "Family",
			ExtractedText:     fmt.Sprintf("memory %d", i),
		})
	}
	return f
}

func TestSmartReplies(t *testing.T) {
	p := &fakeProvider{reply: "Here are three replies:\n\nSounds great!\nReply 2: sure\nSee you there\nCan't wait\nOne more"}
	mem := memoriesN(7)
	a := New(p, mem, nil)

	replies, err := a.SmartReplies(context.Background(), chat, history)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sounds great!", "See you there", "Can't wait"}, replies)

	pr := p.lastPrompt()
	assert.Contains(t, pr, "group chat")
	assert.Contains(t, pr, "Sam: Are we still on for Saturday?")
	assert.Contains(t, pr, "- memory 4 (from Family)")
	assert.NotContains(t, pr, "memory 5", "at most five memories are quoted")

	req := p.requests[0]
	assert.GreaterOrEqual(t, req.Temperature, 0.7)
	assert.LessOrEqual(t, req.Temperature, 1.0)
	assert.Equal(t, 40, req.TopK)
	assert.Equal(t, 1024, req.MaxTokens)
}

func TestSmartRepliesSurvivesMemoryFailure(t *testing.T) {
	p := &fakeProvider{reply: "Sure thing"}
	a := New(p, &fakeMemories{err: errors.New("disk gone")}, nil)

	replies, err := a.SmartReplies(context.Background(), chat, history)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sure thing"}, replies)
	assert.NotContains(t, p.lastPrompt(), "Additional context")
}

func TestUserFacingErrorsSurface(t *testing.T) {
	ctx := context.Background()

	disabled := New(provider.Disabled{}, nil, nil)
	_, err := disabled.SmartReplies(ctx, chat, history)
	assert.ErrorIs(t, err, provider.ErrDisabled)
	_, err = disabled.Enhance(ctx, "hi there", prompt.ToneNeutral, "", nil)
	assert.ErrorIs(t, err, provider.ErrDisabled)

	missingKey := New(&fakeProvider{err: fmt.Errorf("%w: Gemini API key not configured", provider.ErrNotConfigured)}, nil, nil)
	_, err = missingKey.CheckGrammar(ctx, "their going")
	assert.True(t, provider.IsConfigError(err))
	_, err = missingKey.Summarize(ctx, chat, history)
	assert.True(t, provider.IsConfigError(err))
}

func TestOllamaIsProbedFirst(t *testing.T) {
	p := &fakeProvider{
		kind:     provider.KindOllama,
		probeErr: fmt.Errorf("%w: Ollama server not reachable at http://box:11434", provider.ErrUnavailable),
	}
	a := New(p, nil, nil)

	_, err := a.EnhanceMultiple(context.Background(), "see u soon", "", nil)
	assert.ErrorIs(t, err, provider.ErrUnavailable)
	assert.Contains(t, err.Error(), "http://box:11434")
	assert.Equal(t, 1, p.probes)
	assert.Empty(t, p.requests)
}

func TestGeminiIsNotProbed(t *testing.T) {
	p := &fakeProvider{kind: provider.KindGemini, reply: "Fixed."}
	_, err := New(p, nil, nil).CheckGrammar(context.Background(), "fixd")
	require.NoError(t, err)
	assert.Zero(t, p.probes)
}

func TestEnhanceUsesMemoriesAndCleans(t *testing.T) {
	p := &fakeProvider{reply: `Improved message: "The Google code is 123456, dont forget!"`}
	mem := memoriesN(1)
	a := New(p, mem, nil)

	conv := chat
	out, err := a.Enhance(context.Background(), "the google code is", prompt.ToneCasual, "Sam asked for the code", &conv)
	require.NoError(t, err)
	assert.Equal(t, "The Google code is 123456, don't forget!", out)
	assert.Equal(t, []string{"the google code is"}, mem.queries)

	pr := p.lastPrompt()
	assert.Contains(t, pr, "casual and friendly")
	assert.Contains(t, pr, "• memory 0 (from Family)")
	assert.Contains(t, pr, "Context: Sam asked for the code")
}

func TestEnhanceFallsBackToOriginal(t *testing.T) {
	a := New(&fakeProvider{reply: `""`}, nil, nil)
	out, err := a.Enhance(context.Background(), "keep me", prompt.ToneFormal, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "keep me", out)
}

func TestEnhanceMultiple(t *testing.T) {
	a := New(&fakeProvider{reply: "1: Hey, see you soon!\n2: I look forward to seeing you.\n3: Can't wait to see you!!"}, nil, nil)
	out, err := a.EnhanceMultiple(context.Background(), "see u soon", "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hey, see you soon!", "I look forward to seeing you.", "Can't wait to see you!!"}, out)
}

func TestCheckGrammar(t *testing.T) {
	p := &fakeProvider{reply: "Corrected: They're going to the **store**."}
	out, err := New(p, nil, nil).CheckGrammar(context.Background(), "their going to the store")
	require.NoError(t, err)
	assert.Equal(t, "They're going to the store.", out)
	assert.Contains(t, p.lastPrompt(), `Original message: "their going to the store"`)
}

func TestSummarize(t *testing.T) {
	a := New(&fakeProvider{reply: "  Picnic Saturday at noon.  "}, nil, nil)
	out, err := a.Summarize(context.Background(), chat, history)
	require.NoError(t, err)
	assert.Equal(t, "Picnic Saturday at noon.", out)

	a = New(&fakeProvider{reply: "   "}, nil, nil)
	out, err = a.Summarize(context.Background(), chat, history)
	require.NoError(t, err)
	assert.Equal(t, "Unable to generate summary", out)
}
