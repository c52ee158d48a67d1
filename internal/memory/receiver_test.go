package memory

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/msg-memory/internal/model"
	"github.com/rcliao/msg-memory/internal/provider"
)

type fakeCodes struct {
	mu   sync.Mutex
	seen []string
}

func (f *fakeCodes) HandleMessage(_ context.Context, m model.Message) (*model.TwoFACode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, m.Text)
	if strings.Contains(m.Text, "code") {
		return &model.TwoFACode{Code: "123456"}, nil
	}
	return nil, nil
}

func feed(events ...Event) <-chan Event {
	ch := make(chan Event, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return ch
}

func TestReceiverRoutesMessages(t *testing.T) {
	p := replying(factReply)
	m, s := newTestManager(t, p, 50)
	codes := &fakeCodes{}
	r := NewReceiver(m, codes, nil)

	outgoing := msg(1, friends, "I will be there at 7pm sharp")
	outgoing.Outgoing = true
	err := r.Run(context.Background(), feed(
		Event{Message: msg(2, friends, "Dinner on Friday at 7pm"), Conversation: friends},
		Event{Message: outgoing, Conversation: friends},
		Event{Message: msg(3, family, "ok"), Conversation: family},
		Event{Message: msg(4, family, "Your code is 123456"), Conversation: family},
	))
	require.NoError(t, err)

	st := r.Stats()
	assert.EqualValues(t, 4, st.Received)
	assert.EqualValues(t, 2, st.Stored, "short and outgoing messages are not extracted")
	assert.EqualValues(t, 1, st.Codes)
	assert.EqualValues(t, 1, st.Ignored)
	assert.Equal(t, 2, p.calls())

	codes.mu.Lock()
	assert.ElementsMatch(t, []string{"Dinner on Friday at 7pm", "ok", "Your code is 123456"}, codes.seen)
	codes.mu.Unlock()

	all, err := s.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestReceiverMemoryDisabled(t *testing.T) {
	codes := &fakeCodes{}
	r := NewReceiver(nil, codes, nil)

	require.NoError(t, r.Run(context.Background(), feed(
		Event{Message: msg(1, friends, "Dinner on Friday at 7pm"), Conversation: friends},
	)))
	assert.Zero(t, r.Stats().Stored)
	assert.Len(t, codes.seen, 1)
}

func TestReceiverSwallowsProviderErrors(t *testing.T) {
	m, _ := newTestManager(t, failing(provider.ErrRateLimited), 50)
	r := NewReceiver(m, nil, nil)

	require.NoError(t, r.Run(context.Background(), feed(
		Event{Message: msg(1, friends, "Dinner on Friday at 7pm"), Conversation: friends},
	)))
	assert.EqualValues(t, 1, r.Stats().Failed)
}

func TestReceiverStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan Event)
	r := NewReceiver(nil, nil, nil)

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, events) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("receiver did not stop")
	}
}
