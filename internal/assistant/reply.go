package assistant

import (
	"context"
	"strings"

	"github.com/rcliao/msg-memory/internal/model"
	"github.com/rcliao/msg-memory/internal/prompt"
	"github.com/rcliao/msg-memory/internal/store"
)

// SmartReplies suggests up to three replies to the latest messages in
// history, drawing on memories from other conversations.
func (a *Assistant) SmartReplies(ctx context.Context, conv model.Conversation, history []model.Message) ([]string, error) {
	if err := a.ready(ctx); err != nil {
		return nil, err
	}
	memories := a.relevant(ctx, &conv, "", store.DefaultRelevantLimit)
	p := prompt.SmartReply(prompt.ConversationContext(conv, history), conv.IsGroup, memories)

	raw, err := a.generate(ctx, p)
	if err != nil {
		return nil, err
	}
	return parseSmartReplies(raw), nil
}

func parseSmartReplies(raw string) []string {
	replies := []string{}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Here are") || strings.HasPrefix(line, "Reply") {
			continue
		}
		replies = append(replies, line)
		if len(replies) == prompt.MaxSmartReplies {
			break
		}
	}
	return replies
}
