package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rcliao/msg-memory/internal/model"
)

func TestExtractionEnumeratesShape(t *testing.T) {
	p := Extraction("Dinner at 7 on Friday")
	assert.Contains(t, p, `Message: "Dinner at 7 on Friday"`)
	for _, key := range []string{`"hasInfo"`, `"info"`, `"category"`, `"confidence"`} {
		assert.Contains(t, p, key)
	}
}

func TestConversationContextKeepsLastMessages(t *testing.T) {
	var msgs []model.Message
	base := time.Unix(0, 0)
	for i := range 15 {
		msgs = append(msgs, model.Message{Sender: "Ann", Text: "m" + string(rune('a'+i)), Date: base.Add(time.Duration(i) * time.Minute)})
	}
	msgs = append(msgs, model.Message{Text: "mine", Outgoing: true})

	out := ConversationContext(model.Conversation{Title: "Book club", IsGroup: true}, msgs)
	assert.Contains(t, out, "Type: Group Chat")
	assert.Contains(t, out, "Title: Book club")
	assert.Contains(t, out, "Me: mine")
	assert.NotContains(t, out, "Ann: ma\n")
	assert.Equal(t, MaxConversationContext, strings.Count(out, ": m"))
}

func TestSmartReplyCapsMemories(t *testing.T) {
	var mems []model.MemoryItem
	for i := range 8 {
		mems = append(mems, model.MemoryItem{ExtractedText: "fact" + string(rune('0'+i))})
	}
	mems[0].ConversationTitle = "Work"

	p := SmartReply("ctx", false, mems)
	assert.Contains(t, p, "- fact0 (from Work)")
	assert.Contains(t, p, "- fact4 (from another conversation)")
	assert.NotContains(t, p, "fact5")
	assert.Contains(t, p, "direct message setting")
	assert.Contains(t, p, "Provide exactly 3 reply options")

	assert.NotContains(t, SmartReply("ctx", true, nil), "Additional context")
}

func TestEnhanceTones(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"formal", "formal and professional"},
		{"Casual", "casual and friendly"},
		{"enthusiastic", "enthusiastic and positive"},
		{"", "clear and natural"},
		{"grumpy", "clear and natural"},
	}
	for _, tt := range tests {
		p := Enhance("hi", ParseTone(tt.in), "", nil)
		assert.Contains(t, p, "more "+tt.want+" while")
	}
}

func TestEnhanceIncludesMemoriesAndContext(t *testing.T) {
	mems := []model.MemoryItem{{ExtractedText: "Google code: 123456"}}
	p := Enhance("the google code is", ToneNeutral, "replying to Sam", mems)
	assert.Contains(t, p, "• Google code: 123456 (from conversation)")
	assert.Contains(t, p, "Context: replying to Sam\n")
	assert.Contains(t, p, `Original message: "the google code is"`)

	m := EnhanceMultiple("x", "", mems)
	assert.Contains(t, m, "1:\n2:\n3:")
	assert.NotContains(t, m, "Context:")
}

func TestOtherBuilders(t *testing.T) {
	assert.Contains(t, GrammarCheck("teh"), `"teh"`)
	assert.Contains(t, Summarize("C", true), "group conversation")
	assert.Contains(t, Summarize("C", false), "following conversation.")
	assert.Contains(t, ContentAnalysis("buy now"), `"riskLevel"`)
	assert.Contains(t, ActionItems("C"), `"dueDate"`)
}
