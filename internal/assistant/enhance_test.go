package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"plain", "See you at noon.", "See you at noon."},
		{"label", "Improved message: See you at noon.", "See you at noon."},
		{"stacked labels", "Result: Output: **Improved message:** hi there", "hi there"},
		{"label case", "ENHANCED: hello", "hello"},
		{"smart quotes", "“Let’s go”", "Lets go"},
		{"contractions", `"I dont think Im late, youre early"`, "I don't think I'm late, you're early"},
		{"capitalized contraction", "Cant stop now", "Can't stop now"},
		{"plain words untouched", "its well known we were ill", "its well known we were ill"},
		{"markdown", "This is **really** _great_", "This is really great"},
		{"leading punctuation", ": - hello", "- hello"},
		{"bullet", "• hello", "hello"},
		{"whitespace", "  lots   of\n\nspace  ", "lots of space"},
		{"only quotes", `"''"`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanResponse(tt.in))
		})
	}
}

func TestParseVariants(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "colon lines",
			raw:  "Here you go\n1: Hey there\n2: [professional]\n3: Hello friend!\n4: ignored",
			want: []string{"Hey there", "Hello friend!"},
		},
		{
			name: "dotted lines",
			raw:  "1. Hey there\n2) Good afternoon\n3. Hi!!",
			want: []string{"Hey there", "Good afternoon", "Hi!!"},
		},
		{
			name: "paragraphs",
			raw:  "Hey there, how are you?\n\nshort\n\nGood afternoon, I trust you are well.\n\n[placeholder text here]",
			want: []string{"Hey there, how are you?", "Good afternoon, I trust you are well."},
		},
		{
			name: "last resort",
			raw:  "ok",
			want: []string{"see u soon 😊", "see u soon.", "see u soon!"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseVariants(tt.raw, "see u soon"))
		})
	}
	assert.Equal(t, []string{"Message enhanced 😊", "Message enhanced.", "Message enhanced!"}, parseVariants("", "  "))
}

func TestParseSmartReplies(t *testing.T) {
	assert.Empty(t, parseSmartReplies("Here are some ideas\nReply options:\n\n"))
	assert.Equal(t, []string{"a", "b", "c"}, parseSmartReplies("a\n b \nc\nd"))
}
