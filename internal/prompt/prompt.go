// Package prompt renders the instruction text sent to text-generation
// providers. Every builder is a pure function of its arguments and spells
// out the response shape it expects back.
package prompt

import (
	"fmt"
	"strings"

	"github.com/rcliao/msg-memory/internal/model"
)

const (
	// MaxConversationContext is how many trailing messages go into a
	// conversation context block.
	MaxConversationContext = 10

	// MaxSmartReplies is the number of reply suggestions requested.
	MaxSmartReplies = 3

	// MaxReplyMemories caps memories quoted in a smart-reply prompt.
	MaxReplyMemories = 5
)

// Tone is the target register for message enhancement.
type Tone string

const (
	ToneFormal       Tone = "formal"
	ToneCasual       Tone = "casual"
	ToneEnthusiastic Tone = "enthusiastic"
	ToneNeutral      Tone = "neutral"
)

// ParseTone maps a user-supplied name to a Tone, defaulting to neutral.
func ParseTone(s string) Tone {
	switch Tone(strings.ToLower(strings.TrimSpace(s))) {
	case ToneFormal:
		return ToneFormal
	case ToneCasual:
		return ToneCasual
	case ToneEnthusiastic:
		return ToneEnthusiastic
	default:
		return ToneNeutral
	}
}

// Description is the phrase used for t inside prompts.
func (t Tone) Description() string {
	switch t {
	case ToneFormal:
		return "formal and professional"
	case ToneCasual:
		return "casual and friendly"
	case ToneEnthusiastic:
		return "enthusiastic and positive"
	default:
		return "clear and natural"
	}
}

// Extraction asks the model whether messageText carries a fact worth
// remembering, answered as {hasInfo, info, category, confidence}.
func Extraction(messageText string) string {
	return `Extract useful information from this message that could help generate better smart replies in future conversations. Look for:

**High Priority (extract these):**
- Codes/credentials (2FA codes, access codes, passwords, PINs, confirmation numbers)
- Events with times/dates (meetings, parties, appointments, deadlines)
- Locations and addresses
- Important decisions or plans
- Commitments and availability

**Medium Priority (extract if relevant):**
- Names of people, places, or companies
- Preferences and interests mentioned
- Problems or issues discussed
- Future activities or plans
- Important facts or information shared

**Low Priority (skip routine messages):**
- Basic greetings ("hi", "hello", "thanks")
- Simple confirmations ("ok", "yes", "sounds good")
- Very short responses

Message: "` + messageText + `"

Respond in JSON format:
{
  "hasInfo": true/false,
  "info": "concise but complete extracted information",
  "category": "code|event|location|person|plan|interest|fact|general",
  "confidence": 0.0-1.0
}

Examples:
- "Your verification code is 123456" → {"hasInfo": true, "info": "Verification code: 123456", "category": "code", "confidence": 1.0}
- "Meeting at 3pm tomorrow at Starbucks" → {"hasInfo": true, "info": "Meeting at 3pm tomorrow at Starbucks", "category": "event", "confidence": 0.95}
- "I love hiking in the mountains" → {"hasInfo": true, "info": "Enjoys hiking in mountains", "category": "interest", "confidence": 0.8}
- "My favorite restaurant is Giuseppe's on Main Street" → {"hasInfo": true, "info": "Favorite restaurant: Giuseppe's on Main Street", "category": "fact", "confidence": 0.85}
- "Just arrived at the airport" → {"hasInfo": true, "info": "Currently at airport", "category": "location", "confidence": 0.9}
- "ok" → {"hasInfo": false}

Be generous in extracting information - when in doubt, include it if it might be useful later.`
}

// ConversationContext renders the header and last MaxConversationContext
// messages of a conversation.
func ConversationContext(conv model.Conversation, messages []model.Message) string {
	if len(messages) > MaxConversationContext {
		messages = messages[len(messages)-MaxConversationContext:]
	}

	var b strings.Builder
	b.WriteString("Conversation Context:\n")
	if conv.IsGroup {
		b.WriteString("Type: Group Chat\n")
	} else {
		b.WriteString("Type: Direct Message\n")
	}
	if conv.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", conv.Title)
	}
	b.WriteString("\nRecent Messages:\n")
	for _, m := range messages {
		fmt.Fprintf(&b, "%s: %s\n", senderLabel(m), m.Text)
	}
	return b.String()
}

func senderLabel(m model.Message) string {
	switch {
	case m.Outgoing:
		return "Me"
	case m.Sender != "":
		return m.Sender
	default:
		return "Unknown"
	}
}

// SmartReply asks for MaxSmartReplies suggestions, one per line. At most
// MaxReplyMemories memories are quoted.
func SmartReply(context string, isGroup bool, memories []model.MemoryItem) string {
	var memoryBlock string
	if len(memories) > 0 {
		if len(memories) > MaxReplyMemories {
			memories = memories[:MaxReplyMemories]
		}
		lines := make([]string, len(memories))
		for i, m := range memories {
			lines[i] = fmt.Sprintf("- %s (from %s)", m.ExtractedText, titleOr(m, "another conversation"))
		}
		memoryBlock = "\nAdditional context from other conversations:\n" + strings.Join(lines, "\n") + "\n"
	}

	setting := "direct message"
	if isGroup {
		setting = "group chat"
	}

	return fmt.Sprintf(`Based on the following conversation, generate %d appropriate reply suggestions.
The replies should be:
- Contextually relevant and informed by all available information
- Natural and conversational
- Appropriate for a %s setting
- Brief (1-2 sentences max)
- Diverse in tone and content
- Reference information from other conversations when relevant and helpful

Current conversation:
%s
%s
Provide exactly %d reply options, each on a new line, without numbering or formatting:`,
		MaxSmartReplies, setting, context, memoryBlock, MaxSmartReplies)
}

// Enhance asks for a single rewrite of original in tone t.
func Enhance(original string, t Tone, context string, memories []model.MemoryItem) string {
	return fmt.Sprintf(`Please improve the following message to be more %s while maintaining its original meaning.
Fix any grammar or spelling errors, and make it clearer and more engaging.

%s%sOriginal message: "%s"

If the message appears incomplete (like "the google code is"), use the relevant information above to help complete it naturally.
Return ONLY the improved message text. Do not use quotation marks, labels, formatting, or prefixes. Just return the plain improved message:`,
		t.Description(), enhanceMemoryBlock(memories), contextLine(context), original)
}

// EnhanceMultiple asks for three rewrites labelled "1:", "2:" and "3:".
func EnhanceMultiple(original, context string, memories []model.MemoryItem) string {
	return fmt.Sprintf(`Please provide 3 different improved versions of this message. Do not use brackets or placeholders - provide the actual enhanced text.

1. Make it casual and friendly
2. Make it professional and polished
3. Make it enthusiastic and engaging

Each version should maintain the original meaning while improving grammar, clarity, and tone.

%s%sOriginal message: "%s"

If the message appears incomplete (like "the google code is"), use the relevant information above to help complete it naturally.

Response format (provide actual text, not placeholders):
1:
2:
3:`, enhanceMemoryBlock(memories), contextLine(context), original)
}

// GrammarCheck asks for a correction that leaves tone untouched.
func GrammarCheck(original string) string {
	return `Please fix ONLY grammar, spelling, and punctuation errors in this message.
Do NOT change the tone, style, or meaning. Keep it exactly as the person intended to say it.
If there are no errors, return the message unchanged.

Original message: "` + original + `"

Return ONLY the corrected message text. Do not use quotation marks, labels, formatting, or prefixes. Just return the plain corrected message:`
}

// Summarize asks for a concise summary of a rendered conversation context.
func Summarize(context string, isGroup bool) string {
	kind := "conversation"
	if isGroup {
		kind = "group conversation"
	}
	return fmt.Sprintf(`Please provide a concise summary of the following %s.
Focus on key points, decisions, and important information discussed.

%s

Summary:`, kind, context)
}

// ContentAnalysis asks for a JSON risk assessment of message.
func ContentAnalysis(message string) string {
	return `Analyze the following message for potential issues. Provide a JSON response with the following structure:
{
    "isSpam": boolean,
    "hasInappropriateContent": boolean,
    "containsSensitiveInfo": boolean,
    "riskLevel": "LOW"|"MEDIUM"|"HIGH",
    "warnings": ["list", "of", "warnings"]
}

Message to analyze: "` + message + `"

Analysis:`
}

// ActionItems asks for a JSON array of tasks, appointments and reminders.
func ActionItems(context string) string {
	return `Extract any action items, tasks, appointments, or reminders from the following conversation.
Provide a JSON array where each item has this structure:
{
    "type": "TASK"|"APPOINTMENT"|"REMINDER",
    "description": "description of the action item",
    "dueDate": "date if mentioned, null otherwise",
    "assignee": "person assigned if mentioned, null otherwise"
}

` + context + `

Action Items:`
}

func enhanceMemoryBlock(memories []model.MemoryItem) string {
	if len(memories) == 0 {
		return ""
	}
	lines := make([]string, len(memories))
	for i, m := range memories {
		lines[i] = fmt.Sprintf("• %s (from %s)", m.ExtractedText, titleOr(m, "conversation"))
	}
	return "Relevant information from your other conversations:\n" + strings.Join(lines, "\n") + "\n\n"
}

func contextLine(context string) string {
	if context == "" {
		return ""
	}
	return "Context: " + context + "\n"
}

func titleOr(m model.MemoryItem, fallback string) string {
	if m.ConversationTitle != "" {
		return m.ConversationTitle
	}
	return fallback
}
